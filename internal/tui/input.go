package tui

import (
	"strings"
	"unicode/utf8"
)

// maxInputLen is the maximum number of runes allowed in form inputs.
const maxInputLen = 200

// editRune processes a keystroke for inline text editing.
// Handles backspace (rune-aware) and single printable characters.
// Returns the text unchanged for non-printable keys (enter, esc, etc.).
// Input is clamped to maxInputLen runes.
func editRune(text string, key string) string {
	switch key {
	case "backspace":
		if len(text) > 0 {
			runes := []rune(text)
			return string(runes[:len(runes)-1])
		}
		return text
	case "space":
		key = " "
	}
	if utf8.RuneCountInString(key) == 1 {
		if utf8.RuneCountInString(text) >= maxInputLen {
			return text
		}
		return text + key
	}
	return text
}

// truncateToHeight limits output to maxLines newline-delimited lines.
// Returns the original string if it fits or maxLines is <= 0.
func truncateToHeight(s string, maxLines int) string {
	if maxLines <= 0 {
		return s
	}
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			n++
			if n >= maxLines {
				return s[:i+1]
			}
		}
	}
	return s
}

// renderField renders a labelled single-line input with a blinking cursor
// when focused. Secret fields are masked.
func renderField(label, value, placeholder string, focused, secret bool, frame int) string {
	shown := value
	if secret {
		shown = strings.Repeat("•", utf8.RuneCountInString(value))
	}
	prompt := dimStyle.Render(label)
	if focused {
		prompt = inputPromptStyle.Render(label)
	}
	cursor := ""
	if focused && (frame/4)%2 == 0 {
		cursor = accentStyle.Render("█")
	}
	if shown == "" {
		if focused {
			return prompt + " " + cursor
		}
		return prompt + " " + inputPlaceholderStyle.Render(placeholder)
	}
	return prompt + " " + normalStyle.Render(shown) + cursor
}
