// Package ui holds the presentation vocabulary shared by the services and
// the terminal front-end.
package ui

// ToastKind selects a toast's color and icon.
type ToastKind string

// Toast kinds.
const (
	ToastInfo    ToastKind = "info"
	ToastSuccess ToastKind = "success"
	ToastWarning ToastKind = "warning"
	ToastError   ToastKind = "error"
	ToastPoints  ToastKind = "points"
	ToastLevel   ToastKind = "level"
)

// Toast is a transient message.
type Toast struct {
	Kind    ToastKind
	Title   string
	Message string
}

// Text joins title and message the way toasts display them.
func (t Toast) Text() string {
	switch {
	case t.Title == "":
		return t.Message
	case t.Message == "":
		return t.Title
	}
	return t.Title + ": " + t.Message
}

// Pages the services can navigate to.
const (
	PageHome          = "home"
	PageLogin         = "login"
	PageNotifications = "notifications"
	PageBoard         = "board"
)
