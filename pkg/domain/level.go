package domain

import (
	"fmt"
	"strconv"
)

// LevelThresholds holds the minimum points for each level; index i is level
// i+1. The last entry is only the ceiling of the top level's progress bar.
var LevelThresholds = []int{0, 100, 500, 1000, 2500, 5000, 10000, 20000, 50000, 100000, 200000}

// MaxLevel is the highest reachable level.
const MaxLevel = 10

// CalculateLevel returns the largest level whose threshold is <= points,
// capped at MaxLevel. Negative balances are treated as zero.
func CalculateLevel(points int) int {
	level := 1
	for i, threshold := range LevelThresholds[:MaxLevel] {
		if points >= threshold {
			level = i + 1
		}
	}
	return level
}

// PointsForLevel is the points needed to reach level. Levels outside the
// table clamp to the nearest end, so PointsForLevel(MaxLevel+1) is the top
// level's ceiling.
func PointsForLevel(level int) int {
	switch {
	case level <= 1:
		return 0
	case level > len(LevelThresholds):
		return LevelThresholds[len(LevelThresholds)-1]
	}
	return LevelThresholds[level-1]
}

// LevelProgress is the percentage (0..100) travelled from the current
// level's threshold towards the next one. MaxLevel runs towards its ceiling.
func LevelProgress(points int) int {
	level := CalculateLevel(points)
	floor := PointsForLevel(level)
	ceil := PointsForLevel(level + 1)
	if points >= ceil {
		return 100
	}
	pct := (points - floor) * 100 / (ceil - floor)
	return max(0, min(100, pct))
}

// PointsToNextLevel is how many more points the next level (or the top
// level's ceiling) needs, 0 once it is reached.
func PointsToNextLevel(points int) int {
	return max(0, PointsForLevel(CalculateLevel(points)+1)-points)
}

// FormatNumber abbreviates large counts: 1.2M, 3.4K, otherwise comma-grouped digits.
func FormatNumber(n int) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	}
	return groupDigits(n)
}

// FormatPoints renders a balance the way the sidebar shows it, e.g. "150 P".
func FormatPoints(points int) string {
	return FormatNumber(points) + " P"
}

func groupDigits(n int) string {
	s := strconv.Itoa(n)
	neg := false
	if n < 0 {
		neg = true
		s = s[1:]
	}
	var out []byte
	for i := range len(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, s[i])
	}
	if neg {
		return "-" + string(out)
	}
	return string(out)
}
