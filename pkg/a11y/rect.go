package a11y

import (
	"fmt"
	"regexp"
	"strconv"
)

var boundsPattern = regexp.MustCompile(`\[(-?\d+),(-?\d+)\]\[(-?\d+),(-?\d+)\]`)

// Rect is a screen rectangle. Right and Bottom are exclusive edges as on
// Android, but containment checks are inclusive.
type Rect struct {
	Left, Top, Right, Bottom int
}

// ParseBounds parses uiautomator bounds "[x1,y1][x2,y2]".
func ParseBounds(bounds string) (Rect, error) {
	m := boundsPattern.FindStringSubmatch(bounds)
	if len(m) != 5 {
		return Rect{}, fmt.Errorf("invalid bounds format: %s", bounds)
	}
	var v [4]int
	for i := range v {
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return Rect{}, fmt.Errorf("invalid bounds %s: %w", bounds, err)
		}
		v[i] = n
	}
	return Rect{Left: v[0], Top: v[1], Right: v[2], Bottom: v[3]}, nil
}

func (r Rect) Empty() bool {
	return r.Left >= r.Right || r.Top >= r.Bottom
}

func (r Rect) Width() int  { return r.Right - r.Left }
func (r Rect) Height() int { return r.Bottom - r.Top }

// Center returns the center point.
func (r Rect) Center() (int, int) {
	return r.Left + r.Width()/2, r.Top + r.Height()/2
}

// Contains reports whether other lies inside r. An empty r contains nothing.
func (r Rect) Contains(other Rect) bool {
	return !r.Empty() &&
		r.Left <= other.Left && r.Top <= other.Top &&
		r.Right >= other.Right && r.Bottom >= other.Bottom
}

func (r Rect) String() string {
	return fmt.Sprintf("[%d,%d][%d,%d]", r.Left, r.Top, r.Right, r.Bottom)
}
