package cluster

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// endOfDay is the largest representable second-of-day, used when the close
// time is left open-ended.
const endOfDay = 24 * 60 * 60

// Window is the daily local-time interval during which non-admin actions
// are permitted. The open bound is inclusive, the close bound exclusive.
type Window struct {
	openSec  int
	closeSec int
}

// NewWindow builds a Window from "HH:MM" or "HH:MM:SS" clock strings. An
// empty pair means always open; an empty close alone means open-ended.
func NewWindow(open, close string) (Window, error) {
	w := Window{openSec: 0, closeSec: endOfDay}
	if open == "" && close == "" {
		return w, nil
	}
	if open != "" {
		sec, err := ParseClock(open)
		if err != nil {
			return Window{}, fmt.Errorf("open time: %w", err)
		}
		w.openSec = sec
	}
	if close != "" {
		sec, err := ParseClock(close)
		if err != nil {
			return Window{}, fmt.Errorf("close time: %w", err)
		}
		w.closeSec = sec
	}
	return w, nil
}

// Contains reports whether the wall-clock part of now falls inside the
// window.
func (w Window) Contains(now time.Time) bool {
	sec := now.Hour()*3600 + now.Minute()*60 + now.Second()
	return sec >= w.openSec && sec < w.closeSec
}

// String renders the window in the form shown to rejected users.
func (w Window) String() string {
	return fmt.Sprintf("%s ~ %s", formatClock(w.openSec), formatClock(w.closeSec))
}

// ParseClock converts "HH:MM" or "HH:MM:SS" to a second-of-day. "24:00" is
// accepted as the end of the day.
func ParseClock(s string) (int, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("invalid clock value %q", s)
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid clock value %q", s)
		}
		nums[i] = n
	}
	h, m, sec := nums[0], nums[1], nums[2]
	if h > 24 || m > 59 || sec > 59 || (h == 24 && (m > 0 || sec > 0)) {
		return 0, fmt.Errorf("clock value %q out of range", s)
	}
	return h*3600 + m*60 + sec, nil
}

func formatClock(sec int) string {
	return fmt.Sprintf("%02d:%02d", sec/3600, (sec%3600)/60)
}
