// Package datetime renders timestamps as human-friendly relative phrases for
// reply and notification text.
package datetime

import (
	"fmt"
	"time"
)

type unit struct {
	span time.Duration
	name string
}

var units = []unit{
	{time.Minute, "minute"},
	{time.Hour, "hour"},
	{24 * time.Hour, "day"},
	{7 * 24 * time.Hour, "week"},
	{30 * 24 * time.Hour, "month"},
	{365 * 24 * time.Hour, "year"},
}

// FormatRelative describes t relative to now: "in 2 hours", "3 days ago",
// "tomorrow". Sub-minute differences collapse to "just now" / "in a moment".
func FormatRelative(t, now time.Time) string {
	diff := t.Sub(now)
	future := diff >= 0
	if !future {
		diff = -diff
	}

	if diff < time.Minute {
		if future {
			return "in a moment"
		}
		return "just now"
	}

	name, count := largestUnit(diff)
	switch {
	case name == "day" && count == 1 && future:
		return "tomorrow"
	case name == "day" && count == 1:
		return "yesterday"
	case future:
		return fmt.Sprintf("in %s", plural(count, name))
	default:
		return fmt.Sprintf("%s ago", plural(count, name))
	}
}

func largestUnit(diff time.Duration) (string, int64) {
	chosen := units[0]
	for _, u := range units[1:] {
		if diff < u.span {
			break
		}
		chosen = u
	}
	return chosen.name, int64(diff / chosen.span)
}

func plural(count int64, name string) string {
	if count == 1 {
		return fmt.Sprintf("1 %s", name)
	}
	return fmt.Sprintf("%d %ss", count, name)
}
