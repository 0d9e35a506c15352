package datetime

import (
	"testing"
	"time"
)

func TestFormatRelative(t *testing.T) {
	now := time.Date(2026, time.June, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		t    time.Time
		want string
	}{
		{name: "moments ago", t: now.Add(-30 * time.Second), want: "just now"},
		{name: "moments ahead", t: now.Add(30 * time.Second), want: "in a moment"},
		{name: "one minute ago", t: now.Add(-90 * time.Second), want: "1 minute ago"},
		{name: "minutes ahead", t: now.Add(45 * time.Minute), want: "in 45 minutes"},
		{name: "one hour ahead", t: now.Add(time.Hour + time.Minute), want: "in 1 hour"},
		{name: "hours ago", t: now.Add(-5 * time.Hour), want: "5 hours ago"},
		{name: "tomorrow", t: now.Add(26 * time.Hour), want: "tomorrow"},
		{name: "yesterday", t: now.Add(-30 * time.Hour), want: "yesterday"},
		{name: "days ahead", t: now.Add(3 * 24 * time.Hour), want: "in 3 days"},
		{name: "weeks ago", t: now.Add(-15 * 24 * time.Hour), want: "2 weeks ago"},
		{name: "months ahead", t: now.Add(70 * 24 * time.Hour), want: "in 2 months"},
		{name: "years ago", t: now.Add(-800 * 24 * time.Hour), want: "2 years ago"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatRelative(tt.t, now); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
