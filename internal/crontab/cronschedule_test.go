package crontab

import (
	"testing"
	"time"

	"github.com/robfig/cron/v3"
)

// Expressions both parsers read the same way: no dow 7 and no stepped
// day fields, where the star rules differ.
var sharedExpressions = []string{
	"* * * * *",
	"*/7 * * * *",
	"0 9 1,15 * 1",
	"30 4 1 1 *",
	"0 0 * * 0",
	"15 10 * * 1-5",
	"0 0 29 2 *",
	"5 4 * * sun",
	"0 22 * 1-6 mon,wed",
	"0 0 13 * 5",
	"10-20/5 3 * jan,jul *",
	"45 23 28-31 * *",
}

func TestCronScheduleAgreesWithStandardParser(t *testing.T) {
	t.Parallel()
	starts := []time.Time{
		at(2024, time.February, 27, 23, 59),
		time.Date(2024, time.June, 1, 9, 0, 30, 0, time.UTC),
		at(2025, time.December, 31, 23, 0),
	}
	for _, expr := range sharedExpressions {
		expr := expr
		t.Run(expr, func(t *testing.T) {
			t.Parallel()
			std, err := cron.ParseStandard(expr)
			if err != nil {
				t.Fatalf("ParseStandard(%q): %v", expr, err)
			}
			ours := CronSchedule(mustParseLine(t, expr+" root cmd", systemOptions()))
			for _, start := range starts {
				a, b := start, start
				for i := 0; i < 12; i++ {
					a, b = ours.Next(a), std.Next(b)
					if !a.Equal(b) {
						t.Fatalf("from %s step %d: got %s, robfig %s", start, i, a, b)
					}
				}
			}
		})
	}
}

func TestCronScheduleNever(t *testing.T) {
	t.Parallel()
	s := CronSchedule(mustParseLine(t, "0 0 30 2 * root cmd", systemOptions()))
	if got := s.Next(at(2024, time.January, 1, 0, 0)); !got.IsZero() {
		t.Fatalf("Next = %s, want zero", got)
	}
}
