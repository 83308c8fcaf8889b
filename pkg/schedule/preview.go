package schedule

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Sriram-PR/source-wizard/pkg/utils"
)

// standardParser accepts the 5-field form BuildCron emits.
var standardParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Validate reports whether expr is a well-formed 5-field cron expression.
func Validate(expr string) error {
	_, err := standardParser.Parse(toZeroSunday(expr))
	if err != nil {
		return fmt.Errorf("%w: cron %q: %w", utils.ErrParsing, expr, err)
	}
	return nil
}

// NextRuns returns the next n fire times of expr after from.
func NextRuns(expr string, from time.Time, n int) ([]time.Time, error) {
	sched, err := standardParser.Parse(toZeroSunday(expr))
	if err != nil {
		return nil, fmt.Errorf("%w: cron %q: %w", utils.ErrParsing, expr, err)
	}
	runs := make([]time.Time, 0, n)
	next := from
	for i := 0; i < n; i++ {
		next = sched.Next(next)
		if next.IsZero() {
			break
		}
		runs = append(runs, next)
	}
	return runs, nil
}

// RunsPerWeek counts fire times in the week following from.
func RunsPerWeek(expr string, from time.Time) (int, error) {
	sched, err := standardParser.Parse(toZeroSunday(expr))
	if err != nil {
		return 0, fmt.Errorf("%w: cron %q: %w", utils.ErrParsing, expr, err)
	}
	end := from.Add(7 * 24 * time.Hour)
	count := 0
	for next := sched.Next(from); !next.IsZero() && !next.After(end); next = sched.Next(next) {
		count++
	}
	return count, nil
}

// toZeroSunday rewrites a day-of-week 7 (our Sunday) to 0, which is what the parser expects.
func toZeroSunday(expr string) string {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return expr
	}
	parts := strings.Split(fields[4], ",")
	for i, p := range parts {
		lo, hi, isRange := strings.Cut(p, "-")
		switch {
		case !isRange && lo == "7":
			parts[i] = "0"
		case isRange && hi == "7" && lo != "7":
			// a-7 becomes a-6 plus Sunday
			parts[i] = lo + "-6,0"
		case isRange && lo == "7" && hi == "7":
			parts[i] = "0"
		}
	}
	fields[4] = strings.Join(parts, ",")
	return strings.Join(fields, " ")
}

// Describe renders s in words, for review summaries.
func Describe(s CronState) string {
	var every string
	switch s.Freq {
	case Every15Minutes:
		every = "every 15 minutes"
	case Every30Minutes:
		every = "every 30 minutes"
	case Every2Hours:
		every = "every 2 hours"
	default:
		every = "every hour"
	}

	days := "every day"
	if !s.AllDays() {
		var names []string
		for i, on := range s.Days {
			if on {
				names = append(names, DayNames[i])
			}
		}
		days = "on " + strings.Join(names, ", ")
	}
	return fmt.Sprintf("%s between %02d:00 and %02d:59, %s", every, s.StartHour, s.EndHour, days)
}
