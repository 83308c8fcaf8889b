// Package schedule converts between the structured discovery schedule and its
// 5-field cron expression.
package schedule

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Frequency is the run interval in minutes.
type Frequency int

const (
	Every15Minutes Frequency = 15
	Every30Minutes Frequency = 30
	Hourly         Frequency = 60
	Every2Hours    Frequency = 120
)

// IsValid reports whether f is one of the supported intervals.
func (f Frequency) IsValid() bool {
	switch f {
	case Every15Minutes, Every30Minutes, Hourly, Every2Hours:
		return true
	}
	return false
}

// DayNames are the labels for CronState.Days, Monday first.
var DayNames = [7]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// CronState is the structured form of a discovery schedule. Days runs Monday..Sunday.
type CronState struct {
	Days      [7]bool   `json:"days"`
	StartHour int       `json:"startHour"`
	EndHour   int       `json:"endHour"`
	Freq      Frequency `json:"freq"`
}

// DefaultCronState is every day, 00-23, hourly.
func DefaultCronState() CronState {
	return CronState{
		Days:      [7]bool{true, true, true, true, true, true, true},
		StartHour: 0,
		EndHour:   23,
		Freq:      Hourly,
	}
}

// AllDays reports whether every day is selected.
func (s CronState) AllDays() bool {
	for _, d := range s.Days {
		if !d {
			return false
		}
	}
	return true
}

func (s CronState) selectedDays() int {
	n := 0
	for _, d := range s.Days {
		if d {
			n++
		}
	}
	return n
}

// ToggleDay flips day i (0 = Monday). Turning off the last selected day is a no-op.
func (s CronState) ToggleDay(i int) CronState {
	if i < 0 || i >= len(s.Days) {
		return s
	}
	if s.Days[i] && s.selectedDays() == 1 {
		return s
	}
	s.Days[i] = !s.Days[i]
	return s
}

// WithStartHour sets the first hour, clamping EndHour up to it when needed.
func (s CronState) WithStartHour(h int) CronState {
	s.StartHour = clampHour(h)
	if s.EndHour < s.StartHour {
		s.EndHour = s.StartHour
	}
	return s
}

// WithEndHour sets the last hour. It never goes below StartHour.
func (s CronState) WithEndHour(h int) CronState {
	s.EndHour = clampHour(h)
	if s.EndHour < s.StartHour {
		s.EndHour = s.StartHour
	}
	return s
}

// WithFreq sets the interval; unsupported values are ignored.
func (s CronState) WithFreq(f Frequency) CronState {
	if f.IsValid() {
		s.Freq = f
	}
	return s
}

func clampHour(h int) int {
	switch {
	case h < 0:
		return 0
	case h > 23:
		return 23
	}
	return h
}

// BuildCron renders s as "minute hour * * day-of-week".
func BuildCron(s CronState) string {
	hours := strconv.Itoa(s.StartHour) + "-" + strconv.Itoa(s.EndHour)

	var minute string
	switch s.Freq {
	case Every15Minutes:
		minute = "*/15"
	case Every30Minutes:
		minute = "*/30"
	case Every2Hours:
		minute = "0"
		hours += "/2"
	default:
		minute = "0"
	}

	return strings.Join([]string{minute, hours, "*", "*", dayOfWeekField(s.Days)}, " ")
}

func dayOfWeekField(days [7]bool) string {
	var nums []string
	for i, on := range days {
		if on {
			nums = append(nums, strconv.Itoa(i+1))
		}
	}
	if len(nums) == len(days) || len(nums) == 0 {
		return "*"
	}
	return strings.Join(nums, ",")
}

var hourRange = regexp.MustCompile(`^(\d{1,2})(?:-(\d{1,2}))?$`)

// ParseCron is a best-effort inverse of BuildCron used to seed the editor from a stored
// expression. It is not a cron grammar: unrecognized fields fall back to defaults and
// it never fails.
func ParseCron(expr string) CronState {
	state := DefaultCronState()
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return state
	}
	minute, hour, dow := fields[0], fields[1], fields[4]

	switch minute {
	case "*/15":
		state.Freq = Every15Minutes
	case "*/30":
		state.Freq = Every30Minutes
	case "0":
		state.Freq = Hourly
	}
	if strings.HasSuffix(hour, "/2") {
		state.Freq = Every2Hours
		hour = strings.TrimSuffix(hour, "/2")
	}

	if m := hourRange.FindStringSubmatch(hour); m != nil {
		start, _ := strconv.Atoi(m[1])
		end := start
		if m[2] != "" {
			end, _ = strconv.Atoi(m[2])
		}
		if start <= 23 && end <= 23 {
			state.StartHour = start
			state.EndHour = end
			if state.EndHour < state.StartHour {
				state.EndHour = state.StartHour
			}
		}
	}

	if days, ok := parseDayOfWeek(dow); ok {
		state.Days = days
	}
	return state
}

func parseDayOfWeek(field string) ([7]bool, bool) {
	var days [7]bool
	if field == "*" {
		return DefaultCronState().Days, true
	}

	found := false
	for _, part := range strings.Split(field, ",") {
		for _, d := range parseDayList(part) {
			days[d-1] = true
			found = true
		}
	}
	return days, found
}

// parseDayList decodes "n" or "a-b" (cron numbering, 0 or 7 = Sunday) into
// 1-based Monday..Sunday day numbers.
func parseDayList(part string) []int {
	lo, hi, isRange := strings.Cut(strings.TrimSpace(part), "-")
	a, ok := dayNumber(lo)
	if !ok {
		return nil
	}
	if !isRange {
		return []int{sundayLast(a)}
	}
	b, ok := dayNumber(hi)
	if !ok || a > b {
		return nil
	}
	out := make([]int, 0, b-a+1)
	for d := a; d <= b; d++ {
		out = append(out, sundayLast(d))
	}
	return out
}

func dayNumber(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > 7 {
		return 0, false
	}
	return n, true
}

func sundayLast(n int) int {
	if n == 0 {
		return 7
	}
	return n
}

// ParseDays reads a comma-separated day list such as "Mon, tue,Wednesday".
// Names match on their first three letters; "all" or an empty list selects every day.
func ParseDays(list string) ([7]bool, error) {
	list = strings.TrimSpace(list)
	if list == "" || strings.EqualFold(list, "all") {
		return DefaultCronState().Days, nil
	}
	var days [7]bool
	for _, part := range strings.Split(list, ",") {
		name := strings.TrimSpace(part)
		if name == "" {
			continue
		}
		found := false
		for i, d := range DayNames {
			if len(name) >= 3 && strings.EqualFold(name[:3], d) {
				days[i] = true
				found = true
				break
			}
		}
		if !found {
			return days, fmt.Errorf("unknown day '%s' (use %s)", name, strings.Join(DayNames[:], ", "))
		}
	}
	return days, nil
}
