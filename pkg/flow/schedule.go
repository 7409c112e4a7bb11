package flow

import (
	"fmt"
	"strconv"
	"strings"
)

var weekdays = map[string]bool{
	"sun": true, "mon": true, "tue": true, "wed": true,
	"thu": true, "fri": true, "sat": true,
}

// CronSpec normalizes the trigger to a canonical five-field cron expression
// (minute hour dom month dow). Daily "HH:MM" becomes "M H * * *", weekly
// "mon,tue@HH:MM" becomes "M H * * mon,tue", and cron expressions pass
// through after a field-count check.
func (t *ScheduleTrigger) CronSpec() (string, error) {
	switch t.Type {
	case ScheduleDaily:
		hour, minute, err := parseClock(t.Expression)
		if err != nil {
			return "", fmt.Errorf("daily schedule %q: %w", t.Expression, err)
		}
		return fmt.Sprintf("%d %d * * *", minute, hour), nil

	case ScheduleWeekly:
		days, clock, ok := strings.Cut(t.Expression, "@")
		if !ok {
			return "", fmt.Errorf("weekly schedule %q: want \"days@HH:MM\"", t.Expression)
		}
		dayList, err := parseWeekdays(days)
		if err != nil {
			return "", fmt.Errorf("weekly schedule %q: %w", t.Expression, err)
		}
		hour, minute, err := parseClock(clock)
		if err != nil {
			return "", fmt.Errorf("weekly schedule %q: %w", t.Expression, err)
		}
		return fmt.Sprintf("%d %d * * %s", minute, hour, dayList), nil

	case ScheduleCron:
		expr := strings.TrimSpace(t.Expression)
		if fields := strings.Fields(expr); len(fields) != 5 {
			return "", fmt.Errorf("cron schedule %q: want 5 fields, got %d", t.Expression, len(strings.Fields(expr)))
		}
		return expr, nil
	}
	return "", fmt.Errorf("unknown schedule type %q", t.Type)
}

// parseClock parses a "HH:MM" wall-clock time. Single-digit hours are
// accepted ("9:30").
func parseClock(expr string) (hour, minute int, err error) {
	h, m, ok := strings.Cut(strings.TrimSpace(expr), ":")
	if !ok {
		return 0, 0, fmt.Errorf("invalid time %q: want HH:MM", expr)
	}
	hour, err = strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour %q", h)
	}
	minute, err = strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute %q", m)
	}
	return hour, minute, nil
}

// parseWeekdays validates a comma-separated list of three-letter day names
// and returns it normalized to lowercase.
func parseWeekdays(days string) (string, error) {
	parts := strings.Split(days, ",")
	if len(parts) == 0 {
		return "", fmt.Errorf("no weekdays given")
	}
	normalized := make([]string, 0, len(parts))
	for _, p := range parts {
		day := strings.ToLower(strings.TrimSpace(p))
		if !weekdays[day] {
			return "", fmt.Errorf("unknown weekday %q", p)
		}
		normalized = append(normalized, day)
	}
	return strings.Join(normalized, ","), nil
}
