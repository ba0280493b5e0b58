package parser

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/ukaji3/schedstruct-go/pkg/schedstruct/models"
)

// ErrInvalidTimeRange is returned when text has the shape of a time range
// but does not denote a valid one.
var ErrInvalidTimeRange = errors.New("invalid time range")

var (
	// overridePattern matches a leading "HH:MM-HH:MM " prefix in a class cell.
	overridePattern = regexp.MustCompile(`^\s*(\d{1,2})[:.](\d{2})\s*[-–—]\s*(\d{1,2})[:.](\d{2})(?:\s+|$)`)
	// slotPattern matches the time column of a data row; the dash is optional
	// since slots are often written on two lines.
	slotPattern = regexp.MustCompile(`^\s*(\d{1,2})[:.](\d{2})\s*(?:[-–—]\s*|\n\s*|\s+)(\d{1,2})[:.](\d{2})\s*$`)
)

// ParseTimeSlot parses the time column text of a data row.
// ok is false when the text is not a time slot at all.
func ParseTimeSlot(s string) (tr models.TimeRange, ok bool, err error) {
	m := slotPattern.FindStringSubmatch(s)
	if m == nil {
		return models.TimeRange{}, false, nil
	}
	tr, err = buildTimeRange(m[1], m[2], m[3], m[4])
	return tr, true, err
}

// splitTimeOverride removes a leading time range from cell text.
// ok reports whether a prefix of that shape was present.
func splitTimeOverride(s string) (tr models.TimeRange, rest string, ok bool, err error) {
	loc := overridePattern.FindStringSubmatchIndex(s)
	if loc == nil {
		return models.TimeRange{}, s, false, nil
	}
	g := func(i int) string { return s[loc[2*i]:loc[2*i+1]] }
	tr, err = buildTimeRange(g(1), g(2), g(3), g(4))
	return tr, s[loc[1]:], true, err
}

func buildTimeRange(h1, m1, h2, m2 string) (models.TimeRange, error) {
	start, err := clock(h1, m1)
	if err != nil {
		return models.TimeRange{}, err
	}
	end, err := clock(h2, m2)
	if err != nil {
		return models.TimeRange{}, err
	}
	if end <= start {
		return models.TimeRange{}, fmt.Errorf("%w: %s ends before it starts", ErrInvalidTimeRange, formatClock(start)+"-"+formatClock(end))
	}
	return models.TimeRange{Start: formatClock(start), End: formatClock(end)}, nil
}

// clock returns minutes since midnight.
func clock(h, m string) (int, error) {
	hh, _ := strconv.Atoi(h)
	mm, _ := strconv.Atoi(m)
	if hh > 23 || mm > 59 {
		return 0, fmt.Errorf("%w: %s:%s", ErrInvalidTimeRange, h, m)
	}
	return hh*60 + mm, nil
}

func formatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
