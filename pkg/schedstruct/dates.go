package schedstruct

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

var (
	isoDate     = regexp.MustCompile(`(\d{4})-(\d{1,2})-(\d{1,2})`)
	dottedDate  = regexp.MustCompile(`(\d{1,2})[./](\d{1,2})[./](\d{4})`)
	usShortDate = regexp.MustCompile(`(\d{1,2})-(\d{1,2})-(\d{2})`)
	dayMonth    = regexp.MustCompile(`(\d{1,2})\.(\d{1,2})\.?`)
	serialDate  = regexp.MustCompile(`^\d{5}(?:\.\d+)?$`)
)

// normalizeDate finds a date in text and returns it as YYYY-MM-DD.
// rest is the text around the date, used when the date and weekday share a
// column. ok is false when no date is recognized.
func normalizeDate(text string, academicYear int) (date, rest string, ok bool) {
	text = strings.TrimSpace(text)

	if serialDate.MatchString(text) {
		serial, _ := strconv.ParseFloat(text, 64)
		t, err := excelize.ExcelDateToTime(serial, false)
		if err == nil {
			return t.Format("2006-01-02"), "", true
		}
	}

	try := func(re *regexp.Regexp, order func(m []string) (y, mo, d int)) bool {
		loc := re.FindStringSubmatchIndex(text)
		if loc == nil {
			return false
		}
		m := make([]string, len(loc)/2)
		for i := range m {
			if loc[2*i] >= 0 {
				m[i] = text[loc[2*i]:loc[2*i+1]]
			}
		}
		y, mo, d := order(m)
		t := time.Date(y, time.Month(mo), d, 0, 0, 0, 0, time.UTC)
		if t.Year() != y || int(t.Month()) != mo || t.Day() != d {
			return false
		}
		date = t.Format("2006-01-02")
		rest = strings.TrimSpace(text[:loc[0]] + " " + text[loc[1]:])
		return true
	}

	switch {
	case try(isoDate, func(m []string) (int, int, int) { return atoi(m[1]), atoi(m[2]), atoi(m[3]) }):
	case try(dottedDate, func(m []string) (int, int, int) { return atoi(m[3]), atoi(m[2]), atoi(m[1]) }):
	case try(usShortDate, func(m []string) (int, int, int) { return 2000 + atoi(m[3]), atoi(m[1]), atoi(m[2]) }):
	case academicYear > 0 && try(dayMonth, func(m []string) (int, int, int) {
		mo := atoi(m[2])
		y := academicYear
		if mo < 9 {
			y++
		}
		return y, mo, atoi(m[1])
	}):
	default:
		return "", text, false
	}
	return date, rest, true
}

// weekdayOf returns the English weekday name of a YYYY-MM-DD date.
func weekdayOf(date string) string {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return ""
	}
	return t.Weekday().String()
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
