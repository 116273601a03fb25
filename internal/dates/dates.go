// Package dates extracts calendar dates of varying precision from free
// text. It is pure and synchronous; the decomposer uses it for span
// detection and the timeline builder for chronological ordering.
package dates

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Precision indicates how much of a date was present in the text.
type Precision int

const (
	PrecisionYear Precision = iota
	PrecisionMonth
	PrecisionDay
)

func (p Precision) String() string {
	switch p {
	case PrecisionDay:
		return "day"
	case PrecisionMonth:
		return "month"
	default:
		return "year"
	}
}

// Date is a calendar date with explicit precision. Month and Day are zero
// when below the stated precision.
type Date struct {
	Year      int       `json:"year"`
	Month     int       `json:"month,omitempty"`
	Day       int       `json:"day,omitempty"`
	Precision Precision `json:"precision"`
}

// Before orders dates by (year, month, day); missing components sort first.
func (d Date) Before(other Date) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.Day < other.Day
}

// ISO renders the date at its own precision: 2006, 2006-01, or 2006-01-02.
func (d Date) ISO() string {
	switch d.Precision {
	case PrecisionDay:
		return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
	case PrecisionMonth:
		return fmt.Sprintf("%04d-%02d", d.Year, d.Month)
	default:
		return fmt.Sprintf("%04d", d.Year)
	}
}

var monthNumbers = map[string]int{
	"january": 1, "jan": 1,
	"february": 2, "feb": 2,
	"march": 3, "mar": 3,
	"april": 4, "apr": 4,
	"may":  5,
	"june": 6, "jun": 6,
	"july": 7, "jul": 7,
	"august": 8, "aug": 8,
	"september": 9, "sep": 9, "sept": 9,
	"october": 10, "oct": 10,
	"november": 11, "nov": 11,
	"december": 12, "dec": 12,
}

const monthAlt = `january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sept|sep|oct|nov|dec`

var (
	isoDateRe = regexp.MustCompile(`\b(\d{4})-(\d{1,2})-(\d{1,2})\b`)
	isoYMRe   = regexp.MustCompile(`\b(\d{4})-(\d{1,2})\b`)
	// "January 2, 2006" / "January 2 2006"
	monthDayYearRe = regexp.MustCompile(`(?i)\b(` + monthAlt + `)\.?\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{4})\b`)
	// "2 January 2006"
	dayMonthYearRe = regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?\s+(` + monthAlt + `)\.?,?\s+(\d{4})\b`)
	// "January 2006"
	monthYearRe = regexp.MustCompile(`(?i)\b(` + monthAlt + `)\.?,?\s+(\d{4})\b`)
	bareYearRe  = regexp.MustCompile(`\b(1\d{3}|2\d{3})\b`)
)

func validYMD(y, m, d int) bool {
	return y >= 1000 && y <= 2999 && m >= 1 && m <= 12 && d >= 1 && d <= 31
}

// Extract returns every date found in text, highest precision first for
// overlapping matches (a full date is never also counted as its bare year).
// Results keep text order within each precision tier.
func Extract(text string) []Date {
	var out []Date
	remaining := text

	consume := func(re *regexp.Regexp, build func(groups []string) (Date, bool)) {
		matches := re.FindAllStringSubmatchIndex(remaining, -1)
		if len(matches) == 0 {
			return
		}
		var masked strings.Builder
		last := 0
		for _, loc := range matches {
			groups := make([]string, 0, len(loc)/2)
			for g := 0; g < len(loc); g += 2 {
				if loc[g] < 0 {
					groups = append(groups, "")
					continue
				}
				groups = append(groups, remaining[loc[g]:loc[g+1]])
			}
			d, ok := build(groups)
			masked.WriteString(remaining[last:loc[0]])
			if ok {
				out = append(out, d)
				masked.WriteString(strings.Repeat(" ", loc[1]-loc[0]))
			} else {
				masked.WriteString(remaining[loc[0]:loc[1]])
			}
			last = loc[1]
		}
		masked.WriteString(remaining[last:])
		remaining = masked.String()
	}

	consume(isoDateRe, func(g []string) (Date, bool) {
		y, _ := strconv.Atoi(g[1])
		m, _ := strconv.Atoi(g[2])
		d, _ := strconv.Atoi(g[3])
		if !validYMD(y, m, d) {
			return Date{}, false
		}
		return Date{Year: y, Month: m, Day: d, Precision: PrecisionDay}, true
	})
	consume(monthDayYearRe, func(g []string) (Date, bool) {
		m := monthNumbers[strings.ToLower(g[1])]
		d, _ := strconv.Atoi(g[2])
		y, _ := strconv.Atoi(g[3])
		if !validYMD(y, m, d) {
			return Date{}, false
		}
		return Date{Year: y, Month: m, Day: d, Precision: PrecisionDay}, true
	})
	consume(dayMonthYearRe, func(g []string) (Date, bool) {
		d, _ := strconv.Atoi(g[1])
		m := monthNumbers[strings.ToLower(g[2])]
		y, _ := strconv.Atoi(g[3])
		if !validYMD(y, m, d) {
			return Date{}, false
		}
		return Date{Year: y, Month: m, Day: d, Precision: PrecisionDay}, true
	})
	consume(monthYearRe, func(g []string) (Date, bool) {
		m := monthNumbers[strings.ToLower(g[1])]
		y, _ := strconv.Atoi(g[2])
		if !validYMD(y, m, 1) {
			return Date{}, false
		}
		return Date{Year: y, Month: m, Precision: PrecisionMonth}, true
	})
	consume(isoYMRe, func(g []string) (Date, bool) {
		y, _ := strconv.Atoi(g[1])
		m, _ := strconv.Atoi(g[2])
		if !validYMD(y, m, 1) {
			return Date{}, false
		}
		return Date{Year: y, Month: m, Precision: PrecisionMonth}, true
	})
	consume(bareYearRe, func(g []string) (Date, bool) {
		y, _ := strconv.Atoi(g[1])
		return Date{Year: y, Precision: PrecisionYear}, true
	})

	return out
}

// First returns the earliest-appearing, highest-precision date in text.
func First(text string) (Date, bool) {
	found := Extract(text)
	if len(found) == 0 {
		return Date{}, false
	}
	return found[0], true
}

// Range returns the chronological min and max of a date set.
func Range(found []Date) (min, max Date, ok bool) {
	if len(found) == 0 {
		return Date{}, Date{}, false
	}
	min, max = found[0], found[0]
	for _, d := range found[1:] {
		if d.Before(min) {
			min = d
		}
		if max.Before(d) {
			max = d
		}
	}
	return min, max, true
}

// SpanYears is the inclusive year distance between two dates.
func SpanYears(min, max Date) int {
	span := max.Year - min.Year
	if span < 0 {
		return 0
	}
	return span
}

// ParseISO parses "2006", "2006-01", or "2006-01-02" into a Date. Anything
// else fails so callers can drop malformed bounds instead of guessing.
func ParseISO(s string) (Date, bool) {
	s = strings.TrimSpace(s)
	parts := strings.SplitN(s, "-", 3)
	switch len(parts) {
	case 1:
		y, err := strconv.Atoi(parts[0])
		if err != nil || !validYMD(y, 1, 1) {
			return Date{}, false
		}
		return Date{Year: y, Precision: PrecisionYear}, true
	case 2:
		y, err1 := strconv.Atoi(parts[0])
		m, err2 := strconv.Atoi(parts[1])
		if err1 != nil || err2 != nil || !validYMD(y, m, 1) {
			return Date{}, false
		}
		return Date{Year: y, Month: m, Precision: PrecisionMonth}, true
	case 3:
		y, err1 := strconv.Atoi(parts[0])
		m, err2 := strconv.Atoi(parts[1])
		d, err3 := strconv.Atoi(parts[2])
		if err1 != nil || err2 != nil || err3 != nil || !validYMD(y, m, d) {
			return Date{}, false
		}
		return Date{Year: y, Month: m, Day: d, Precision: PrecisionDay}, true
	}
	return Date{}, false
}
