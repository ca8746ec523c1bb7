package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/fastygo/taskscan/domain"
)

// Due-date resolution. A "by/due/before/no later than" phrase is located in
// the candidate line plus its context, then resolved against a fixed pattern
// order; the first successful pattern wins.

var (
	reDuePhrase  = regexp.MustCompile(`(?i)\b(?:by|due|before|no\s+later\s+than)\s+[\w/\-,\s]{2,35}`)
	reEndOfDay   = regexp.MustCompile(`\b(?:eod|cob|end\s+of\s+(?:the\s+)?day)\b`)
	reEndOfWeek  = regexp.MustCompile(`\bend\s+of\s+(?:the\s+)?week\b`)
	reEndOfMonth = regexp.MustCompile(`\bend\s+of\s+(?:the\s+)?month\b`)
	reByWeekday  = regexp.MustCompile(`\b(?:by|on|due)\s+(?:next\s+)?(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)
	reMonthDay   = regexp.MustCompile(`\b(january|february|march|april|may|june|july|august|september|october|november|december` +
		`|jan|feb|mar|apr|jun|jul|aug|sep|oct|nov|dec)` +
		`\s+(\d{1,2})(?:st|nd|rd|th)?\s*(?:,?\s*(\d{4}))?\b`)
	reISODate   = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	reSlashDate = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})(?:/(\d{2,4}))?\b`)
)

var monthsByName = map[string]time.Month{
	"january": time.January, "february": time.February, "march": time.March,
	"april": time.April, "may": time.May, "june": time.June, "july": time.July,
	"august": time.August, "september": time.September, "october": time.October,
	"november": time.November, "december": time.December,
	"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
	"jun": time.June, "jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

var weekdaysByName = map[string]time.Weekday{
	"monday": time.Monday, "tuesday": time.Tuesday, "wednesday": time.Wednesday,
	"thursday": time.Thursday, "friday": time.Friday, "saturday": time.Saturday,
	"sunday": time.Sunday,
}

// extractDue finds a due phrase in the sentence and resolves it to an ISO
// date, or returns "" when no deadline is expressed.
func extractDue(sentence string, today time.Time) string {
	phrase := reDuePhrase.FindString(sentence)
	if phrase == "" {
		return ""
	}
	return parseDate(phrase, today)
}

func parseDate(text string, today time.Time) string {
	t := strings.ToLower(text)

	if reEndOfDay.MatchString(t) {
		return isoDate(today)
	}
	if reEndOfWeek.MatchString(t) {
		// Upcoming Friday; a full week out when today already is Friday.
		diff := daysUntil(today.Weekday(), time.Friday)
		if diff == 0 {
			diff = 7
		}
		return isoDate(today.AddDate(0, 0, diff))
	}
	if reEndOfMonth.MatchString(t) {
		last := time.Date(today.Year(), today.Month()+1, 0, 0, 0, 0, 0, today.Location())
		return isoDate(last)
	}
	if m := reByWeekday.FindStringSubmatch(t); m != nil {
		return isoDate(nextWeekday(today, weekdaysByName[m[1]]))
	}
	if m := reMonthDay.FindStringSubmatch(t); m != nil {
		month := monthsByName[m[1]]
		day, _ := strconv.Atoi(m[2])
		year := today.Year()
		if m[3] != "" {
			year, _ = strconv.Atoi(m[3])
		}
		if d, ok := makeDate(year, month, day, today.Location()); ok {
			// A bare month+day already in the past means next year.
			if d.Before(dateOnly(today)) {
				if rolled, ok := makeDate(today.Year()+1, month, day, today.Location()); ok {
					return isoDate(rolled)
				}
			}
			return isoDate(d)
		}
	}
	if m := reISODate.FindStringSubmatch(t); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		if d, ok := makeDate(year, time.Month(month), day, today.Location()); ok {
			return isoDate(d)
		}
	}
	if m := reSlashDate.FindStringSubmatch(t); m != nil {
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		year := today.Year()
		explicit := m[3] != ""
		if explicit {
			year, _ = strconv.Atoi(m[3])
			if year < 100 {
				year += 2000
			}
		}
		if d, ok := makeDate(year, time.Month(month), day, today.Location()); ok {
			if !explicit && d.Before(dateOnly(today)) {
				if rolled, ok := makeDate(year+1, time.Month(month), day, today.Location()); ok {
					return isoDate(rolled)
				}
			}
			return isoDate(d)
		}
	}
	return ""
}

// nextWeekday returns the next occurrence of target strictly after today,
// wrapping a full week when today already falls on target.
func nextWeekday(today time.Time, target time.Weekday) time.Time {
	diff := daysUntil(today.Weekday(), target)
	if diff == 0 {
		diff = 7
	}
	return today.AddDate(0, 0, diff)
}

func daysUntil(from, to time.Weekday) int {
	return (int(to) - int(from) + 7) % 7
}

// makeDate validates the calendar date; Feb 30 and friends are rejected so a
// later pattern can still win.
func makeDate(year int, month time.Month, day int, loc *time.Location) (time.Time, bool) {
	if day < 1 || day > 31 {
		return time.Time{}, false
	}
	d := time.Date(year, month, day, 0, 0, 0, 0, loc)
	if d.Year() != year || d.Month() != month || d.Day() != day {
		return time.Time{}, false
	}
	return d, true
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func isoDate(t time.Time) string {
	return t.Format(domain.DateLayout)
}
