// Package deadline extracts an optional due time from free task text.
package deadline

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var monthNumbers = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
	"may": time.May, "jun": time.June, "jul": time.July, "aug": time.August,
	"sep": time.September, "oct": time.October, "nov": time.November, "dec": time.December,
}

var (
	monthDayPattern = regexp.MustCompile(`(jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:tember)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)\s+(\d{1,2})(?:,?\s*(\d{4}))?`)
	isoDatePattern  = regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})`)
)

// Time patterns are tried in order; the first one that matches decides the hour.
// Group 1 is always the hour. Minute and meridiem groups are located by content.
var timePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\d{1,2}):(\d{2})\s*(am|pm|a\.m\.|p\.m\.)?`),
	regexp.MustCompile(`(?:at|by|@|lúc|vào)\s*(\d{1,2})(?::(\d{2}))?\s*(am|pm|a\.m\.|p\.m\.|giờ|h)?`),
	regexp.MustCompile(`(\d{1,2})\s*(am|pm|a\.m\.|p\.m\.)`),
	regexp.MustCompile(`(\d{1,2})h(\d{2})?`),
}

var tomorrowWords = []string{"tomorrow", "ngày mai"}

// Parse returns the deadline described by text relative to now, or nil when
// no time of day can be found. A date without a time yields nil.
func Parse(text string, now time.Time) *time.Time {
	lower := strings.ToLower(text)
	loc := now.Location()

	year, month, day := now.Date()
	explicitDate := false

	if m := monthDayPattern.FindStringSubmatch(lower); m != nil {
		explicitDate = true
		mon := monthNumbers[m[1][:3]]
		d, _ := strconv.Atoi(m[2])
		y := year
		if m[3] != "" {
			y, _ = strconv.Atoi(m[3])
		}
		if validDate(y, mon, d) {
			year, month, day = y, mon, d
		}
	}

	if m := isoDatePattern.FindStringSubmatch(text); m != nil {
		explicitDate = true
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		d, _ := strconv.Atoi(m[3])
		if validDate(y, time.Month(mo), d) {
			year, month, day = y, time.Month(mo), d
		}
	}

	for _, word := range tomorrowWords {
		if strings.Contains(lower, word) {
			year, month, day = now.AddDate(0, 0, 1).Date()
			break
		}
	}

	hour, minute, ok := parseClock(lower)
	if !ok {
		return nil
	}

	due := time.Date(year, month, day, hour, minute, 0, 0, loc)
	if due.Before(now) && !explicitDate {
		due = due.AddDate(0, 0, 1)
	}
	return &due
}

func parseClock(lower string) (hour, minute int, ok bool) {
	for _, pattern := range timePatterns {
		m := pattern.FindStringSubmatch(lower)
		if m == nil {
			continue
		}
		hour, _ = strconv.Atoi(m[1])
		if len(m) > 2 && isDigits(m[2]) {
			minute, _ = strconv.Atoi(m[2])
		}

		meridiem := ""
		for _, g := range m[1:] {
			norm := strings.ReplaceAll(g, ".", "")
			if norm == "am" || norm == "pm" {
				meridiem = norm
				break
			}
		}

		switch {
		case meridiem == "pm" && hour != 12:
			hour += 12
		case meridiem == "am" && hour == 12:
			hour = 0
		case meridiem == "" && hour >= 1 && hour < 7:
			// Bare 1-6 reads as an afternoon meeting time.
			hour += 12
		}

		if hour > 23 || minute > 59 {
			return 0, 0, false
		}
		return hour, minute, true
	}
	return 0, 0, false
}

func validDate(year int, month time.Month, day int) bool {
	if month < time.January || month > time.December || day < 1 {
		return false
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return t.Day() == day && t.Month() == month
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
