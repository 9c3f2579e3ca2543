package preprocess

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/IamTinashe/personal-assistant-agent/pkg/model"
)

type timePatternKind string

const (
	kindSpecificTime timePatternKind = "specific_time"
	kindHourTime     timePatternKind = "hour_time"
	kindAtTime       timePatternKind = "at_time"
	kindRelativeTime timePatternKind = "relative_time"
	kindRelativeDay  timePatternKind = "relative_day"
	kindNextPeriod   timePatternKind = "next_period"
	kindThisPeriod   timePatternKind = "this_period"
)

type timePattern struct {
	re   *regexp.Regexp
	kind timePatternKind
}

var (
	timePatterns = []timePattern{
		{regexp.MustCompile(`(?i)(\d{1,2}):(\d{2})\s*(am|pm)?`), kindSpecificTime},
		{regexp.MustCompile(`(?i)(\d{1,2})\s*(am|pm)`), kindHourTime},
		{regexp.MustCompile(`(?i)at\s+(\d{1,2})(?::(\d{2}))?\s*(am|pm)?`), kindAtTime},
		{regexp.MustCompile(`(?i)in\s+(\d+)\s*(minute|hour|day|week|month)s?`), kindRelativeTime},
		{regexp.MustCompile(`(?i)(tomorrow|today|tonight|yesterday)`), kindRelativeDay},
		{regexp.MustCompile(`(?i)next\s+(monday|tuesday|wednesday|thursday|friday|saturday|sunday|week|month)`), kindNextPeriod},
		{regexp.MustCompile(`(?i)this\s+(monday|tuesday|wednesday|thursday|friday|saturday|sunday|evening|afternoon|morning)`), kindThisPeriod},
	}

	datePattern = regexp.MustCompile(`\b(\d{1,2}[/-]\d{1,2}(?:[/-]\d{2,4})?|\d{4}[/-]\d{1,2}[/-]\d{1,2})\b`)

	durationPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)for\s+(\d+)\s*(minute|hour|day|week)s?`),
		regexp.MustCompile(`(?i)(\d+)\s*(minute|hour|day|week)s?\s+(?:long|duration)`),
	}

	quotedPattern = regexp.MustCompile(`["']([^"']+)["']`)
	numberPattern = regexp.MustCompile(`\b(\d+(?:\.\d+)?)\b`)
)

var weekdays = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// extractDatetime runs every time-pattern family over the raw text. The
// families are not mutually exclusive: one input can yield several
// datetime candidates and the caller picks the one it needs. A candidate
// that fails to parse is skipped, never reported.
func extractDatetime(text string, now time.Time) []model.ExtractedEntity {
	var entities []model.ExtractedEntity

	for _, tp := range timePatterns {
		for _, loc := range tp.re.FindAllStringSubmatchIndex(text, -1) {
			groups := submatches(text, loc)
			parsed, ok := parseTimeMatch(groups, tp.kind, now)
			if !ok {
				continue
			}
			entities = append(entities, model.ExtractedEntity{
				Type:       model.EntityDatetime,
				Value:      parsed,
				RawText:    text[loc[0]:loc[1]],
				StartPos:   loc[0],
				EndPos:     loc[1],
				Confidence: 1.0,
			})
		}
	}

	// Generic numeric-date fallback for strings like "12/25" or "2026-01-02".
	for _, loc := range datePattern.FindAllStringSubmatchIndex(text, -1) {
		raw := text[loc[0]:loc[1]]
		parsed, ok := parseNumericDate(raw, now)
		if !ok {
			continue
		}
		entities = append(entities, model.ExtractedEntity{
			Type:       model.EntityDate,
			Value:      parsed,
			RawText:    raw,
			StartPos:   loc[0],
			EndPos:     loc[1],
			Confidence: 1.0,
		})
	}

	return entities
}

// submatches extracts capture-group texts from a FindAllStringSubmatchIndex
// location slice; unmatched optional groups come back empty.
func submatches(text string, loc []int) []string {
	groups := make([]string, 0, len(loc)/2-1)
	for i := 2; i < len(loc); i += 2 {
		if loc[i] < 0 {
			groups = append(groups, "")
			continue
		}
		groups = append(groups, text[loc[i]:loc[i+1]])
	}
	return groups
}

func parseTimeMatch(groups []string, kind timePatternKind, now time.Time) (time.Time, bool) {
	switch kind {
	case kindRelativeDay:
		switch strings.ToLower(groups[0]) {
		case "today":
			return atHour(now, 9), true
		case "tonight":
			return atHour(now, 20), true
		case "tomorrow":
			return atHour(now.AddDate(0, 0, 1), 9), true
		case "yesterday":
			return atHour(now.AddDate(0, 0, -1), 9), true
		}

	case kindRelativeTime:
		amount, err := strconv.Atoi(groups[0])
		if err != nil {
			return time.Time{}, false
		}
		switch strings.ToLower(groups[1]) {
		case "minute":
			return now.Add(time.Duration(amount) * time.Minute), true
		case "hour":
			return now.Add(time.Duration(amount) * time.Hour), true
		case "day":
			return now.AddDate(0, 0, amount), true
		case "week":
			return now.AddDate(0, 0, 7*amount), true
		case "month":
			return now.AddDate(0, amount, 0), true
		}

	case kindSpecificTime, kindHourTime, kindAtTime:
		hour, err := strconv.Atoi(groups[0])
		if err != nil || hour > 23 {
			return time.Time{}, false
		}
		minute := 0
		if len(groups) > 2 && groups[1] != "" {
			if minute, err = strconv.Atoi(groups[1]); err != nil || minute > 59 {
				return time.Time{}, false
			}
		}
		meridiem := strings.ToLower(groups[len(groups)-1])
		if meridiem == "pm" && hour < 12 {
			hour += 12
		} else if meridiem == "am" && hour == 12 {
			hour = 0
		}
		result := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
		// A clock time already passed today means tomorrow.
		if result.Before(now) {
			result = result.AddDate(0, 0, 1)
		}
		return result, true

	case kindNextPeriod:
		period := strings.ToLower(groups[0])
		if target := weekdayIndex(period); target >= 0 {
			// Today excluded, so the offset is always 1-7.
			current := int(now.Weekday()+6) % 7 // Monday=0
			ahead := target - current
			if ahead <= 0 {
				ahead += 7
			}
			return atHour(now.AddDate(0, 0, ahead), 9), true
		}
		switch period {
		case "week":
			return now.AddDate(0, 0, 7), true
		case "month":
			return now.AddDate(0, 1, 0), true
		}

	case kindThisPeriod:
		period := strings.ToLower(groups[0])
		if target := weekdayIndex(period); target >= 0 {
			// Unlike "next", today counts.
			current := int(now.Weekday()+6) % 7
			ahead := target - current
			if ahead < 0 {
				ahead += 7
			}
			return atHour(now.AddDate(0, 0, ahead), 9), true
		}
		switch period {
		case "morning":
			return atHour(now, 9), true
		case "afternoon":
			return atHour(now, 15), true
		case "evening":
			return atHour(now, 18), true
		}
	}

	return time.Time{}, false
}

func weekdayIndex(name string) int {
	for i, d := range weekdays {
		if d == name {
			return i
		}
	}
	return -1
}

func atHour(t time.Time, hour int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), hour, 0, 0, 0, t.Location())
}

var numericDateLayouts = []string{
	"2006/1/2", "2006-1-2",
	"1/2/2006", "1-2-2006",
	"1/2/06", "1-2-06",
}

func parseNumericDate(raw string, now time.Time) (time.Time, bool) {
	for _, layout := range numericDateLayouts {
		if t, err := time.ParseInLocation(layout, raw, now.Location()); err == nil {
			return t, true
		}
	}
	// Month/day without a year defaults to the current year.
	for _, layout := range []string{"1/2", "1-2"} {
		if t, err := time.ParseInLocation(layout, raw, now.Location()); err == nil {
			return time.Date(now.Year(), t.Month(), t.Day(), 0, 0, 0, 0, now.Location()), true
		}
	}
	return time.Time{}, false
}

// extractDuration finds spans like "for 2 hours". Duration is a separate
// entity type from datetime and the two do not interact.
func extractDuration(text string) []model.ExtractedEntity {
	var entities []model.ExtractedEntity

	for _, re := range durationPatterns {
		for _, loc := range re.FindAllStringSubmatchIndex(text, -1) {
			groups := submatches(text, loc)
			amount, err := strconv.Atoi(groups[0])
			if err != nil {
				continue
			}
			var d time.Duration
			switch strings.ToLower(groups[1]) {
			case "minute":
				d = time.Duration(amount) * time.Minute
			case "hour":
				d = time.Duration(amount) * time.Hour
			case "day":
				d = time.Duration(amount) * 24 * time.Hour
			case "week":
				d = time.Duration(amount) * 7 * 24 * time.Hour
			default:
				continue
			}
			entities = append(entities, model.ExtractedEntity{
				Type:       model.EntityDuration,
				Value:      d,
				RawText:    text[loc[0]:loc[1]],
				StartPos:   loc[0],
				EndPos:     loc[1],
				Confidence: 1.0,
			})
		}
	}

	return entities
}

// extractQuoted matches both single and double quotes and yields the
// unquoted inner text.
func extractQuoted(text string) []model.ExtractedEntity {
	var entities []model.ExtractedEntity

	for _, loc := range quotedPattern.FindAllStringSubmatchIndex(text, -1) {
		entities = append(entities, model.ExtractedEntity{
			Type:       model.EntityQuotedText,
			Value:      text[loc[2]:loc[3]],
			RawText:    text[loc[0]:loc[1]],
			StartPos:   loc[0],
			EndPos:     loc[1],
			Confidence: 1.0,
		})
	}

	return entities
}

var delimiterPattern = regexp.MustCompile(`[:\-/]`)

// extractNumbers finds standalone integers and decimals. Numbers embedded
// in colon/dash/slash contexts are pieces of times or dates already
// captured by other extractors and are suppressed here.
func extractNumbers(text string) []model.ExtractedEntity {
	var entities []model.ExtractedEntity

	for _, loc := range numberPattern.FindAllStringSubmatchIndex(text, -1) {
		start, end := loc[0], loc[1]
		windowStart := max(0, start-10)
		windowEnd := min(len(text), end+10)
		if delimiterPattern.MatchString(text[windowStart:windowEnd]) {
			continue
		}

		raw := text[start:end]
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		var value any = f
		if f == float64(int(f)) {
			value = int(f)
		}

		entities = append(entities, model.ExtractedEntity{
			Type:       model.EntityNumber,
			Value:      value,
			RawText:    raw,
			StartPos:   start,
			EndPos:     end,
			Confidence: 1.0,
		})
	}

	return entities
}
