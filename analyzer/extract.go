package analyzer

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// truncatedSummaryLength is the length of the verbatim-prefix fallback used
// when no Summary section header is present in a model response
const truncatedSummaryLength = 200

var (
	summaryRe = sectionRegexp("Summary")
	trendRe   = sectionRegexp("Trend Analysis")

	bulletRe   = regexp.MustCompile(`^[-*\x{2022}]\s*(.+)$`)
	numberedRe = regexp.MustCompile(`^\d+\.\s*(.+)$`)
)

// sectionRegexp matches the body of one bold-header markdown section: text
// after "**Name:**", "**Name**:" or "**Name**" up to the next bold header or
// end of input.
func sectionRegexp(name string) *regexp.Regexp {
	return regexp.MustCompile(`(?is)\*\*` + regexp.QuoteMeta(name) + `:?\*\*:?[ \t]*\n(.+?)(?:\n[ \t]*\*\*|\z)`)
}

// ExtractSummaryAndTrend pulls the Summary and Trend Analysis sections out
// of a model response. A missing Summary section falls back to the first
// 200 characters of the raw text; a missing Trend Analysis yields "".
func ExtractSummaryAndTrend(text string) (summary, trend string) {
	if m := summaryRe.FindStringSubmatch(text); m != nil {
		summary = strings.TrimSpace(m[1])
	} else {
		summary = truncateRunes(text, truncatedSummaryLength)
	}

	if m := trendRe.FindStringSubmatch(text); m != nil {
		trend = strings.TrimSpace(m[1])
	}

	return summary, trend
}

// ExtractBulletSection returns the bullet items under the named section
// header, in document order. Dashed, starred, unicode-bullet, and numbered
// items all count; other lines in the section are ignored. A missing
// section yields an empty list.
func ExtractBulletSection(text, sectionName string) []string {
	m := sectionRegexp(sectionName).FindStringSubmatch(text)
	if m == nil {
		return []string{}
	}

	bullets := []string{}
	for _, line := range strings.Split(m[1], "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if bm := bulletRe.FindStringSubmatch(line); bm != nil {
			bullets = append(bullets, strings.TrimSpace(bm[1]))
		} else if nm := numberedRe.FindStringSubmatch(line); nm != nil {
			bullets = append(bullets, strings.TrimSpace(nm[1]))
		}
	}

	return bullets
}

// IsStaleSummary reports whether a stored summary carries the signature of
// the old extraction path: either raw markdown leaking through (a leading
// bold marker) or a truncated text prefix (exactly 200 characters with no
// sentence-ending punctuation).
func IsStaleSummary(summary string) bool {
	if strings.HasPrefix(summary, "**") {
		return true
	}

	if utf8.RuneCountInString(summary) == truncatedSummaryLength {
		last, _ := utf8.DecodeLastRuneInString(summary)
		if last != '.' && last != '!' && last != '?' {
			return true
		}
	}

	return false
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
