package analyzer

import (
	"strings"
	"testing"
)

const sampleResponse = `**Summary:**
Apple shows strong momentum with solid fundamentals. The stock is trading near its 52-week high.

**Trend Analysis:**
The upward price movement on increasing volume suggests accumulation. Support sits around $145.

**Risk Factors:**
- Valuation is stretched relative to historical averages
- Regulatory pressure in the EU could impact services revenue
- Supply chain concentration in Asia

**Opportunities:**
- AI feature rollout could drive an upgrade supercycle
- Services margin expansion continues
`

func TestExtractSummaryAndTrend(t *testing.T) {
	summary, trend := ExtractSummaryAndTrend(sampleResponse)

	if !strings.HasPrefix(summary, "Apple shows strong momentum") {
		t.Errorf("unexpected summary: %q", summary)
	}
	if strings.Contains(summary, "**") {
		t.Errorf("summary should not contain markdown headers: %q", summary)
	}
	if !strings.HasPrefix(trend, "The upward price movement") {
		t.Errorf("unexpected trend: %q", trend)
	}
}

func TestExtractSummaryAndTrend_HeaderWithoutColon(t *testing.T) {
	text := "**Summary**\nShort and simple.\n\n**Trend Analysis**\nSideways drift.\n"
	summary, trend := ExtractSummaryAndTrend(text)

	if summary != "Short and simple." {
		t.Errorf("unexpected summary: %q", summary)
	}
	if trend != "Sideways drift." {
		t.Errorf("unexpected trend: %q", trend)
	}
}

func TestExtractSummaryAndTrend_ColonAfterBold(t *testing.T) {
	text := "**Summary**:\nColon outside the markers.\n\n**Trend Analysis**:\nStill extracted.\n"
	summary, trend := ExtractSummaryAndTrend(text)

	if summary != "Colon outside the markers." {
		t.Errorf("unexpected summary: %q", summary)
	}
	if trend != "Still extracted." {
		t.Errorf("unexpected trend: %q", trend)
	}
}

func TestExtractSummaryAndTrend_CaseInsensitiveHeaders(t *testing.T) {
	text := "**SUMMARY:**\nUpper case header.\n\n**trend analysis:**\nLower case header.\n"
	summary, trend := ExtractSummaryAndTrend(text)

	if summary != "Upper case header." {
		t.Errorf("unexpected summary: %q", summary)
	}
	if trend != "Lower case header." {
		t.Errorf("unexpected trend: %q", trend)
	}
}

func TestExtractSummaryAndTrend_LongSectionsVerbatim(t *testing.T) {
	longSummary := strings.TrimSpace(strings.Repeat("The stock keeps grinding higher on steady institutional accumulation. ", 5))
	longTrend := strings.TrimSpace(strings.Repeat("Volume expands on up days and contracts on down days, a constructive pattern. ", 4))
	if len(longSummary) <= 200 || len(longTrend) <= 200 {
		t.Fatalf("test bodies must exceed 200 characters, got %d and %d", len(longSummary), len(longTrend))
	}

	text := "**Summary:**\n" + longSummary + "\n\n**Trend Analysis:**\n" + longTrend + "\n"
	summary, trend := ExtractSummaryAndTrend(text)

	if summary != longSummary {
		t.Errorf("long summary was not extracted verbatim:\ngot  %q\nwant %q", summary, longSummary)
	}
	if trend != longTrend {
		t.Errorf("long trend was not extracted verbatim:\ngot  %q\nwant %q", trend, longTrend)
	}
}

func TestExtractSummaryAndTrend_FallbackTruncation(t *testing.T) {
	text := strings.Repeat("x", 500)
	summary, trend := ExtractSummaryAndTrend(text)

	if len([]rune(summary)) != 200 {
		t.Errorf("expected 200-rune fallback, got %d runes", len([]rune(summary)))
	}
	if trend != "" {
		t.Errorf("expected empty trend, got %q", trend)
	}
}

func TestExtractSummaryAndTrend_ShortTextVerbatim(t *testing.T) {
	text := "The model refused to answer."
	summary, _ := ExtractSummaryAndTrend(text)
	if summary != text {
		t.Errorf("short text should pass through verbatim, got %q", summary)
	}
}

func TestExtractSummaryAndTrend_SectionAtEndOfText(t *testing.T) {
	text := "**Summary:**\nFinal section with no trailing header."
	summary, _ := ExtractSummaryAndTrend(text)
	if summary != "Final section with no trailing header." {
		t.Errorf("unexpected summary: %q", summary)
	}
}

func TestExtractBulletSection(t *testing.T) {
	bullets := ExtractBulletSection(sampleResponse, "Risk Factors")

	want := []string{
		"Valuation is stretched relative to historical averages",
		"Regulatory pressure in the EU could impact services revenue",
		"Supply chain concentration in Asia",
	}
	if len(bullets) != len(want) {
		t.Fatalf("expected %d bullets, got %d: %v", len(want), len(bullets), bullets)
	}
	for i := range want {
		if bullets[i] != want[i] {
			t.Errorf("bullet %d = %q, want %q", i, bullets[i], want[i])
		}
	}
}

func TestExtractBulletSection_MixedBulletStyles(t *testing.T) {
	text := "**Opportunities:**\n- dashed item\n* starred item\n• unicode item\n1. numbered item\nprose line without a bullet\n"
	bullets := ExtractBulletSection(text, "Opportunities")

	want := []string{"dashed item", "starred item", "unicode item", "numbered item"}
	if len(bullets) != len(want) {
		t.Fatalf("expected %d bullets, got %d: %v", len(want), len(bullets), bullets)
	}
	for i := range want {
		if bullets[i] != want[i] {
			t.Errorf("bullet %d = %q, want %q", i, bullets[i], want[i])
		}
	}
}

func TestExtractBulletSection_MissingSection(t *testing.T) {
	bullets := ExtractBulletSection("no sections here at all", "Risk Factors")
	if bullets == nil {
		t.Fatal("expected empty slice, got nil")
	}
	if len(bullets) != 0 {
		t.Errorf("expected no bullets, got %v", bullets)
	}
}

func TestExtractBulletSection_StopsAtNextSection(t *testing.T) {
	bullets := ExtractBulletSection(sampleResponse, "Risk Factors")
	for _, b := range bullets {
		if strings.Contains(b, "AI feature") {
			t.Errorf("risk factors leaked into the opportunities section: %q", b)
		}
	}
}

func TestIsStaleSummary(t *testing.T) {
	tests := []struct {
		name    string
		summary string
		want    bool
	}{
		{"clean summary", "Apple shows strong momentum.", false},
		{"leading bold marker", "**Summary:** raw markdown leaked", true},
		{"exactly 200 runes, no terminal punctuation", strings.Repeat("a", 200), true},
		{"exactly 200 runes ending in period", strings.Repeat("a", 199) + ".", false},
		{"exactly 200 runes ending in question mark", strings.Repeat("a", 199) + "?", false},
		{"199 runes, no punctuation", strings.Repeat("a", 199), false},
		{"201 runes, no punctuation", strings.Repeat("a", 201), false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsStaleSummary(tt.summary); got != tt.want {
				t.Errorf("IsStaleSummary(%q...) = %v, want %v", truncateRunes(tt.summary, 20), got, tt.want)
			}
		})
	}
}
