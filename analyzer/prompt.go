package analyzer

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"stock-analyzer/models"
)

// SystemPrompt frames the model as a financial analyst for every request
const SystemPrompt = `You are an expert financial analyst with deep knowledge of stock markets,
technical analysis, and fundamental analysis. Your role is to provide clear, actionable insights
based on stock data while being transparent about risks and opportunities.

Guidelines:
- Provide concise, data-driven analysis
- Clearly separate facts from interpretation
- Highlight both risks and opportunities
- Use bullet points for clarity
- Be honest about uncertainties`

const analysisPromptTemplate = `Analyze the following stock data and provide investment insights:

**Stock Symbol**: %s
**Current Price**: $%s
**Price Change**: %+.2f%%
**Volume**: %s

**Recent Price History**:
%s

**Fundamentals**:
%s

Please provide:

1. **Summary**: A brief 2-3 sentence overview of the stock's current status

2. **Trend Analysis**: Analyze the price movement and volume patterns. What do they indicate?

3. **Risk Factors**: List 2-4 specific risks or concerns (use bullet points starting with "- ")

4. **Opportunities**: List 2-4 potential opportunities or positive catalysts (use bullet points starting with "- ")

Format your response with clear section headers using **bold** markdown.
`

// BuildPrompt renders the analysis prompt from a market data snapshot
func BuildPrompt(snapshot *models.Snapshot) string {
	return fmt.Sprintf(analysisPromptTemplate,
		snapshot.Symbol,
		snapshot.CurrentPrice.StringFixed(2),
		snapshot.PriceChangePercent,
		groupDigits(snapshot.Volume),
		formatPriceHistory(snapshot.Historical),
		formatFundamentals(snapshot.Fundamentals),
	)
}

// formatPriceHistory renders the last five closes, oldest first
func formatPriceHistory(points []models.PricePoint) string {
	if len(points) == 0 {
		return "  No historical data available"
	}

	recent := points
	if len(recent) > 5 {
		recent = recent[len(recent)-5:]
	}

	lines := make([]string, 0, len(recent))
	for _, p := range recent {
		line := fmt.Sprintf("  %s: $%s (Volume: %s)",
			p.Date.Format("2006-01-02"), p.Close.StringFixed(2), groupDigits(p.Volume))
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// formatFundamentals renders fundamentals as indented key-value lines in
// stable key order
func formatFundamentals(fundamentals map[string]any) string {
	if len(fundamentals) == 0 {
		return "  No fundamental data available"
	}

	keys := make([]string, 0, len(fundamentals))
	for k := range fundamentals {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("  %s: %v", k, fundamentals[k]))
	}
	return strings.Join(lines, "\n")
}

// groupDigits formats an integer with thousands separators (1234567 -> 1,234,567)
func groupDigits(n int64) string {
	s := strconv.FormatInt(n, 10)

	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}

	var b strings.Builder
	for i, digit := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(digit)
	}

	if neg {
		return "-" + b.String()
	}
	return b.String()
}
