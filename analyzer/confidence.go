package analyzer

import (
	"strings"

	"stock-analyzer/models"
)

// uncertaintyKeywords in the model output each lower the confidence score
var uncertaintyKeywords = []string{"uncertain", "unclear", "limited data", "insufficient"}

// DetermineConfidence scores the data quality behind an insight on a 0-10
// scale and maps it to a level: >=7 high, >=4 medium, otherwise low.
//
// The baseline is 5. More than 20 historical points adds 2; fewer than 5
// subtracts 2. More than 3 fundamentals adds 1; none subtracts 1. Hedging
// language in the model output subtracts 1.
func DetermineConfidence(snapshot *models.Snapshot, analysisText string) models.ConfidenceLevel {
	score := 5

	if len(snapshot.Historical) > 20 {
		score += 2
	} else if len(snapshot.Historical) < 5 {
		score -= 2
	}

	if len(snapshot.Fundamentals) > 3 {
		score += 1
	} else if len(snapshot.Fundamentals) == 0 {
		score -= 1
	}

	lower := strings.ToLower(analysisText)
	for _, keyword := range uncertaintyKeywords {
		if strings.Contains(lower, keyword) {
			score -= 1
			break
		}
	}

	switch {
	case score >= 7:
		return models.ConfidenceHigh
	case score >= 4:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
	}
}
