package domain

import "strings"

// InsightType buckets a free-text AI insight for display.
type InsightType string

const (
	InsightAction      InsightType = "action"
	InsightWarning     InsightType = "warning"
	InsightOpportunity InsightType = "opportunity"
	InsightSuccess     InsightType = "success"
)

// Insight is an ephemeral classification of AI output. It is regenerated
// on each call and never persisted as a stable entity.
type Insight struct {
	Type InsightType `json:"type"`
	Text string      `json:"text"`
}

// insightKeywords maps trigger phrases to insight types. Evaluated in
// order; warning outranks opportunity outranks success.
var insightKeywords = []struct {
	Type  InsightType
	Words []string
}{
	{InsightWarning, []string{"risk", "warning", "declin", "drop", "churn", "losing", "concern"}},
	{InsightOpportunity, []string{"opportunity", "potential", "untapped", "consider", "could"}},
	{InsightSuccess, []string{"strong", "success", "exceed", "outperform", "growth", "improved"}},
}

// ClassifyInsight buckets one line of AI output by keyword matching.
// Lines matching nothing default to action items.
func ClassifyInsight(text string) Insight {
	lower := strings.ToLower(text)
	for _, k := range insightKeywords {
		for _, w := range k.Words {
			if strings.Contains(lower, w) {
				return Insight{Type: k.Type, Text: text}
			}
		}
	}
	return Insight{Type: InsightAction, Text: text}
}
