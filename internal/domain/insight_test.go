package domain

import "testing"

func TestClassifyInsight(t *testing.T) {
	tests := []struct {
		text string
		want InsightType
	}{
		{"Complaint risk is rising on the Riverside campaign", InsightWarning},
		{"Lead volume is declining week over week", InsightWarning},
		{"Untapped potential in the Manchester buyer pool", InsightOpportunity},
		{"Consider reallocating budget to Meta campaigns", InsightOpportunity},
		{"Conversion rate exceeded target this month", InsightSuccess},
		{"Strong engagement from enterprise accounts", InsightSuccess},
		{"Call the top five leads before Friday", InsightAction},
		{"", InsightAction},
	}
	for _, tt := range tests {
		got := ClassifyInsight(tt.text)
		if got.Type != tt.want {
			t.Errorf("ClassifyInsight(%q).Type = %q, want %q", tt.text, got.Type, tt.want)
		}
		if got.Text != tt.text {
			t.Errorf("ClassifyInsight(%q) mutated text to %q", tt.text, got.Text)
		}
	}
}

// Warning keywords outrank opportunity and success when a line matches more
// than one bucket.
func TestClassifyInsightPrecedence(t *testing.T) {
	got := ClassifyInsight("Strong growth but churn risk in the access tier")
	if got.Type != InsightWarning {
		t.Errorf("mixed-signal line classified as %q, want warning", got.Type)
	}
}
