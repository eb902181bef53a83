package domain

import "time"

// BuyerStatus enumerates the pipeline states of a buyer lead.
type BuyerStatus string

const (
	BuyerNew       BuyerStatus = "new"
	BuyerQualified BuyerStatus = "qualified"
	BuyerContacted BuyerStatus = "contacted"
	BuyerViewing   BuyerStatus = "viewing"
	BuyerOffered   BuyerStatus = "offered"
	BuyerCompleted BuyerStatus = "completed"
	BuyerLost      BuyerStatus = "lost"
)

// Buyer is a prospective property buyer sourced from a marketing campaign.
// The canonical record lives in the external tabular store; this is the
// normalized local mirror.
type Buyer struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	Email          string      `json:"email"`
	Phone          string      `json:"phone"`
	Development    string      `json:"development"`
	Budget         string      `json:"budget"`
	Timeline       string      `json:"timeline"`
	Location       string      `json:"location"`
	IntentScore    int         `json:"intent_score"`
	QualityScore   int         `json:"quality_score"`
	Status         BuyerStatus `json:"status"`
	SourceCampaign string      `json:"source_campaign"`
	CreatedAt      time.Time   `json:"created_at"`
}

// Score is the buyer's overall rating used for tier visibility gating.
// Intent and quality contribute equally.
func (b *Buyer) Score() int {
	return (b.IntentScore + b.QualityScore) / 2
}
