package airtable

import (
	"fmt"

	"github.com/naybourhood/naybourhood-server/internal/domain"
)

// The base's column names have drifted over time as marketing renamed
// fields. Each logical field keeps an ordered alias list; the first alias
// present in a record wins.
var fieldAliases = map[string][]string{
	"name":        {"Name", "Full Name", "Buyer Name", "name"},
	"email":       {"Email", "Email Address", "email"},
	"phone":       {"Phone", "Phone Number", "Mobile", "phone"},
	"development": {"Development", "Development Interest", "Project", "development"},
	"budget":      {"Budget", "Budget Range", "Price Range", "budget"},
	"timeline":    {"Timeline", "Purchase Timeline", "Timeframe", "timeline"},
	"location":    {"Location", "Preferred Location", "Area", "location"},
	"intent":      {"Intent Score", "Intent", "intent_score"},
	"quality":     {"Quality Score", "Quality", "Lead Score", "quality_score"},
	"status":      {"Status", "Lead Status", "status"},
	"sourceCamp":  {"Source Campaign", "Campaign", "Source", "source_campaign"},
}

// requiredFields must resolve for a record to normalize. Everything else
// defaults.
var requiredFields = []string{"name", "email"}

// MappingError reports a record that could not be normalized.
type MappingError struct {
	RecordID string
	Field    string
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("airtable: record %s: no value for required field %q under any known alias", e.RecordID, e.Field)
}

// lookup resolves a logical field against the alias table.
func lookup(fields map[string]any, logical string) (any, bool) {
	for _, alias := range fieldAliases[logical] {
		if v, ok := fields[alias]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// Normalize maps a raw Airtable record onto a domain.Buyer. Missing
// required fields produce a MappingError rather than silently defaulting;
// optional fields coerce leniently across the historical column shapes.
func Normalize(rec Record) (domain.Buyer, error) {
	for _, req := range requiredFields {
		if _, ok := lookup(rec.Fields, req); !ok {
			return domain.Buyer{}, &MappingError{RecordID: rec.ID, Field: req}
		}
	}

	str := func(logical string) string {
		v, _ := lookup(rec.Fields, logical)
		return CoerceString(v)
	}
	score := func(logical string) int {
		v, ok := lookup(rec.Fields, logical)
		if !ok {
			return 0
		}
		n, _ := CoerceInt(v)
		if n < 0 {
			return 0
		}
		if n > 100 {
			return 100
		}
		return n
	}

	status := domain.BuyerStatus(str("status"))
	if status == "" {
		status = domain.BuyerNew
	}

	return domain.Buyer{
		ID:             rec.ID,
		Name:           str("name"),
		Email:          str("email"),
		Phone:          str("phone"),
		Development:    str("development"),
		Budget:         str("budget"),
		Timeline:       str("timeline"),
		Location:       str("location"),
		IntentScore:    score("intent"),
		QualityScore:   score("quality"),
		Status:         status,
		SourceCampaign: str("sourceCamp"),
		CreatedAt:      rec.CreatedTime,
	}, nil
}

// NormalizeAll maps every record, collecting buyers and per-record errors
// separately so one malformed row never poisons a snapshot.
func NormalizeAll(recs []Record) ([]domain.Buyer, []error) {
	buyers := make([]domain.Buyer, 0, len(recs))
	var errs []error
	for _, rec := range recs {
		b, err := Normalize(rec)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		buyers = append(buyers, b)
	}
	return buyers, errs
}
