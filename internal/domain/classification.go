package domain

// LeadClass is the discrete temperature label derived from a buyer's
// intent and quality scores.
type LeadClass string

const (
	LeadHot     LeadClass = "hot"
	LeadWarm    LeadClass = "warm"
	LeadNurture LeadClass = "nurture"
	LeadCold    LeadClass = "cold"
)

// ClassMeta carries the display metadata for a lead class.
type ClassMeta struct {
	Label  string `json:"label"`
	Colour string `json:"colour"`
	Icon   string `json:"icon"`
}

// classBand defines one classification band. A band matches when
// intent >= MinIntent AND quality >= MinQuality. Bands are evaluated
// hottest-first; the first match wins. The final band has zero floors,
// so every score pair lands somewhere.
type classBand struct {
	Class      LeadClass
	MinIntent  int
	MinQuality int
}

// classBands is the single source of truth for classification thresholds.
var classBands = []classBand{
	{LeadHot, 80, 70},
	{LeadWarm, 60, 50},
	{LeadNurture, 40, 30},
	{LeadCold, 0, 0},
}

var classMeta = map[LeadClass]ClassMeta{
	LeadHot:     {Label: "Hot Lead", Colour: "#ef4444", Icon: "flame"},
	LeadWarm:    {Label: "Warm Lead", Colour: "#f97316", Icon: "sun"},
	LeadNurture: {Label: "Nurture", Colour: "#3b82f6", Icon: "sprout"},
	LeadCold:    {Label: "Cold Lead", Colour: "#64748b", Icon: "snowflake"},
}

// Classify maps an (intent, quality) score pair to a lead class.
// It is total over [0,100]x[0,100]: out-of-range inputs are clamped
// before comparison, so every pair yields exactly one class.
func Classify(intent, quality int) LeadClass {
	intent = clampScore(intent)
	quality = clampScore(quality)
	for _, b := range classBands {
		if intent >= b.MinIntent && quality >= b.MinQuality {
			return b.Class
		}
	}
	// Unreachable: the cold band has zero floors.
	return LeadCold
}

// ClassifyBuyer classifies a buyer using its stored scores.
func ClassifyBuyer(b *Buyer) LeadClass {
	return Classify(b.IntentScore, b.QualityScore)
}

// MetaFor returns the display metadata for a lead class. Unknown classes
// fall back to cold metadata.
func MetaFor(c LeadClass) ClassMeta {
	if m, ok := classMeta[c]; ok {
		return m
	}
	return classMeta[LeadCold]
}

func clampScore(s int) int {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}
