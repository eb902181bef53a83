// Package tier defines the subscription tiers and the access-control and
// quota rules derived from them. Everything here is a pure lookup against
// a closed enum: no external input affects a gating decision besides the
// tier values themselves.
package tier

// Tier is a subscription level. Tiers are totally ordered:
// access < growth < enterprise.
type Tier string

const (
	Access     Tier = "access"
	Growth     Tier = "growth"
	Enterprise Tier = "enterprise"
)

// order fixes the tier ranking. Feature access is monotonic in rank.
var order = []Tier{Access, Growth, Enterprise}

// UnlimitedContacts is the quota sentinel for tiers with no monthly cap.
const UnlimitedContacts = -1

// Config holds the feature flags, quotas, and pricing for one tier.
type Config struct {
	Tier                Tier    `json:"tier"`
	DisplayName         string  `json:"display_name"`
	MonthlyPriceGBP     float64 `json:"monthly_price_gbp"`
	ContactQuota        int     `json:"contact_quota"` // UnlimitedContacts means no cap
	MinVisibleScore     int     `json:"min_visible_score"`
	InsightLevel        string  `json:"insight_level"`
	SupportLevel        string  `json:"support_level"`
	FirstRefusal        bool    `json:"first_refusal"`
	PredictiveAnalytics bool    `json:"predictive_analytics"`
	PrioritySupport     bool    `json:"priority_support"`
	APIAccess           bool    `json:"api_access"`
}

// configs is the static tier table. There is no failure mode: every valid
// Tier has an entry, and GetConfig falls back to Access for anything else.
var configs = map[Tier]Config{
	Access: {
		Tier:            Access,
		DisplayName:     "Access",
		MonthlyPriceGBP: 199,
		ContactQuota:    25,
		MinVisibleScore: 60,
		InsightLevel:    "basic",
		SupportLevel:    "email",
	},
	Growth: {
		Tier:                Growth,
		DisplayName:         "Growth",
		MonthlyPriceGBP:     499,
		ContactQuota:        100,
		MinVisibleScore:     40,
		InsightLevel:        "advanced",
		SupportLevel:        "priority",
		PredictiveAnalytics: true,
		PrioritySupport:     true,
	},
	Enterprise: {
		Tier:                Enterprise,
		DisplayName:         "Enterprise",
		MonthlyPriceGBP:     1499,
		ContactQuota:        UnlimitedContacts,
		MinVisibleScore:     0,
		InsightLevel:        "full",
		SupportLevel:        "dedicated",
		FirstRefusal:        true,
		PredictiveAnalytics: true,
		PrioritySupport:     true,
		APIAccess:           true,
	},
}

// Valid reports whether t is a known tier.
func Valid(t Tier) bool {
	_, ok := configs[t]
	return ok
}

// GetConfig returns the configuration for a tier. Unknown values return
// the Access config so a corrupt subscription row degrades to the lowest
// tier rather than failing open.
func GetConfig(t Tier) Config {
	if c, ok := configs[t]; ok {
		return c
	}
	return configs[Access]
}

// rank returns the tier's position in the total order. Unknown tiers rank
// below access.
func rank(t Tier) int {
	for i, o := range order {
		if o == t {
			return i
		}
	}
	return -1
}

// CanAccessFeature reports whether a user at the current tier may use a
// feature requiring the given tier.
func CanAccessFeature(current, required Tier) bool {
	return rank(current) >= rank(required)
}

// RequiredFor returns the lowest tier whose configuration enables the
// feature selected by pick. ok is false when no tier enables it.
func RequiredFor(pick func(Config) bool) (required Tier, ok bool) {
	for _, t := range order {
		if pick(configs[t]) {
			return t, true
		}
	}
	return "", false
}

// UpgradePath returns the next tier up, or "" at the top of the ladder.
func UpgradePath(current Tier) Tier {
	r := rank(current)
	if r < 0 || r >= len(order)-1 {
		return ""
	}
	return order[r+1]
}

// ContactsRemaining computes the remaining monthly contact allowance.
// Returns UnlimitedContacts when the quota is unlimited, and never goes
// negative even when used exceeds the quota.
func ContactsRemaining(quota, used int) int {
	if quota == UnlimitedContacts {
		return UnlimitedContacts
	}
	if used >= quota {
		return 0
	}
	return quota - used
}

// VisibleScoreFloor returns the minimum buyer score visible to a tier.
func VisibleScoreFloor(t Tier) int {
	return GetConfig(t).MinVisibleScore
}
