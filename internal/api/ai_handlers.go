package api

import (
	"errors"
	"net/http"

	"github.com/naybourhood/naybourhood-server/internal/ai"
	"github.com/naybourhood/naybourhood-server/internal/pkg/httputil"
	"github.com/naybourhood/naybourhood-server/internal/tier"
)

// aiAvailable gates the AI routes when no provider is configured.
func (h *Handlers) aiAvailable(w http.ResponseWriter) bool {
	if h.aiService == nil {
		httputil.Error(w, http.StatusServiceUnavailable, "ai features are disabled")
		return false
	}
	return true
}

type scoreLeadRequest struct {
	BuyerID string `json:"buyer_id"`
	ai.LeadInput
}

// ScoreLead scores a lead. Callers either pass a buyer_id to score a
// collected record or inline lead fields.
func (h *Handlers) ScoreLead(w http.ResponseWriter, r *http.Request) {
	if !h.aiAvailable(w) {
		return
	}
	var req scoreLeadRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	input := req.LeadInput
	if req.BuyerID != "" {
		buyer, ok := h.buyers.Buyer(req.BuyerID)
		if !ok {
			httputil.NotFound(w, "buyer not found")
			return
		}
		input = ai.LeadInput{
			Name:        buyer.Name,
			Development: buyer.Development,
			Budget:      buyer.Budget,
			Timeline:    buyer.Timeline,
			Location:    buyer.Location,
			Source:      buyer.SourceCampaign,
		}
	}

	result, err := h.aiService.ScoreLead(r.Context(), input)
	if err != nil {
		h.writeAIError(w, err)
		return
	}
	httputil.OK(w, result)
}

type masterAgentRequest struct {
	Query   string `json:"query"`
	Context string `json:"context"`
}

// MasterAgent answers a free-form portfolio question.
func (h *Handlers) MasterAgent(w http.ResponseWriter, r *http.Request) {
	if !h.aiAvailable(w) {
		return
	}
	var req masterAgentRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	result, err := h.aiService.Ask(r.Context(), req.Query, req.Context)
	if err != nil {
		h.writeAIError(w, err)
		return
	}
	httputil.OK(w, result)
}

type analyzeDataRequest struct {
	Rows []string `json:"rows"`
}

// AnalyzeData summarizes campaign rows, falling back to a local
// summary when the model is unavailable.
func (h *Handlers) AnalyzeData(w http.ResponseWriter, r *http.Request) {
	if !h.aiAvailable(w) {
		return
	}
	var req analyzeDataRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	result, err := h.aiService.AnalyzeData(r.Context(), req.Rows)
	if err != nil {
		h.writeAIError(w, err)
		return
	}
	httputil.OK(w, result)
}

type recommendCitiesRequest struct {
	Budget       string `json:"budget"`
	Region       string `json:"region"`
	PropertyType string `json:"property_type"`
	Max          int    `json:"max"`
}

// RecommendCities suggests investment cities for a budget. Predictive
// analytics is a paid-tier capability.
func (h *Handlers) RecommendCities(w http.ResponseWriter, r *http.Request) {
	if !h.aiAvailable(w) {
		return
	}
	callerTier := h.tierOrDefault(r, caller(r).UserID)
	required, ok := tier.RequiredFor(func(c tier.Config) bool { return c.PredictiveAnalytics })
	if !ok || !tier.CanAccessFeature(callerTier, required) {
		httputil.TierGated(w, "predictive analytics requires a higher tier", string(tier.UpgradePath(callerTier)))
		return
	}
	var req recommendCitiesRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	cities, err := h.aiService.RecommendCities(r.Context(), req.Budget, req.Region, req.PropertyType, req.Max)
	if err != nil {
		h.writeAIError(w, err)
		return
	}
	httputil.OK(w, map[string]any{"cities": cities})
}

func (h *Handlers) writeAIError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ai.ErrInvalidInput):
		httputil.BadRequest(w, err.Error())
	case errors.Is(err, ai.ErrBadModelOutput):
		httputil.Error(w, http.StatusBadGateway, "model returned an unusable response")
	default:
		httputil.InternalError(w, err)
	}
}
