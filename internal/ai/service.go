package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/naybourhood/naybourhood-server/internal/domain"
	"github.com/naybourhood/naybourhood-server/internal/pkg/format"
	"github.com/naybourhood/naybourhood-server/internal/pkg/logger"
)

// ErrBadModelOutput reports that the model replied, but not with the
// shape the feature needs. Callers surface it as a 502, never as a
// silently defaulted result.
var ErrBadModelOutput = errors.New("model output failed schema validation")

// ErrInvalidInput reports caller-side validation failures before any
// model call is made.
var ErrInvalidInput = errors.New("invalid input")

// LeadInput is the scoring payload assembled from a buyer record.
type LeadInput struct {
	Name        string `json:"name"`
	Development string `json:"development,omitempty"`
	Budget      string `json:"budget,omitempty"`
	Timeline    string `json:"timeline,omitempty"`
	Location    string `json:"location,omitempty"`
	Source      string `json:"source,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

// LeadScoreResult is the validated scoring verdict.
type LeadScoreResult struct {
	IntentScore       int              `json:"intent_score"`
	QualityScore      int              `json:"quality_score"`
	Classification    domain.LeadClass `json:"classification"`
	Reasoning         string           `json:"reasoning"`
	RecommendedAction string           `json:"recommended_action"`
	Model             string           `json:"model"`
}

// AgentResult carries a master-agent answer plus the model that
// produced it, so the UI can attribute responses.
type AgentResult struct {
	Response string `json:"response"`
	Model    string `json:"model"`
}

// AnalysisResult is the validated analyze-data shape. Insights carry
// the keyword classification so the dashboard can bucket them.
type AnalysisResult struct {
	Summary     string           `json:"summary"`
	Insights    []domain.Insight `json:"insights"`
	TopCampaign string           `json:"top_campaign"`
	Model       string           `json:"model"`
	Fallback    bool             `json:"fallback,omitempty"`
}

// analysisPayload is the raw JSON shape the model returns; insights
// arrive as free-text lines and are classified before leaving the
// service.
type analysisPayload struct {
	Summary     string   `json:"summary"`
	Insights    []string `json:"insights"`
	TopCampaign string   `json:"top_campaign"`
}

func classifyInsights(lines []string) []domain.Insight {
	var out []domain.Insight
	for _, line := range lines {
		for _, sentence := range Sentences(line) {
			out = append(out, domain.ClassifyInsight(sentence))
		}
	}
	return out
}

// CityRecommendation is one entry of a recommend-cities response.
type CityRecommendation struct {
	City       string `json:"city"`
	Region     string `json:"region"`
	Rationale  string `json:"rationale"`
	MatchScore int    `json:"match_score"`
}

// Service fronts the model provider with prompt assembly and strict
// response validation.
type Service struct {
	provider Provider
	prompts  *promptSet
}

func NewService(provider Provider) *Service {
	return &Service{
		provider: provider,
		prompts:  newPromptSet(),
	}
}

// ScoreLead asks the model for a scoring verdict and validates the
// reply against the documented schema. The classification is always
// recomputed from the returned scores so the model cannot contradict
// the banding rules.
func (s *Service) ScoreLead(ctx context.Context, lead LeadInput) (*LeadScoreResult, error) {
	if strings.TrimSpace(lead.Name) == "" {
		return nil, fmt.Errorf("%w: lead name is required", ErrInvalidInput)
	}

	prompt, err := s.prompts.render(leadScoringPromptTpl, map[string]any{
		"lead": map[string]any{
			"name":        lead.Name,
			"development": lead.Development,
			"budget":      format.Budget(lead.Budget),
			"timeline":    lead.Timeline,
			"location":    lead.Location,
			"source":      lead.Source,
			"notes":       lead.Notes,
		},
	})
	if err != nil {
		return nil, err
	}

	raw, err := s.provider.Complete(ctx, Request{
		System:      leadScoringSystem,
		Prompt:      prompt,
		MaxTokens:   1024,
		Temperature: 0.2,
	})
	if err != nil {
		return nil, err
	}

	var parsed struct {
		IntentScore       *float64 `json:"intent_score"`
		QualityScore      *float64 `json:"quality_score"`
		Classification    string   `json:"classification"`
		Reasoning         string   `json:"reasoning"`
		RecommendedAction string   `json:"recommended_action"`
	}
	if err := ExtractJSON(raw, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadModelOutput, err)
	}
	if parsed.IntentScore == nil || parsed.QualityScore == nil {
		return nil, fmt.Errorf("%w: missing intent_score or quality_score", ErrBadModelOutput)
	}
	intent := int(*parsed.IntentScore)
	quality := int(*parsed.QualityScore)
	if intent < 0 || intent > 100 || quality < 0 || quality > 100 {
		return nil, fmt.Errorf("%w: scores out of range (intent=%d quality=%d)", ErrBadModelOutput, intent, quality)
	}
	if strings.TrimSpace(parsed.Reasoning) == "" {
		return nil, fmt.Errorf("%w: missing reasoning", ErrBadModelOutput)
	}

	result := &LeadScoreResult{
		IntentScore:       intent,
		QualityScore:      quality,
		Classification:    domain.Classify(intent, quality),
		Reasoning:         parsed.Reasoning,
		RecommendedAction: parsed.RecommendedAction,
		Model:             s.provider.ModelID(),
	}
	if parsed.Classification != "" && parsed.Classification != string(result.Classification) {
		logger.Warn("model classification overridden by banding rules",
			"model_class", parsed.Classification,
			"computed_class", result.Classification)
	}
	return result, nil
}

// Ask runs the master agent for an ad-hoc question, optionally with a
// context block of the caller's own pipeline data.
func (s *Service) Ask(ctx context.Context, query, contextBlock string) (*AgentResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query is required", ErrInvalidInput)
	}

	prompt, err := s.prompts.render(masterAgentPromptTpl, map[string]any{
		"query":         query,
		"context_block": contextBlock,
	})
	if err != nil {
		return nil, err
	}

	raw, err := s.provider.Complete(ctx, Request{
		System:      masterAgentSystem,
		Prompt:      prompt,
		MaxTokens:   2048,
		Temperature: 0.7,
	})
	if err != nil {
		return nil, err
	}
	return &AgentResult{Response: raw, Model: s.provider.ModelID()}, nil
}

// AnalyzeData summarizes campaign rows. If the model is unreachable or
// replies with garbage, a deterministic local summary is returned with
// Fallback set so the caller can label it.
func (s *Service) AnalyzeData(ctx context.Context, rows []string) (*AnalysisResult, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no rows to analyze", ErrInvalidInput)
	}

	prompt, err := s.prompts.render(analyzeDataPromptTpl, map[string]any{"rows": rows})
	if err != nil {
		return nil, err
	}

	raw, err := s.provider.Complete(ctx, Request{
		System:      analyzeDataSystem,
		Prompt:      prompt,
		MaxTokens:   1536,
		Temperature: 0.3,
	})
	if err != nil {
		logger.Warn("analysis model call failed, using local summary", "error", err)
		return s.localAnalysis(rows), nil
	}

	var parsed analysisPayload
	if err := ExtractJSON(raw, &parsed); err != nil || parsed.Summary == "" {
		logger.Warn("analysis output failed validation, using local summary")
		return s.localAnalysis(rows), nil
	}
	return &AnalysisResult{
		Summary:     parsed.Summary,
		Insights:    classifyInsights(parsed.Insights),
		TopCampaign: parsed.TopCampaign,
		Model:       s.provider.ModelID(),
	}, nil
}

// localAnalysis is the deterministic fallback: a row-count summary plus
// the first few rows echoed as observations. It is honest about being a
// fallback rather than pretending to be model output.
func (s *Service) localAnalysis(rows []string) *AnalysisResult {
	insights := make([]domain.Insight, 0, 3)
	for i, row := range rows {
		if i >= 3 {
			break
		}
		insights = append(insights, domain.ClassifyInsight("Reviewed: "+row))
	}
	return &AnalysisResult{
		Summary:  fmt.Sprintf("Analyzed %d campaign rows. Model analysis was unavailable; showing a basic summary.", len(rows)),
		Insights: insights,
		Fallback: true,
	}
}

// RecommendCities validates the budget is present before spending a
// model call, then parses and range-checks the returned array.
func (s *Service) RecommendCities(ctx context.Context, budget, region, propertyType string, max int) ([]CityRecommendation, error) {
	if strings.TrimSpace(budget) == "" {
		return nil, fmt.Errorf("%w: budget is required", ErrInvalidInput)
	}
	if max <= 0 || max > 10 {
		max = 5
	}

	system, err := s.prompts.render(recommendCitiesSystem, map[string]any{"max": max})
	if err != nil {
		return nil, err
	}
	prompt, err := s.prompts.render(recommendCitiesPromptTpl, map[string]any{
		"budget":        budget,
		"region":        region,
		"property_type": propertyType,
	})
	if err != nil {
		return nil, err
	}

	raw, err := s.provider.Complete(ctx, Request{
		System:      system,
		Prompt:      prompt,
		MaxTokens:   1024,
		Temperature: 0.5,
	})
	if err != nil {
		return nil, err
	}

	var recs []CityRecommendation
	if err := ExtractJSON(raw, &recs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadModelOutput, err)
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("%w: empty recommendation list", ErrBadModelOutput)
	}
	if len(recs) > max {
		recs = recs[:max]
	}
	for i := range recs {
		if recs[i].City == "" {
			return nil, fmt.Errorf("%w: recommendation %d missing city", ErrBadModelOutput, i)
		}
		if recs[i].MatchScore < 0 {
			recs[i].MatchScore = 0
		}
		if recs[i].MatchScore > 100 {
			recs[i].MatchScore = 100
		}
	}
	return recs, nil
}
