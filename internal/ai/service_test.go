package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/naybourhood/naybourhood-server/internal/domain"
)

// fakeProvider replays canned completions and records the requests it saw.
type fakeProvider struct {
	replies  []string
	err      error
	requests []Request
}

func (f *fakeProvider) Complete(_ context.Context, req Request) (string, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return "", f.err
	}
	reply := f.replies[0]
	if len(f.replies) > 1 {
		f.replies = f.replies[1:]
	}
	return reply, nil
}

func (f *fakeProvider) ModelID() string { return "test-model" }

func TestScoreLeadValidOutput(t *testing.T) {
	fp := &fakeProvider{replies: []string{
		"```json\n{\"intent_score\": 85, \"quality_score\": 72, \"classification\": \"hot\", \"reasoning\": \"pre-approved, viewing booked\", \"recommended_action\": \"call today\"}\n```",
	}}
	svc := NewService(fp)

	got, err := svc.ScoreLead(context.Background(), LeadInput{Name: "Jane Doe", Budget: "£500,000"})
	require.NoError(t, err)
	assert.Equal(t, 85, got.IntentScore)
	assert.Equal(t, 72, got.QualityScore)
	assert.Equal(t, domain.LeadHot, got.Classification)
	assert.Equal(t, "call today", got.RecommendedAction)
	assert.Equal(t, "test-model", got.Model)

	require.Len(t, fp.requests, 1)
	assert.Contains(t, fp.requests[0].Prompt, "Jane Doe")
	assert.Contains(t, fp.requests[0].Prompt, "£500K")
}

func TestScoreLeadClassificationRecomputedFromScores(t *testing.T) {
	// Model claims "hot" but the scores only support "warm".
	fp := &fakeProvider{replies: []string{
		`{"intent_score": 65, "quality_score": 55, "classification": "hot", "reasoning": "ok", "recommended_action": "email"}`,
	}}
	got, err := NewService(fp).ScoreLead(context.Background(), LeadInput{Name: "A"})
	require.NoError(t, err)
	assert.Equal(t, domain.LeadWarm, got.Classification)
}

func TestScoreLeadRejectsOutOfRangeScores(t *testing.T) {
	fp := &fakeProvider{replies: []string{
		`{"intent_score": 150, "quality_score": 72, "reasoning": "x"}`,
	}}
	_, err := NewService(fp).ScoreLead(context.Background(), LeadInput{Name: "A"})
	assert.ErrorIs(t, err, ErrBadModelOutput)
}

func TestScoreLeadRejectsMissingScores(t *testing.T) {
	fp := &fakeProvider{replies: []string{
		`{"quality_score": 72, "reasoning": "x"}`,
	}}
	_, err := NewService(fp).ScoreLead(context.Background(), LeadInput{Name: "A"})
	assert.ErrorIs(t, err, ErrBadModelOutput)
}

func TestScoreLeadRejectsProseOnly(t *testing.T) {
	fp := &fakeProvider{replies: []string{"This lead looks promising overall."}}
	_, err := NewService(fp).ScoreLead(context.Background(), LeadInput{Name: "A"})
	assert.ErrorIs(t, err, ErrBadModelOutput)
}

func TestScoreLeadRequiresName(t *testing.T) {
	fp := &fakeProvider{}
	_, err := NewService(fp).ScoreLead(context.Background(), LeadInput{Name: "  "})
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Empty(t, fp.requests, "no model call on invalid input")
}

func TestAskPassesContextBlock(t *testing.T) {
	fp := &fakeProvider{replies: []string{"Focus spend on your Leeds campaign."}}
	got, err := NewService(fp).Ask(context.Background(), "where should I spend?", "Leeds: 40 leads\nYork: 3 leads")
	require.NoError(t, err)
	assert.Equal(t, "Focus spend on your Leeds campaign.", got.Response)
	assert.Equal(t, "test-model", got.Model)
	assert.Contains(t, fp.requests[0].Prompt, "Leeds: 40 leads")
	assert.Contains(t, fp.requests[0].Prompt, "where should I spend?")
}

func TestAskRequiresQuery(t *testing.T) {
	_, err := NewService(&fakeProvider{}).Ask(context.Background(), "", "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAnalyzeDataValidOutput(t *testing.T) {
	fp := &fakeProvider{replies: []string{
		`{"summary": "Strong month across both campaigns.", "insights": ["Strong growth in Leeds", "York enquiries are declining", "Untapped potential in Hull", "Follow up stale leads"], "top_campaign": "Leeds Spring"}`,
	}}
	got, err := NewService(fp).AnalyzeData(context.Background(), []string{"Leeds Spring: 40 leads", "York: 3 leads"})
	require.NoError(t, err)
	assert.False(t, got.Fallback)
	assert.Equal(t, "Leeds Spring", got.TopCampaign)
	assert.Equal(t, "test-model", got.Model)
	require.Len(t, got.Insights, 4)
	assert.Equal(t, domain.InsightSuccess, got.Insights[0].Type)
	assert.Equal(t, domain.InsightWarning, got.Insights[1].Type)
	assert.Equal(t, domain.InsightOpportunity, got.Insights[2].Type)
	assert.Equal(t, domain.InsightAction, got.Insights[3].Type)
}

func TestAnalyzeDataFallsBackOnProviderError(t *testing.T) {
	fp := &fakeProvider{err: errors.New("upstream timeout")}
	got, err := NewService(fp).AnalyzeData(context.Background(), []string{"row one", "row two"})
	require.NoError(t, err)
	assert.True(t, got.Fallback)
	assert.Contains(t, got.Summary, "2 campaign rows")
	assert.Len(t, got.Insights, 2)
}

func TestAnalyzeDataFallsBackOnGarbageOutput(t *testing.T) {
	fp := &fakeProvider{replies: []string{"no json here at all"}}
	got, err := NewService(fp).AnalyzeData(context.Background(), []string{"a", "b", "c", "d"})
	require.NoError(t, err)
	assert.True(t, got.Fallback)
	assert.Len(t, got.Insights, 3, "fallback echoes at most three rows")
}

func TestAnalyzeDataRequiresRows(t *testing.T) {
	_, err := NewService(&fakeProvider{}).AnalyzeData(context.Background(), nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRecommendCitiesValid(t *testing.T) {
	fp := &fakeProvider{replies: []string{
		`[{"city": "Leeds", "region": "Yorkshire", "rationale": "strong yields", "match_score": 91},
		  {"city": "Manchester", "region": "North West", "rationale": "demand", "match_score": 120}]`,
	}}
	got, err := NewService(fp).RecommendCities(context.Background(), "£350,000", "north", "apartment", 5)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Leeds", got[0].City)
	assert.Equal(t, 100, got[1].MatchScore, "scores are clamped to 100")
}

func TestRecommendCitiesTruncatesToMax(t *testing.T) {
	fp := &fakeProvider{replies: []string{
		`[{"city": "A", "match_score": 1}, {"city": "B", "match_score": 2}, {"city": "C", "match_score": 3}]`,
	}}
	got, err := NewService(fp).RecommendCities(context.Background(), "£200,000", "", "", 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestRecommendCitiesRequiresBudget(t *testing.T) {
	fp := &fakeProvider{}
	_, err := NewService(fp).RecommendCities(context.Background(), "", "north", "", 5)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Empty(t, fp.requests)
}

func TestRecommendCitiesRejectsMissingCity(t *testing.T) {
	fp := &fakeProvider{replies: []string{`[{"region": "Yorkshire", "match_score": 80}]`}}
	_, err := NewService(fp).RecommendCities(context.Background(), "£200,000", "", "", 5)
	assert.ErrorIs(t, err, ErrBadModelOutput)
}
