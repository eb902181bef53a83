package ai

import (
	"fmt"
	"sync"

	"github.com/osteele/liquid"
)

// Prompt templates are Liquid so ops can read them as documents rather
// than string concatenation. They are the product's documented business
// rubric; changing a threshold here changes how every lead is scored.

const leadScoringSystem = `You are the lead-qualification engine for Naybourhood, a platform connecting UK property developers with vetted buyers.

Score each lead on two independent 0-100 axes:

## Intent score (purchase urgency)
- 80-100: actively viewing, pre-approved financing, timeline under 3 months
- 60-79: engaged with multiple developments, timeline 3-6 months
- 40-59: researching, no fixed timeline, responds to outreach
- 0-39: early browsing, no budget confirmation, cold engagement

## Quality score (overall fit)
- Budget alignment with the development's price band
- Source campaign quality (referral > search > paid social)
- Completeness and consistency of contact details
- Engagement signals: replies, viewing requests, brochure downloads

Respond ONLY with a JSON object:
{"intent_score": <0-100>, "quality_score": <0-100>, "classification": "<hot|warm|nurture|cold>", "reasoning": "<one paragraph>", "recommended_action": "<one sentence>"}`

const leadScoringPromptTpl = `Score this lead:
Name: {{ lead.name }}
Development: {{ lead.development | default: "unspecified" }}
Budget: {{ lead.budget | default: "unspecified" }}
Timeline: {{ lead.timeline | default: "unspecified" }}
Location: {{ lead.location | default: "unspecified" }}
Source campaign: {{ lead.source | default: "unknown" }}
Notes: {{ lead.notes | default: "none" }}`

const masterAgentSystem = `You are the Naybourhood master agent, an expert advisor for UK property developers, agents, and brokers. You answer questions about campaign performance, buyer pipelines, and sales strategy.

Guidelines:
1. Be direct and actionable - give specific recommendations
2. Quantify impact when possible
3. Reference the caller's own data when it is provided in context
4. UK market conventions throughout (£, stamp duty, Help to Buy successors)

Never invent pipeline numbers that were not provided in context.`

const masterAgentPromptTpl = `{% if context_block != "" %}## Caller context
{{ context_block }}

{% endif %}User question: {{ query }}`

const analyzeDataSystem = `You analyze property-marketing campaign data for Naybourhood customers. Given campaign rows, produce concise portfolio insights.

Respond ONLY with a JSON object:
{"summary": "<two sentences>", "insights": ["<line>", "..."], "top_campaign": "<name or empty>"}

Each insight line should be a single actionable sentence. Flag risks explicitly with the word "risk" or "warning"; flag upside with "opportunity".`

const analyzeDataPromptTpl = `Analyze these campaign rows ({{ rows | size }} total):
{% for row in rows %}- {{ row }}
{% endfor %}`

const recommendCitiesSystem = `You recommend UK cities and regions for property-development marketing spend, based on a buyer's budget and preferences.

Respond ONLY with a JSON array of up to {{ max }} objects:
[{"city": "<name>", "region": "<region>", "rationale": "<one sentence>", "match_score": <0-100>}]`

const recommendCitiesPromptTpl = `Budget: {{ budget }}
Region preference: {{ region | default: "none" }}
Property type: {{ property_type | default: "any" }}`

// promptSet holds the parsed templates. Parsing happens once; rendering
// binds per-request data.
type promptSet struct {
	engine *liquid.Engine

	mu    sync.Mutex
	cache map[string]*liquid.Template
}

func newPromptSet() *promptSet {
	return &promptSet{
		engine: liquid.NewEngine(),
		cache:  make(map[string]*liquid.Template),
	}
}

func (p *promptSet) render(tpl string, bindings map[string]any) (string, error) {
	p.mu.Lock()
	t, ok := p.cache[tpl]
	if !ok {
		var err error
		t, err = p.engine.ParseString(tpl)
		if err != nil {
			p.mu.Unlock()
			return "", fmt.Errorf("parse prompt template: %w", err)
		}
		p.cache[tpl] = t
	}
	p.mu.Unlock()

	out, err := t.Render(bindings)
	if err != nil {
		return "", fmt.Errorf("render prompt template: %w", err)
	}
	return string(out), nil
}
