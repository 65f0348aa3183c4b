package advisor

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// TopicSpec ties a topic name to the keywords that surface it and the
// follow-up question suggested when it appears in a response.
type TopicSpec struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
	FollowUp string   `yaml:"follow_up"`
}

// PromptSpec holds the prompt material and topic list for the advisor.
// Loaded from a YAML file so prompt changes don't need a rebuild.
type PromptSpec struct {
	System             string      `yaml:"system"`
	ContextPreamble    string      `yaml:"context_preamble"`
	Fallback           string      `yaml:"fallback"`
	DefaultSuggestions []string    `yaml:"default_suggestions"`
	Topics             []TopicSpec `yaml:"topics"`
}

// LoadPromptSpec reads a PromptSpec from path. On any error the compiled-in
// defaults are returned alongside the error so the caller can log and keep
// going.
func LoadPromptSpec(path string) (PromptSpec, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return DefaultPromptSpec(), err
	}
	var spec PromptSpec
	if err := yaml.Unmarshal(b, &spec); err != nil {
		return DefaultPromptSpec(), fmt.Errorf("parse prompt spec: %w", err)
	}
	def := DefaultPromptSpec()
	if strings.TrimSpace(spec.System) == "" {
		spec.System = def.System
	}
	if strings.TrimSpace(spec.ContextPreamble) == "" {
		spec.ContextPreamble = def.ContextPreamble
	}
	if strings.TrimSpace(spec.Fallback) == "" {
		spec.Fallback = def.Fallback
	}
	if len(spec.DefaultSuggestions) == 0 {
		spec.DefaultSuggestions = def.DefaultSuggestions
	}
	if len(spec.Topics) == 0 {
		spec.Topics = def.Topics
	}
	return spec, nil
}

// DefaultPromptSpec is the compiled-in prompt material, kept in sync with
// prompts/advisor.yaml.
func DefaultPromptSpec() PromptSpec {
	return PromptSpec{
		System: "You are a UK employment-related securities tax advisor. Answer questions about " +
			"employee share schemes (EMI, CSOP, SAYE, SIP), growth shares, Capital Gains Tax and " +
			"Income Tax on shares, citing HMRC guidance where possible. Be concise and practical. " +
			"Always remind users to seek professional advice for their specific circumstances.",
		ContextPreamble: "Use the following HMRC guidance extracts when they are relevant to the question:",
		Fallback: "I'm currently unable to reach the HMRC knowledge base or the language model, " +
			"so I can't give a tailored answer right now. I can normally help with: EMI share option " +
			"schemes, Company Share Option Plans (CSOP), Save As You Earn (SAYE) schemes, Share " +
			"Incentive Plans (SIP), growth shares, Capital Gains Tax on shares, Income Tax and NIC " +
			"on employment securities, Business Asset Disposal Relief, section 431 elections, and " +
			"HMRC share valuations. Please try again in a moment.",
		DefaultSuggestions: []string{
			"What are EMI share option schemes?",
			"How is Capital Gains Tax charged on shares?",
			"What is a section 431 election?",
		},
		Topics: []TopicSpec{
			{
				Name:     "EMI share option schemes",
				Keywords: []string{"emi", "enterprise management incentive"},
				FollowUp: "What are the EMI eligibility requirements?",
			},
			{
				Name:     "Company Share Option Plans (CSOP)",
				Keywords: []string{"csop", "company share option"},
				FollowUp: "How does the CSOP 60,000 GBP limit work?",
			},
			{
				Name:     "Save As You Earn (SAYE)",
				Keywords: []string{"saye", "save as you earn", "sharesave"},
				FollowUp: "What discount can SAYE options be granted at?",
			},
			{
				Name:     "Share Incentive Plans (SIP)",
				Keywords: []string{"sip", "share incentive plan", "free shares", "partnership shares"},
				FollowUp: "How long must SIP shares be held for full relief?",
			},
			{
				Name:     "Growth shares",
				Keywords: []string{"growth share", "hurdle", "flowering share"},
				FollowUp: "How are growth shares valued at acquisition?",
			},
			{
				Name:     "Capital Gains Tax on shares",
				Keywords: []string{"capital gains", "cgt", "disposal", "annual exempt"},
				FollowUp: "What CGT rates apply when I sell my shares?",
			},
			{
				Name:     "Income Tax and NIC on employment securities",
				Keywords: []string{"income tax", "nic", "national insurance", "paye", "readily convertible"},
				FollowUp: "When does PAYE apply to share awards?",
			},
			{
				Name:     "Business Asset Disposal Relief",
				Keywords: []string{"business asset disposal", "badr", "entrepreneurs' relief"},
				FollowUp: "Do EMI shares qualify for Business Asset Disposal Relief?",
			},
			{
				Name:     "Section 431 elections",
				Keywords: []string{"section 431", "s431", "restricted securities"},
				FollowUp: "What is the deadline for a section 431 election?",
			},
			{
				Name:     "HMRC share valuations",
				Keywords: []string{"valuation", "actual market value", "unrestricted market value", "val230"},
				FollowUp: "How do I agree a share valuation with HMRC?",
			},
		},
	}
}

// TopicNames returns the topic list in declaration order.
func (p PromptSpec) TopicNames() []string {
	out := make([]string, 0, len(p.Topics))
	for _, t := range p.Topics {
		out = append(out, t.Name)
	}
	return out
}

const (
	maxSuggestions   = 3
	maxRelatedTopics = 4
)

// derive extracts follow-up suggestions and related topics from response
// text by case-insensitive keyword matching against the topic list. Matching
// is lexical, list order breaks ties, and counts are capped.
func (p PromptSpec) derive(text string) (suggestions, related []string) {
	lower := strings.ToLower(text)
	suggestions = make([]string, 0, maxSuggestions)
	related = make([]string, 0, maxRelatedTopics)
	for _, t := range p.Topics {
		matched := false
		for _, kw := range t.Keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		if len(related) < maxRelatedTopics {
			related = append(related, t.Name)
		}
		if len(suggestions) < maxSuggestions && t.FollowUp != "" {
			suggestions = append(suggestions, t.FollowUp)
		}
		if len(related) == maxRelatedTopics && len(suggestions) == maxSuggestions {
			break
		}
	}
	if len(suggestions) == 0 {
		n := len(p.DefaultSuggestions)
		if n > maxSuggestions {
			n = maxSuggestions
		}
		suggestions = append(suggestions, p.DefaultSuggestions[:n]...)
	}
	return suggestions, related
}
