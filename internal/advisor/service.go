// Package advisor sequences the message-processing pipeline: retrieval
// first, then generation with retrieved context, then a canned response when
// both dependencies are down. Dependency failures degrade; they are never
// surfaced to the HTTP layer.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"equity-advisor-backend/internal/breaker"
	"equity-advisor-backend/internal/llm"
	"equity-advisor-backend/internal/rag"
	"equity-advisor-backend/internal/types"
)

// ErrEmptyMessage is the only error ProcessMessage returns; everything else
// degrades to a fallback response.
var ErrEmptyMessage = errors.New("message is required")

type Options struct {
	FailureThreshold int
	ResetTimeout     time.Duration
	RAGTimeout       time.Duration
	LLMTimeout       time.Duration
	CacheSize        int
	CacheTTL         time.Duration
}

type Service struct {
	spec       PromptSpec
	rag        rag.Querier
	llm        llm.Generator
	ragBreaker *breaker.Breaker
	llmBreaker *breaker.Breaker
	cache      *expirable.LRU[string, types.ChatResponse]
}

// New wires the orchestrator with explicit dependencies. One breaker per
// external collaborator; breaker state lives for the process lifetime.
func New(spec PromptSpec, ragClient rag.Querier, llmClient llm.Generator, opts Options) *Service {
	size := opts.CacheSize
	if size <= 0 {
		size = 256
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Service{
		spec:       spec,
		rag:        ragClient,
		llm:        llmClient,
		ragBreaker: breaker.New("rag", opts.FailureThreshold, opts.ResetTimeout, opts.RAGTimeout),
		llmBreaker: breaker.New("llm", opts.FailureThreshold, opts.ResetTimeout, opts.LLMTimeout),
		cache:      expirable.NewLRU[string, types.ChatResponse](size, nil, ttl),
	}
}

// Topics returns the fixed topic list, order preserved.
func (s *Service) Topics() []string {
	return s.spec.TopicNames()
}

// BreakerStates reports the current state of each dependency breaker.
func (s *Service) BreakerStates() map[string]string {
	return map[string]string{
		"rag": s.ragBreaker.State().String(),
		"llm": s.llmBreaker.State().String(),
	}
}

// ProcessMessage runs the fallback chain for one user message.
func (s *Service) ProcessMessage(ctx context.Context, message string) (types.ChatResponse, error) {
	msg := strings.TrimSpace(message)
	if msg == "" {
		return types.ChatResponse{}, ErrEmptyMessage
	}

	key := strings.ToLower(msg)
	if resp, ok := s.cache.Get(key); ok {
		resp.Timestamp = time.Now().UTC()
		return resp, nil
	}

	ragRes, ragErr := breaker.Execute(ctx, s.ragBreaker, func(ctx context.Context) (rag.Result, error) {
		res := s.rag.Query(ctx, msg)
		if !res.Available {
			// Counts as a breaker failure even though Query never errors.
			return res, fmt.Errorf("retrieval unavailable: %s", res.Err)
		}
		return res, nil
	})
	if ragErr != nil {
		log.Printf("[advisor] retrieval unavailable: %v", ragErr)
	}

	if ragErr == nil && !ragRes.FallbackMode && strings.TrimSpace(ragRes.Answer) != "" {
		resp := s.respond(withCitation(ragRes.Answer, ragRes.Sources), ragRes.Sources, true)
		s.cache.Add(key, resp)
		return resp, nil
	}

	// Any retrieved snippets still improve the generated answer, even when
	// the bridge produced no final answer.
	snippets := snippetContext(ragRes.Sources)
	system := s.spec.System
	if snippets != "" {
		system = system + "\n\n" + s.spec.ContextPreamble + "\n" + snippets
	}

	text, llmErr := breaker.Execute(ctx, s.llmBreaker, func(ctx context.Context) (string, error) {
		return s.llm.Generate(ctx, msg, system)
	})
	if llmErr == nil {
		return s.respond(normalizeText(text), ragRes.Sources, snippets != ""), nil
	}
	log.Printf("[advisor] generation failed, serving canned response: %v", llmErr)

	return s.respond(s.spec.Fallback, nil, false), nil
}

func (s *Service) respond(text string, sources []types.Source, ragUsed bool) types.ChatResponse {
	suggestions, related := s.spec.derive(text)
	if sources == nil {
		sources = []types.Source{}
	}
	return types.ChatResponse{
		Response:      text,
		Suggestions:   suggestions,
		RelatedTopics: related,
		Sources:       sources,
		RAGUsed:       ragUsed,
		Timestamp:     time.Now().UTC(),
	}
}

// withCitation appends a one-line citation when the bridge returned sources.
// The answer itself stays verbatim.
func withCitation(answer string, sources []types.Source) string {
	if len(sources) == 0 {
		return answer
	}
	title := strings.TrimSpace(sources[0].SectionTitle)
	if title == "" {
		title = strings.TrimSpace(sources[0].Section)
	}
	if title == "" {
		return answer
	}
	return answer + "\n\nSource: HMRC guidance, " + title
}

func snippetContext(sources []types.Source) string {
	var b strings.Builder
	for _, src := range sources {
		snippet := strings.TrimSpace(src.Snippet)
		if snippet == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n---\n")
		}
		b.WriteString(snippet)
	}
	return b.String()
}

// normalizeText strips markdown heading markers the model tends to emit and
// collapses runs of blank lines.
func normalizeText(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		trimmed := strings.TrimLeft(line, " \t")
		if strings.HasPrefix(trimmed, "#") {
			lines[i] = strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
		}
	}
	out := strings.Join(lines, "\n")
	for strings.Contains(out, "\n\n\n") {
		out = strings.ReplaceAll(out, "\n\n\n", "\n\n")
	}
	return strings.TrimSpace(out)
}
