package types

import "time"

type ChatRequest struct {
	Message string         `json:"message"`
	Context map[string]any `json:"context,omitempty"`
}

// Source is a cited HMRC guidance extract returned by the retrieval bridge.
type Source struct {
	URL          string `json:"url"`
	Section      string `json:"section"`
	SectionTitle string `json:"section_title"`
	Snippet      string `json:"snippet"`
}

type ChatResponse struct {
	Response      string    `json:"response"`
	Suggestions   []string  `json:"suggestions"`
	RelatedTopics []string  `json:"relatedTopics"`
	Sources       []Source  `json:"sources"`
	RAGUsed       bool      `json:"rag_used"`
	Timestamp     time.Time `json:"timestamp"`
}

type TopicsResponse struct {
	Topics []string `json:"topics"`
}

type HistoryResponse struct {
	SessionID string           `json:"sessionId"`
	Messages  []HistoryMessage `json:"messages"`
}

type HistoryMessage struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

type ErrorResponse struct {
	Error     string `json:"error"`
	Timestamp string `json:"timestamp,omitempty"`
}

type MemoryUsage struct {
	AllocBytes      uint64 `json:"allocBytes"`
	TotalAllocBytes uint64 `json:"totalAllocBytes"`
	SysBytes        uint64 `json:"sysBytes"`
	NumGC           uint32 `json:"numGC"`
}

type DependencyHealth struct {
	RAGAvailable bool      `json:"ragAvailable"`
	LLMAvailable bool      `json:"llmAvailable"`
	CheckedAt    time.Time `json:"checkedAt"`
}

type HealthResponse struct {
	Status        string            `json:"status"`
	Timestamp     time.Time         `json:"timestamp"`
	UptimeSeconds float64           `json:"uptime"`
	Memory        MemoryUsage       `json:"memory"`
	PID           int               `json:"pid"`
	Dependencies  DependencyHealth  `json:"dependencies"`
	Breakers      map[string]string `json:"breakers"`
}
