package models

// IterativeStep records one retrieve-reason-refine cycle.
type IterativeStep struct {
	Iteration int    `json:"iteration"`
	Query     string `json:"query"`
	NDocs     int    `json:"n_docs"`
	Reason    string `json:"reason"`
}

// IterativeResult is the /ask command's result variant.
type IterativeResult struct {
	Steps       []IterativeStep `json:"steps"`
	Answer      string          `json:"answer"`
	FollowUps   []string        `json:"follow_ups"`
}

// TimeRange is an inclusive [start, end] date range expressed as
// ISO calendar-date strings (YYYY-MM-DD).
type TimeRange struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// EventResult is one entry of the Events command's event list.
type EventResult struct {
	ID       string        `json:"id"`
	Title    string        `json:"title"`
	Range    TimeRange     `json:"time_range"`
	Entities []string      `json:"entities"`
	Docs     []EvidenceRef `json:"doc_refs"`
}

// TimelinePosition is the ordering relation between two events.
type TimelinePosition string

const (
	PositionBefore  TimelinePosition = "before"
	PositionOverlap TimelinePosition = "overlap"
	PositionAfter   TimelinePosition = "after"
)

// TimelineRelation orders one event relative to a reference event.
type TimelineRelation struct {
	EventID          string           `json:"event_id"`
	Position         TimelinePosition `json:"position"`
	ReferenceEventID string           `json:"reference_event_id"`
}

// CausalLink asserts a cause→effect relationship between two events.
type CausalLink struct {
	Cause        string        `json:"cause"`
	Effect       string        `json:"effect"`
	Confidence   float64       `json:"confidence"`
	EvidenceRefs []EvidenceRef `json:"evidence_refs"`
}

// EventsResult is the /events command's result variant.
type EventsResult struct {
	Events            []EventResult      `json:"events"`
	TimelineRelations []TimelineRelation `json:"timeline_relations"`
	CausalLinks       []CausalLink       `json:"causal_links"`
}

// GraphPath is one bounded-BFS path through the subgraph.
type GraphPath struct {
	Nodes []string `json:"nodes"`
	Hops  int      `json:"hops"`
	Score float64  `json:"score"`
}

// GraphResult is the /graph command's result variant.
type GraphResult struct {
	Nodes  []GraphNode `json:"nodes"`
	Edges  []GraphEdge `json:"edges"`
	Paths  []GraphPath `json:"paths"`
	Answer string      `json:"answer"`
}

// MemoryOperation is the dispatch tag for the /memory command.
type MemoryOperation string

const (
	MemorySuggest MemoryOperation = "suggest"
	MemoryStore   MemoryOperation = "store"
	MemoryRecall  MemoryOperation = "recall"
)

// MemoryResult is the /memory command's result variant.
type MemoryResult struct {
	Operation   MemoryOperation `json:"operation"`
	Suggestions []MemoryRecord  `json:"suggestions,omitempty"`
	Stored      *MemoryRecord   `json:"stored,omitempty"`
	Recalled    []MemoryRecord  `json:"recalled,omitempty"`
}

// ImpactLevel ranks the expected impact of a synthesized action.
type ImpactLevel string

const (
	ImpactLow    ImpactLevel = "low"
	ImpactMedium ImpactLevel = "medium"
	ImpactHigh   ImpactLevel = "high"
)

// SynthesisConflict flags disagreement between two prior agent outputs.
type SynthesisConflict struct {
	Description  string        `json:"description"`
	EvidenceRefs []EvidenceRef `json:"evidence_refs"`
}

// SynthesisAction is one recommended next step derived from prior outputs.
type SynthesisAction struct {
	Recommendation string        `json:"recommendation"`
	Impact         ImpactLevel   `json:"impact"`
	EvidenceRefs   []EvidenceRef `json:"evidence_refs"`
}

// SynthesisResult is the /synthesize command's result variant.
type SynthesisResult struct {
	Summary   string              `json:"summary"`
	Conflicts []SynthesisConflict `json:"conflicts"`
	Actions   []SynthesisAction   `json:"actions"`
}

// ForecastDirection is the sign of a forecast item's trend.
type ForecastDirection string

const (
	DirectionUp   ForecastDirection = "up"
	DirectionDown ForecastDirection = "down"
	DirectionFlat ForecastDirection = "flat"
)

// ConfidenceInterval bounds a forecast's directional confidence.
type ConfidenceInterval struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// ForecastDriver is a supporting document behind a forecast item.
type ForecastDriver struct {
	Rationale string      `json:"rationale"`
	Evidence  EvidenceRef `json:"evidence"`
}

// ForecastItem is one topic's directional forecast.
type ForecastItem struct {
	Topic              string             `json:"topic"`
	Direction          ForecastDirection  `json:"direction"`
	ConfidenceInterval ConfidenceInterval `json:"confidence_interval"`
	Drivers            []ForecastDriver   `json:"drivers"`
	Horizon            string             `json:"horizon"`
}

// ForecastResult is the /predict command's result variant.
type ForecastResult struct {
	Items []ForecastItem `json:"items"`
}

// CompetitorOverlap notes two domains co-occurring on the same topic.
type CompetitorOverlap struct {
	DomainA string `json:"domain_a"`
	DomainB string `json:"domain_b"`
	Topic   string `json:"topic"`
}

// CompetitorStance classifies a domain's relative market position.
type CompetitorStance string

const (
	StanceLeader       CompetitorStance = "leader"
	StanceFastFollower CompetitorStance = "fast_follower"
	StanceNiche        CompetitorStance = "niche"
)

// CompetitorPositioning is one domain's derived stance.
type CompetitorPositioning struct {
	Domain         string           `json:"domain"`
	Stance         CompetitorStance `json:"stance"`
	Notes          string           `json:"notes"`
	SentimentDelta *float64         `json:"sentiment_delta,omitempty"`
}

// CompetitorsResult is the /competitors command's result variant.
type CompetitorsResult struct {
	Overlap     []CompetitorOverlap     `json:"overlap"`
	Positioning []CompetitorPositioning `json:"positioning"`
	TopDomains  []string                `json:"top_domains"`
}

// AggregateResult backs /trends and /analyze, bundling whichever
// sub-results the caller's feature flags enabled.
type AggregateResult struct {
	Forecast    *ForecastResult    `json:"forecast,omitempty"`
	Competitors *CompetitorsResult `json:"competitors,omitempty"`
	Events      *EventsResult      `json:"events,omitempty"`
}

// DashboardResult backs the read-only /dashboard and /reports commands.
type DashboardResult struct {
	Experiments []ExperimentSummary `json:"experiments"`
	Operability map[string]int      `json:"operability"`
}
