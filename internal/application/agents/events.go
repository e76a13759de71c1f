package agents

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rssnews/orchestrator/internal/application/services"
	"github.com/rssnews/orchestrator/internal/domain/models"
)

// EventsAgent groups retrieved documents into events, orders them on a
// timeline, and infers causal links between temporally-adjacent events.
type EventsAgent struct {
	router *services.ModelRouter
}

// NewEventsAgent constructs an EventsAgent over the given router.
func NewEventsAgent(router *services.ModelRouter) *EventsAgent {
	return &EventsAgent{router: router}
}

// EventsParams bundles the inputs to Run.
type EventsParams struct {
	Docs                []*models.Document
	Budget              *services.BudgetManager
	DisableAlternatives bool
}

// Run produces the Events result (§4.4): extraction, timeline ordering,
// and causality reasoning.
func (a *EventsAgent) Run(ctx context.Context, p EventsParams) (*models.EventsResult, []string) {
	var warnings []string

	internalEvents := extractEvents(p.Docs)
	internalEvents = refineEventTitles(ctx, a.router, p.Budget, internalEvents, &warnings)

	result := &models.EventsResult{}
	for _, e := range internalEvents {
		refs := make([]models.EvidenceRef, 0, len(e.Docs))
		docIdx := docByArticleID(p.Docs)
		for _, id := range e.Docs {
			if d, ok := docIdx[id]; ok {
				refs = append(refs, evidenceRef(d))
			}
		}
		result.Events = append(result.Events, models.EventResult{
			ID:       e.ID,
			Title:    e.Title,
			Range:    models.TimeRange{StartDate: e.TSStart.Format("2006-01-02"), EndDate: e.TSEnd.Format("2006-01-02")},
			Entities: e.Entities,
			Docs:     refs,
		})
	}

	sortedEvents := append([]*models.Event{}, internalEvents...)
	for i := range sortedEvents {
		for j := i + 1; j < len(sortedEvents); j++ {
			if sortedEvents[j].TSStart.Before(sortedEvents[i].TSStart) {
				sortedEvents[i], sortedEvents[j] = sortedEvents[j], sortedEvents[i]
			}
		}
	}

	for i := 1; i < len(sortedEvents); i++ {
		ref := sortedEvents[0]
		cur := sortedEvents[i]
		result.TimelineRelations = append(result.TimelineRelations, models.TimelineRelation{
			EventID:          cur.ID,
			Position:         timelinePosition(cur, ref),
			ReferenceEventID: ref.ID,
		})
	}

	docIdx := docByArticleID(p.Docs)
	for i := 0; i+1 < len(sortedEvents); i++ {
		cause := sortedEvents[i]
		effect := sortedEvents[i+1]
		if !cause.TSEnd.Before(effect.TSStart) && !cause.TSEnd.Equal(effect.TSStart) {
			continue // successor precedes predecessor, not a candidate
		}

		if !p.Budget.Budget().CanAfford(300, 0.3, 0) {
			warnings = append(warnings, "stopped causal-link detection early: budget exhausted")
			break
		}

		link, ok := a.causalCheck(ctx, p.Budget, cause, effect, docIdx)
		if ok {
			result.CausalLinks = append(result.CausalLinks, link)
		}
	}

	if p.DisableAlternatives {
		warnings = append(warnings, "degraded: alternative interpretations disabled")
	}

	return result, warnings
}

// causalCheck runs the causal-check LLM call (§4.4): primary gpt-5,
// fallback [gemini-2.5-pro, claude-4.5], timeout 12s, max_tokens 300,
// temp 0.3; parses "CAUSAL: yes|no" / "CONFIDENCE: 0.0-1.0" (default 0.5
// if confidence line missing). Falls back to the temporal-proximity
// heuristic on failure: confidence 0.4 if effect starts within 0-7 days
// of cause ending, else no link. A link is recorded only if confidence>0.3.
func (a *EventsAgent) causalCheck(ctx context.Context, bm *services.BudgetManager, cause, effect *models.Event, docIdx map[string]*models.Document) (models.CausalLink, bool) {
	prompt := fmt.Sprintf("Event A: %s (%s to %s)\nEvent B: %s (%s to %s)\nDid A plausibly cause B? Reply CAUSAL: yes|no and CONFIDENCE: 0.0-1.0.",
		cause.Title, cause.TSStart.Format("2006-01-02"), cause.TSEnd.Format("2006-01-02"),
		effect.Title, effect.TSStart.Format("2006-01-02"), effect.TSEnd.Format("2006-01-02"))

	text, usage, err := a.router.CallWithFallback(ctx, prompt, "gpt-5", []string{"gemini-2.5-pro", "claude-4.5"}, 12, 300, 0.3)

	var confidence float64
	var causal bool
	if err == nil {
		bm.Budget().RecordUsage(usage.TokensUsed, usage.CostCents, float64(usage.LatencyMS)/1000)
		lower := strings.ToLower(text)
		causal = strings.Contains(lower, "causal: yes")
		confidence = 0.5
		if idx := strings.Index(lower, "confidence:"); idx >= 0 {
			rest := strings.TrimSpace(lower[idx+len("confidence:"):])
			fields := strings.Fields(rest)
			if len(fields) > 0 {
				if v, perr := strconv.ParseFloat(fields[0], 64); perr == nil {
					confidence = v
				}
			}
		}
	} else {
		causal, confidence = temporalProximityHeuristic(cause, effect)
	}

	if !causal || confidence <= 0.3 {
		return models.CausalLink{}, false
	}

	refs := supportingRefs(cause, effect, docIdx, 3)
	return models.CausalLink{
		Cause:        cause.Title,
		Effect:       effect.Title,
		Confidence:   confidence,
		EvidenceRefs: refs,
	}, true
}

// temporalProximityHeuristic is the deterministic fallback: confidence 0.4
// if effect starts 0-7 days (inclusive) after cause ends, else no link.
func temporalProximityHeuristic(cause, effect *models.Event) (bool, float64) {
	gap := effect.TSStart.Sub(cause.TSEnd)
	if gap >= 0 && gap <= 7*24*time.Hour {
		return true, 0.4
	}
	return false, 0.0
}

func supportingRefs(cause, effect *models.Event, docIdx map[string]*models.Document, max int) []models.EvidenceRef {
	var refs []models.EvidenceRef
	ids := append([]string{}, cause.Docs...)
	ids = append(ids, effect.Docs...)
	for _, id := range ids {
		if len(refs) >= max {
			break
		}
		if d, ok := docIdx[id]; ok {
			refs = append(refs, evidenceRef(d))
		}
	}
	return refs
}

func timelinePosition(cur, ref *models.Event) models.TimelinePosition {
	switch {
	case cur.TSEnd.Before(ref.TSStart):
		return models.PositionBefore
	case cur.TSStart.After(ref.TSEnd):
		return models.PositionAfter
	default:
		return models.PositionOverlap
	}
}

// extractEvents groups documents into candidate events by shared salient
// entity + date proximity (§4.4 event extraction, supplemented).
func extractEvents(docs []*models.Document) []*models.Event {
	if len(docs) == 0 {
		return nil
	}
	sorted := sortDocsByDate(docs)

	var events []*models.Event
	assigned := make(map[string]bool)

	for _, d := range sorted {
		if assigned[d.ArticleID] {
			continue
		}
		entity := leadingEntity(d)
		group := []*models.Document{d}
		assigned[d.ArticleID] = true

		for _, other := range sorted {
			if assigned[other.ArticleID] {
				continue
			}
			if !hasEntity(other, entity) {
				continue
			}
			if absDuration(other.Date.Sub(d.Date)) > 3*24*time.Hour {
				continue
			}
			group = append(group, other)
			assigned[other.ArticleID] = true
		}

		events = append(events, buildEvent(len(events), group, entity))
	}

	return events
}

func buildEvent(idx int, group []*models.Document, entity string) *models.Event {
	start := group[0].Date
	end := group[0].Date
	entitySet := map[string]bool{}
	var docIDs []string
	for _, d := range group {
		start = minTime(start, d.Date)
		end = maxTime(end, d.Date)
		docIDs = append(docIDs, d.ArticleID)
		for _, e := range d.Entities {
			entitySet[e] = true
		}
	}
	entities := make([]string, 0, len(entitySet))
	for e := range entitySet {
		entities = append(entities, e)
	}

	title := entity
	if title == "" {
		title = group[0].Title
	}
	title = fmt.Sprintf("%s (%s to %s)", title, start.Format("2006-01-02"), end.Format("2006-01-02"))

	return &models.Event{
		ID:       fmt.Sprintf("evt-%d", idx+1),
		Title:    title,
		TSStart:  start,
		TSEnd:    end,
		Entities: entities,
		Docs:     docIDs,
	}
}

// refineEventTitles may issue one LLM call per event to improve its title,
// falling back to the deterministic "leading entity + date range" title
// already computed by buildEvent when the call is skipped or fails.
func refineEventTitles(ctx context.Context, router *services.ModelRouter, bm *services.BudgetManager, events []*models.Event, warnings *[]string) []*models.Event {
	for _, e := range events {
		if !bm.Budget().CanAfford(150, 0.2, 0) {
			break
		}
		prompt := fmt.Sprintf("Summarize this news event in a short title (<=80 chars): entities=%s, range=%s to %s",
			strings.Join(e.Entities, ", "), e.TSStart.Format("2006-01-02"), e.TSEnd.Format("2006-01-02"))
		text, usage, err := router.CallWithFallback(ctx, prompt, "gpt-5-mini", []string{"claude-4.5"}, 8, 80, 0.4)
		if err != nil {
			continue
		}
		bm.Budget().RecordUsage(usage.TokensUsed, usage.CostCents, float64(usage.LatencyMS)/1000)
		if strings.TrimSpace(text) != "" {
			e.Title = strings.TrimSpace(text)
		}
	}
	return events
}

func leadingEntity(d *models.Document) string {
	if len(d.Entities) > 0 {
		return d.Entities[0]
	}
	return ""
}

func hasEntity(d *models.Document, entity string) bool {
	if entity == "" {
		return false
	}
	for _, e := range d.Entities {
		if e == entity {
			return true
		}
	}
	return false
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
