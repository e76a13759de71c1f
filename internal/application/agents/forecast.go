package agents

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rssnews/orchestrator/internal/application/services"
	"github.com/rssnews/orchestrator/internal/domain/models"
)

// ForecastAgent groups documents by topic and derives a directional
// forecast with a confidence interval and supporting drivers (§4.4).
type ForecastAgent struct {
	router *services.ModelRouter
}

// NewForecastAgent constructs a ForecastAgent over the given router.
func NewForecastAgent(router *services.ModelRouter) *ForecastAgent {
	return &ForecastAgent{router: router}
}

// ForecastParams bundles the inputs to Run.
type ForecastParams struct {
	Docs   []*models.Document
	Budget *services.BudgetManager
}

// Run produces the Forecast result.
func (a *ForecastAgent) Run(ctx context.Context, p ForecastParams) (*models.ForecastResult, []string) {
	var warnings []string
	groups := groupByTopic(p.Docs)

	result := &models.ForecastResult{}
	for topic, docs := range groups {
		sorted := sortDocsByDate(docs)

		direction, supportFrac := trendDirection(sorted)
		ci := models.ConfidenceInterval{
			Lower: clamp01(supportFrac - 0.15),
			Upper: clamp01(supportFrac + 0.15),
		}

		top := topScored(sorted)
		driver := models.ForecastDriver{
			Rationale: fmt.Sprintf("Based on %d supporting articles", len(sorted)),
			Evidence:  evidenceRef(top),
		}
		driver = refineDriverRationale(ctx, a.router, p.Budget, topic, driver, len(sorted), &warnings)

		result.Items = append(result.Items, models.ForecastItem{
			Topic:              topic,
			Direction:          direction,
			ConfidenceInterval: ci,
			Drivers:            []models.ForecastDriver{driver},
			Horizon:            "30d",
		})
	}

	sort.SliceStable(result.Items, func(i, j int) bool { return result.Items[i].Topic < result.Items[j].Topic })
	return result, warnings
}

// refineDriverRationale may issue one LLM call per forecast item to
// improve the driver's free-text rationale; on failure keeps the
// templated rationale already set.
func refineDriverRationale(ctx context.Context, router *services.ModelRouter, bm *services.BudgetManager, topic string, driver models.ForecastDriver, n int, warnings *[]string) models.ForecastDriver {
	if !bm.Budget().CanAfford(150, 0.2, 0) {
		return driver
	}
	prompt := fmt.Sprintf("Topic %q has %d supporting articles. Write a one-sentence rationale for its trend.", topic, n)
	text, usage, err := router.CallWithFallback(ctx, prompt, "gpt-5-mini", []string{"claude-4.5"}, 8, 100, 0.5)
	if err != nil {
		*warnings = append(*warnings, fmt.Sprintf("forecast driver rationale failed for topic %q: %v", topic, err))
		return driver
	}
	bm.Budget().RecordUsage(usage.TokensUsed, usage.CostCents, float64(usage.LatencyMS)/1000)
	if strings.TrimSpace(text) != "" {
		driver.Rationale = strings.TrimSpace(text)
	}
	return driver
}

// groupByTopic groups documents by their leading entity as a topic
// keyword stand-in (no dedicated topic field on Document).
func groupByTopic(docs []*models.Document) map[string][]*models.Document {
	groups := make(map[string][]*models.Document)
	for _, d := range docs {
		topic := leadingEntity(d)
		if topic == "" {
			topic = "general"
		}
		groups[topic] = append(groups[topic], d)
	}
	return groups
}

// trendDirection derives direction from the sign of a simple score trend
// across date-ordered documents, and the fraction of documents whose
// score is at or above the group mean (the "support" fraction).
func trendDirection(sorted []*models.Document) (models.ForecastDirection, float64) {
	if len(sorted) == 0 {
		return models.DirectionFlat, 0.5
	}

	var mean float64
	for _, d := range sorted {
		mean += d.Score
	}
	mean /= float64(len(sorted))

	trend := sorted[len(sorted)-1].Score - sorted[0].Score

	var supporting int
	for _, d := range sorted {
		if d.Score >= mean {
			supporting++
		}
	}
	supportFrac := float64(supporting) / float64(len(sorted))

	switch {
	case trend > 0.05:
		return models.DirectionUp, supportFrac
	case trend < -0.05:
		return models.DirectionDown, supportFrac
	default:
		return models.DirectionFlat, supportFrac
	}
}

func topScored(docs []*models.Document) *models.Document {
	best := docs[0]
	for _, d := range docs {
		if d.Score > best.Score {
			best = d
		}
	}
	return best
}
