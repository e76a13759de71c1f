package agents

import (
	"testing"
	"time"

	"github.com/rssnews/orchestrator/internal/domain/models"
	"github.com/stretchr/testify/assert"
)

func TestGroupByTopic_FallsBackToGeneralWhenNoEntities(t *testing.T) {
	docs := []*models.Document{
		{ArticleID: "a1"},
		{ArticleID: "a2", Entities: []string{"fed"}},
	}
	groups := groupByTopic(docs)
	assert.Len(t, groups["general"], 1)
	assert.Len(t, groups["fed"], 1)
}

func TestTrendDirection_UpWhenLastScoreExceedsFirst(t *testing.T) {
	now := time.Now()
	docs := []*models.Document{
		{ArticleID: "a1", Date: now.AddDate(0, 0, -2), Score: 0.1},
		{ArticleID: "a2", Date: now.AddDate(0, 0, -1), Score: 0.5},
	}
	direction, support := trendDirection(docs)
	assert.Equal(t, models.DirectionUp, direction)
	assert.GreaterOrEqual(t, support, 0.0)
	assert.LessOrEqual(t, support, 1.0)
}

func TestTrendDirection_DownWhenLastScoreBelowFirst(t *testing.T) {
	docs := []*models.Document{
		{ArticleID: "a1", Score: 0.9},
		{ArticleID: "a2", Score: 0.1},
	}
	direction, _ := trendDirection(docs)
	assert.Equal(t, models.DirectionDown, direction)
}

func TestTrendDirection_FlatWithinThreshold(t *testing.T) {
	docs := []*models.Document{
		{ArticleID: "a1", Score: 0.5},
		{ArticleID: "a2", Score: 0.52},
	}
	direction, _ := trendDirection(docs)
	assert.Equal(t, models.DirectionFlat, direction)
}

func TestTrendDirection_EmptyDefaultsToFlatWithHalfSupport(t *testing.T) {
	direction, support := trendDirection(nil)
	assert.Equal(t, models.DirectionFlat, direction)
	assert.Equal(t, 0.5, support)
}

func TestTopScored_PicksHighestScoringDocument(t *testing.T) {
	docs := []*models.Document{
		{ArticleID: "a1", Score: 0.2},
		{ArticleID: "a2", Score: 0.9},
		{ArticleID: "a3", Score: 0.5},
	}
	best := topScored(docs)
	assert.Equal(t, "a2", best.ArticleID)
}
