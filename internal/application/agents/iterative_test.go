package agents

import (
	"context"
	"strings"
	"testing"

	"github.com/rssnews/orchestrator/internal/application/services"
	"github.com/rssnews/orchestrator/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFollowUpQuestions_DefaultLanguageBase(t *testing.T) {
	qs := followUpQuestions("en", "a regular market update")
	assert.Len(t, qs, 3)
	assert.Contains(t, qs[0], "sources")
}

func TestFollowUpQuestions_SpanishBase(t *testing.T) {
	qs := followUpQuestions("es", "una actualización regular")
	assert.Len(t, qs, 3)
	assert.Contains(t, qs[0], "fuentes")
}

func TestFollowUpQuestions_PrependsRegulatoryQuestionForAI(t *testing.T) {
	qs := followUpQuestions("en", "this covers artificial intelligence policy")
	require.NotEmpty(t, qs)
	assert.Contains(t, qs[0], "regulatory")
	assert.LessOrEqual(t, len(qs), 5)
}

func TestFollowUpQuestions_PrependsRegulatoryQuestionForStandaloneAIWord(t *testing.T) {
	qs := followUpQuestions("en", "new AI rules take effect next quarter")
	require.NotEmpty(t, qs)
	assert.Contains(t, qs[0], "regulatory")
}

func TestFollowUpQuestions_DoesNotMatchAIAsSubstringOfUnrelatedWord(t *testing.T) {
	qs := followUpQuestions("en", "analysts maintain their forecast and remain uncertain")
	assert.Len(t, qs, 3)
	assert.NotContains(t, qs[0], "regulatory")
}

func TestDocKey_CombinesArticleIDAndURL(t *testing.T) {
	d := &models.Document{ArticleID: "a1", URL: "https://reuters.com/a1"}
	assert.Equal(t, "a1|https://reuters.com/a1", docKey(d))
}

func TestLastN_ReturnsTailWhenLonger(t *testing.T) {
	docs := []*models.Document{{ArticleID: "1"}, {ArticleID: "2"}, {ArticleID: "3"}}
	got := lastN(docs, 2)
	require.Len(t, got, 2)
	assert.Equal(t, "2", got[0].ArticleID)
	assert.Equal(t, "3", got[1].ArticleID)
}

func TestLastN_ReturnsAllWhenShorterThanN(t *testing.T) {
	docs := []*models.Document{{ArticleID: "1"}}
	got := lastN(docs, 5)
	assert.Len(t, got, 1)
}

func TestIterativeAgent_Run_StopsEarlyWhenBudgetExhausted(t *testing.T) {
	router := services.NewModelRouter(nil, nil)
	agent := NewIterativeAgent(router)
	bm := services.NewBudgetManager(models.NewBudget(0, 0, 0))

	docs := []*models.Document{{ArticleID: "a1", Title: "Fed raises rates"}}
	result, warnings := agent.Run(context.Background(), IterativeParams{
		Query:       "what happened with rates?",
		InitialDocs: docs,
		Depth:       3,
		Budget:      bm,
	})

	require.NotNil(t, result)
	assert.Empty(t, result.Steps)
	found := false
	for _, w := range warnings {
		if strings.Contains(w, "stopped early") {
			found = true
		}
	}
	assert.True(t, found, "expected an early-stop warning, got %v", warnings)
}

func TestIterativeAgent_Run_ProducesStepPerIterationWithoutSelfCheck(t *testing.T) {
	router := services.NewModelRouter(nil, nil)
	agent := NewIterativeAgent(router)
	bm := services.NewBudgetManager(models.NewBudget(1_000_000, 1000, 1000))

	docs := []*models.Document{{ArticleID: "a1", Title: "Fed raises rates"}}
	result, _ := agent.Run(context.Background(), IterativeParams{
		Query:            "what happened with rates?",
		InitialDocs:      docs,
		Depth:            2,
		DisableSelfCheck: true,
		Budget:           bm,
	})

	require.Len(t, result.Steps, 2)
	assert.Equal(t, 1, result.Steps[0].Iteration)
	assert.Equal(t, 2, result.Steps[1].Iteration)
	assert.Equal(t, "self-check and refinement", result.Steps[1].Reason)
	assert.NotEmpty(t, result.FollowUps)
}

func TestIterativeAgent_Run_DepthClampedToAtLeastOne(t *testing.T) {
	router := services.NewModelRouter(nil, nil)
	agent := NewIterativeAgent(router)
	bm := services.NewBudgetManager(models.NewBudget(1_000_000, 1000, 1000))

	docs := []*models.Document{{ArticleID: "a1"}}
	result, _ := agent.Run(context.Background(), IterativeParams{
		Query:       "q",
		InitialDocs: docs,
		Depth:       0,
		Budget:      bm,
	})

	assert.Len(t, result.Steps, 1)
}
