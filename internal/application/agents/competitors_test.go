package agents

import (
	"testing"

	"github.com/rssnews/orchestrator/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompetitorsAgent_Run_RanksBySharOfVoice(t *testing.T) {
	docs := []*models.Document{
		{ArticleID: "1", URL: "https://reuters.com/a1", Entities: []string{"fed"}},
		{ArticleID: "2", URL: "https://reuters.com/a2", Entities: []string{"fed"}},
		{ArticleID: "3", URL: "https://bloomberg.com/a3", Entities: []string{"fed"}},
	}
	agent := NewCompetitorsAgent()

	result := agent.Run(docs)
	require.Len(t, result.TopDomains, 2)
	assert.Equal(t, "reuters.com", result.TopDomains[0]) // 2 articles beats 1
	assert.Equal(t, models.StanceLeader, result.Positioning[0].Stance)
}

func TestCompetitorsAgent_Run_DetectsTopicOverlap(t *testing.T) {
	docs := []*models.Document{
		{ArticleID: "1", URL: "https://reuters.com/a1", Entities: []string{"fed"}},
		{ArticleID: "2", URL: "https://bloomberg.com/a2", Entities: []string{"fed"}},
	}
	agent := NewCompetitorsAgent()

	result := agent.Run(docs)
	require.Len(t, result.Overlap, 1)
	assert.Equal(t, "fed", result.Overlap[0].Topic)
}

func TestCompetitorsAgent_Run_EmptyDocsProducesEmptyResult(t *testing.T) {
	agent := NewCompetitorsAgent()
	result := agent.Run(nil)
	assert.Empty(t, result.TopDomains)
	assert.Empty(t, result.Positioning)
	assert.Empty(t, result.Overlap)
}

func TestHostOf_StripsSchemeAndPath(t *testing.T) {
	assert.Equal(t, "reuters.com", hostOf("https://reuters.com/a1?x=1"))
	assert.Equal(t, "reuters.com", hostOf("http://reuters.com"))
	assert.Equal(t, "", hostOf(""))
}
