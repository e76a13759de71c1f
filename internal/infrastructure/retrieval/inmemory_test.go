package retrieval

import (
	"context"
	"testing"
	"time"

	"github.com/rssnews/orchestrator/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDocs(now time.Time) []*models.Document {
	return []*models.Document{
		{ArticleID: "a1", Title: "Fed raises interest rates", URL: "https://reuters.com/a1", Date: now.AddDate(0, 0, -1), Snippet: "The Federal Reserve raised rates today."},
		{ArticleID: "a2", Title: "Local bakery wins award", URL: "https://example-fake-news.com/a2", Date: now.AddDate(0, 0, -2), Snippet: "A neighborhood bakery won a prize."},
		{ArticleID: "a3", Title: "Fed holds rates steady", URL: "https://bloomberg.com/a3", Date: now.AddDate(0, 0, -40), Snippet: "The central bank held rates steady last month."},
	}
}

func TestInMemoryClient_Retrieve_FiltersByWindow(t *testing.T) {
	now := time.Now()
	client := NewInMemoryClient(sampleDocs(now)).(*InMemoryClient)
	client.clock = func() time.Time { return now }

	docs, err := client.Retrieve(context.Background(), "Fed rates", 7, "en", 10, true, nil)
	require.NoError(t, err)

	var ids []string
	for _, d := range docs {
		ids = append(ids, d.ArticleID)
	}
	assert.Contains(t, ids, "a1")
	assert.NotContains(t, ids, "a3") // outside the 7-day window
}

func TestInMemoryClient_Retrieve_RerankOrdersByScore(t *testing.T) {
	now := time.Now()
	client := NewInMemoryClient(sampleDocs(now)).(*InMemoryClient)
	client.clock = func() time.Time { return now }

	docs, err := client.Retrieve(context.Background(), "Fed rates", 60, "en", 10, true, nil)
	require.NoError(t, err)
	require.NotEmpty(t, docs)

	// a1/a3 mention "Fed rates"; a2 does not, so it should rank last.
	assert.Equal(t, "a2", docs[len(docs)-1].ArticleID)
}

func TestInMemoryClient_Retrieve_SourceFilter(t *testing.T) {
	now := time.Now()
	client := NewInMemoryClient(sampleDocs(now)).(*InMemoryClient)
	client.clock = func() time.Time { return now }

	docs, err := client.Retrieve(context.Background(), "Fed", 60, "en", 10, false, []string{"reuters.com"})
	require.NoError(t, err)

	require.Len(t, docs, 1)
	assert.Equal(t, "a1", docs[0].ArticleID)
}

func TestInMemoryClient_Retrieve_KFinalTruncates(t *testing.T) {
	now := time.Now()
	client := NewInMemoryClient(sampleDocs(now)).(*InMemoryClient)
	client.clock = func() time.Time { return now }

	docs, err := client.Retrieve(context.Background(), "Fed", 60, "en", 1, true, nil)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestInMemoryClient_Index_Dedupes(t *testing.T) {
	now := time.Now()
	client := NewInMemoryClient(nil).(*InMemoryClient)
	client.clock = func() time.Time { return now }

	client.Index([]*models.Document{{ArticleID: "a1", Title: "v1", Date: now}})
	client.Index([]*models.Document{{ArticleID: "a1", Title: "v2", Date: now}})

	docs, err := client.Retrieve(context.Background(), "", 0, "en", 10, false, nil)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "v2", docs[0].Title)
}
