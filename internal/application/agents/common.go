package agents

import (
	"sort"
	"time"

	"github.com/rssnews/orchestrator/internal/domain/models"
)

// evidenceRef builds an EvidenceRef from a retrieved document.
func evidenceRef(d *models.Document) models.EvidenceRef {
	return models.EvidenceRef{
		ArticleID: d.ArticleID,
		URL:       d.URL,
		Date:      d.Date.Format("2006-01-02"),
	}
}

// sortDocsByDate returns docs ordered by ascending date (stable).
func sortDocsByDate(docs []*models.Document) []*models.Document {
	out := append([]*models.Document{}, docs...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

// docByArticleID indexes a document slice by article id for quick lookup.
func docByArticleID(docs []*models.Document) map[string]*models.Document {
	idx := make(map[string]*models.Document, len(docs))
	for _, d := range docs {
		idx[d.ArticleID] = d
	}
	return idx
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// truncate bounds s to at most n bytes, matching the evidence-snippet cap (§4.5 check 1).
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
