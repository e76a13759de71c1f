package agents

import (
	"sort"
	"strings"

	"github.com/rssnews/orchestrator/internal/domain/models"
)

// CompetitorsAgent derives domain positioning and overlap from the
// retrieved corpus by share-of-voice (§4.4).
type CompetitorsAgent struct{}

// NewCompetitorsAgent constructs a CompetitorsAgent.
func NewCompetitorsAgent() *CompetitorsAgent {
	return &CompetitorsAgent{}
}

// Run produces the Competitors result.
func (a *CompetitorsAgent) Run(docs []*models.Document) *models.CompetitorsResult {
	domainCounts := make(map[string]int)
	domainTopics := make(map[string]map[string]bool)

	for _, d := range docs {
		domain := hostOf(d.URL)
		if domain == "" {
			continue
		}
		domainCounts[domain]++
		topic := leadingEntity(d)
		if topic == "" {
			continue
		}
		if domainTopics[domain] == nil {
			domainTopics[domain] = make(map[string]bool)
		}
		domainTopics[domain][topic] = true
	}

	type domainCount struct {
		domain string
		count  int
	}
	ordered := make([]domainCount, 0, len(domainCounts))
	for d, c := range domainCounts {
		ordered = append(ordered, domainCount{d, c})
	}
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].count > ordered[j].count })

	result := &models.CompetitorsResult{}
	n := len(ordered)
	for i, dc := range ordered {
		stance := models.StanceFastFollower
		if n >= 4 {
			switch {
			case i < n/4:
				stance = models.StanceLeader
			case i >= n-n/4:
				stance = models.StanceNiche
			}
		} else if i == 0 {
			stance = models.StanceLeader
		}

		result.Positioning = append(result.Positioning, models.CompetitorPositioning{
			Domain: dc.domain,
			Stance: stance,
			Notes:  "derived from share-of-voice over the retrieved corpus",
		})
		result.TopDomains = append(result.TopDomains, dc.domain)
	}

	for i := 0; i < len(ordered); i++ {
		for j := i + 1; j < len(ordered); j++ {
			da, db := ordered[i].domain, ordered[j].domain
			for topic := range domainTopics[da] {
				if domainTopics[db][topic] {
					result.Overlap = append(result.Overlap, models.CompetitorOverlap{
						DomainA: da, DomainB: db, Topic: topic,
					})
				}
			}
		}
	}

	return result
}

func hostOf(url string) string {
	s := url
	for _, prefix := range []string{"https://", "http://"} {
		if strings.HasPrefix(s, prefix) {
			s = s[len(prefix):]
			break
		}
	}
	for i, c := range s {
		if c == '/' || c == ':' || c == '?' {
			return s[:i]
		}
	}
	return s
}
