package agents

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rssnews/orchestrator/internal/application/services"
	"github.com/rssnews/orchestrator/internal/domain/models"
)

// GraphAgent builds a labelled multigraph from retrieved documents and
// their entities, computes a bounded subgraph and top paths, and narrates
// the result.
type GraphAgent struct {
	router *services.ModelRouter
}

// NewGraphAgent constructs a GraphAgent over the given router.
func NewGraphAgent(router *services.ModelRouter) *GraphAgent {
	return &GraphAgent{router: router}
}

// GraphParams bundles the inputs to Run.
type GraphParams struct {
	Docs      []*models.Document
	Budget    *services.BudgetManager
	HopLimit  int
	MaxNodes  int
	MaxEdges  int
}

// Run produces the Graph result (§4.4).
func (a *GraphAgent) Run(ctx context.Context, p GraphParams) (*models.GraphResult, []string) {
	var warnings []string

	hopLimit := p.HopLimit
	if hopLimit <= 0 {
		hopLimit = 3
	}
	maxNodes := p.MaxNodes
	if maxNodes <= 0 {
		maxNodes = 200
	}
	maxEdges := p.MaxEdges
	if maxEdges <= 0 {
		maxEdges = 600
	}

	nodes, edges := buildGraph(p.Docs, maxNodes, maxEdges)
	paths := bfsPaths(nodes, edges, hopLimit)

	answer := a.narrate(ctx, p.Budget, nodes, paths, &warnings)

	return &models.GraphResult{Nodes: nodes, Edges: edges, Paths: paths, Answer: answer}, warnings
}

// buildGraph constructs node types {topic, article, entity} and
// relates_to edges weighted by document score, in descending score order,
// bounded by maxNodes/maxEdges.
func buildGraph(docs []*models.Document, maxNodes, maxEdges int) ([]models.GraphNode, []models.GraphEdge) {
	sorted := append([]*models.Document{}, docs...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })

	nodeSet := make(map[string]models.GraphNode)
	var edges []models.GraphEdge

	addNode := func(id, label, kind string) {
		if _, ok := nodeSet[id]; !ok && len(nodeSet) < maxNodes {
			nodeSet[id] = models.GraphNode{ID: id, Label: label, Kind: kind}
		}
	}

	for _, d := range sorted {
		artID := "article:" + d.ArticleID
		addNode(artID, d.Title, "article")

		topic := leadingEntity(d)
		if topic == "" {
			topic = "general"
		}
		topicID := "topic:" + topic
		addNode(topicID, topic, "topic")

		if len(edges) < maxEdges {
			if _, ok := nodeSet[artID]; ok {
				if _, ok := nodeSet[topicID]; ok {
					edges = append(edges, models.GraphEdge{
						Source:   topicID,
						Target:   artID,
						Relation: "relates_to",
						Weight:   clamp01(d.Score),
						DocIDs:   []string{d.ArticleID},
					})
				}
			}
		}

		for _, e := range d.Entities {
			entID := "entity:" + e
			addNode(entID, e, "entity")

			if len(edges) >= maxEdges {
				continue
			}
			if _, ok := nodeSet[artID]; !ok {
				continue
			}
			if _, ok := nodeSet[entID]; !ok {
				continue
			}
			edges = append(edges, models.GraphEdge{
				Source:   artID,
				Target:   entID,
				Relation: "relates_to",
				Weight:   clamp01(d.Score),
				DocIDs:   []string{d.ArticleID},
			})
		}
	}

	nodes := make([]models.GraphNode, 0, len(nodeSet))
	for _, n := range nodeSet {
		nodes = append(nodes, n)
	}
	sort.SliceStable(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })

	return nodes, edges
}

// bfsPaths computes bounded BFS paths from the first node (nodes arrive
// sorted by ID) to the first later node whose kind differs from it,
// scored as the product of edge weights. Node scores play no part in
// choosing the endpoints.
func bfsPaths(nodes []models.GraphNode, edges []models.GraphEdge, hopLimit int) []models.GraphPath {
	if len(nodes) < 2 {
		return nil
	}

	adj := make(map[string][]models.GraphEdge)
	for _, e := range edges {
		adj[e.Source] = append(adj[e.Source], e)
		adj[e.Target] = append(adj[e.Target], models.GraphEdge{Source: e.Target, Target: e.Source, Relation: e.Relation, Weight: e.Weight, DocIDs: e.DocIDs})
	}

	var start, end string
	for _, n := range nodes {
		if start == "" {
			start = n.ID
			continue
		}
		if n.Kind != nodeKind(nodes, start) {
			end = n.ID
			break
		}
	}
	if end == "" {
		return nil
	}

	type frontierEntry struct {
		node  string
		path  []string
		score float64
	}

	visited := map[string]bool{start: true}
	queue := []frontierEntry{{node: start, path: []string{start}, score: 1.0}}
	var results []models.GraphPath

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if cur.node == end && len(cur.path) > 1 {
			results = append(results, models.GraphPath{Nodes: cur.path, Hops: len(cur.path) - 1, Score: cur.score})
			continue
		}
		if len(cur.path)-1 >= hopLimit {
			continue
		}

		for _, e := range adj[cur.node] {
			if visited[e.Target] {
				continue
			}
			visited[e.Target] = true
			newPath := append(append([]string{}, cur.path...), e.Target)
			queue = append(queue, frontierEntry{node: e.Target, path: newPath, score: cur.score * e.Weight})
		}
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > 5 {
		results = results[:5]
	}
	return results
}

func nodeKind(nodes []models.GraphNode, id string) string {
	for _, n := range nodes {
		if n.ID == id {
			return n.Kind
		}
	}
	return ""
}

// narrate runs the narrative-answer LLM call (§4.4): primary gpt-5,
// fallback [claude-4.5], timeout 12s, max_tokens 400, temp 0.5. Falls back
// to a templated sentence on failure.
func (a *GraphAgent) narrate(ctx context.Context, bm *services.BudgetManager, nodes []models.GraphNode, paths []models.GraphPath, warnings *[]string) string {
	labels := make([]string, 0, len(nodes))
	for _, n := range nodes {
		labels = append(labels, n.Label)
	}
	hops := 0
	if len(paths) > 0 {
		hops = paths[0].Hops
	}

	if !bm.Budget().CanAfford(250, 0.3, 0) {
		return fmt.Sprintf("Found %d related nodes across %d hops.", len(nodes), hops)
	}

	prompt := fmt.Sprintf("Nodes: %s\nTop paths: %d\nDescribe the relationships in 2-3 sentences.", strings.Join(labels, ", "), len(paths))
	text, usage, err := a.router.CallWithFallback(ctx, prompt, "gpt-5", []string{"claude-4.5"}, 12, 400, 0.5)
	if err != nil {
		*warnings = append(*warnings, fmt.Sprintf("graph narrative generation failed: %v", err))
		return fmt.Sprintf("Found %d related nodes across %d hops.", len(nodes), hops)
	}
	bm.Budget().RecordUsage(usage.TokensUsed, usage.CostCents, float64(usage.LatencyMS)/1000)
	return text
}
