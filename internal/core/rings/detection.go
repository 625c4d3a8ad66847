package rings

import (
	"slices"

	"github.com/agenthands/attendance/internal/core/model"
)

// Detector groups signatures into rings from the duplicate pairs found
// between them. Pair positions index into sigs.
type Detector interface {
	Detect(sigs []model.Signature, dups []model.DuplicateResult) []model.Ring
}

// ComponentDetector returns every connected component of two or more signatures.
type ComponentDetector struct{}

func NewComponentDetector() *ComponentDetector {
	return &ComponentDetector{}
}

func (d *ComponentDetector) Detect(sigs []model.Signature, dups []model.DuplicateResult) []model.Ring {
	g := newGraph(len(sigs), dups)
	visited := make([]bool, len(sigs))

	var groups [][]int
	for start := range sigs {
		if visited[start] || len(g.adj[start]) == 0 {
			continue
		}
		var component []int
		stack := []int{start}
		visited[start] = true
		for len(stack) > 0 {
			u := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			component = append(component, u)
			for _, e := range g.adj[u] {
				if !visited[e.to] {
					visited[e.to] = true
					stack = append(stack, e.to)
				}
			}
		}
		groups = append(groups, component)
	}

	return buildRings(sigs, g, groups)
}

type edge struct {
	to     int
	weight float64
}

type graph struct {
	adj [][]edge
}

// newGraph builds an undirected graph, ignoring pairs that fall outside
// the signature slice. Neighbors are kept ordered by position.
func newGraph(n int, dups []model.DuplicateResult) *graph {
	g := &graph{adj: make([][]edge, n)}
	for _, d := range dups {
		if d.Original < 0 || d.Original >= n || d.Duplicate < 0 || d.Duplicate >= n || d.Original == d.Duplicate {
			continue
		}
		g.adj[d.Original] = append(g.adj[d.Original], edge{to: d.Duplicate, weight: d.Similarity})
		g.adj[d.Duplicate] = append(g.adj[d.Duplicate], edge{to: d.Original, weight: d.Similarity})
	}
	for _, edges := range g.adj {
		slices.SortFunc(edges, func(a, b edge) int { return a.to - b.to })
	}
	return g
}

func buildRings(sigs []model.Signature, g *graph, groups [][]int) []model.Ring {
	rings := make([]model.Ring, 0, len(groups))
	for _, members := range groups {
		if len(members) < 2 {
			continue
		}
		slices.Sort(members)

		inRing := make(map[int]bool, len(members))
		for _, m := range members {
			inRing[m] = true
		}

		ring := model.Ring{
			SignatureIDs: make([]int64, 0, len(members)),
			StudentIDs:   []int64{},
		}
		for _, m := range members {
			ring.SignatureIDs = append(ring.SignatureIDs, sigs[m].ID)
			if sid := sigs[m].StudentID; sid != nil && !slices.Contains(ring.StudentIDs, *sid) {
				ring.StudentIDs = append(ring.StudentIDs, *sid)
			}
			for _, e := range g.adj[m] {
				if inRing[e.to] && e.weight > ring.MaxSimilarity {
					ring.MaxSimilarity = e.weight
				}
			}
		}
		slices.Sort(ring.StudentIDs)
		rings = append(rings, ring)
	}

	slices.SortFunc(rings, func(a, b model.Ring) int {
		switch {
		case a.SignatureIDs[0] < b.SignatureIDs[0]:
			return -1
		case a.SignatureIDs[0] > b.SignatureIDs[0]:
			return 1
		}
		return 0
	})
	return rings
}
