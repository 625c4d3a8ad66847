package rings

import (
	"github.com/agenthands/attendance/internal/core/model"
)

// LabelPropagationDetector splits loosely bridged components into tighter
// rings. Edge weights are pair similarities.
type LabelPropagationDetector struct {
	MaxIterations int
}

func NewLabelPropagationDetector() *LabelPropagationDetector {
	return &LabelPropagationDetector{
		MaxIterations: 20,
	}
}

func (d *LabelPropagationDetector) Detect(sigs []model.Signature, dups []model.DuplicateResult) []model.Ring {
	g := newGraph(len(sigs), dups)

	labels := make([]int, len(sigs))
	for i := range labels {
		labels[i] = i
	}

	for iter := 0; iter < d.MaxIterations; iter++ {
		changed := 0
		for u, edges := range g.adj {
			if len(edges) == 0 {
				continue
			}

			weights := make(map[int]float64)
			for _, e := range edges {
				weights[labels[e.to]] += e.weight
			}

			maxWeight := 0.0
			for _, w := range weights {
				if w > maxWeight {
					maxWeight = w
				}
			}

			// Keep the current label on a tie, otherwise take the largest best label.
			best := labels[u]
			if weights[best] != maxWeight {
				best = -1
				for label, w := range weights {
					if w == maxWeight && label > best {
						best = label
					}
				}
			}

			if labels[u] != best {
				labels[u] = best
				changed++
			}
		}
		if changed == 0 {
			break
		}
	}

	byLabel := make(map[int][]int)
	var order []int
	for u, label := range labels {
		if len(g.adj[u]) == 0 {
			continue
		}
		if _, ok := byLabel[label]; !ok {
			order = append(order, label)
		}
		byLabel[label] = append(byLabel[label], u)
	}

	groups := make([][]int, 0, len(order))
	for _, label := range order {
		groups = append(groups, byLabel[label])
	}
	return buildRings(sigs, g, groups)
}
