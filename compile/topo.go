package compile

import (
	"fmt"
	"slices"

	"github.com/poiesic/loom/core"
)

// topoSort orders the nodes with Kahn's algorithm over the resolved
// wires. Ready nodes are drained in ascending NodeID for a
// deterministic order. Any node left with incoming wires after the
// drain sits on a cycle.
func topoSort(ids []core.NodeID, wires []Wire) ([]core.NodeID, error) {
	indegree := make(map[core.NodeID]int, len(ids))
	successors := make(map[core.NodeID][]core.NodeID, len(ids))
	for _, id := range ids {
		indegree[id] = 0
	}
	for _, w := range wires {
		successors[w.From] = append(successors[w.From], w.To)
		indegree[w.To]++
	}

	var ready []core.NodeID
	for _, id := range ids {
		if indegree[id] == 0 {
			ready = append(ready, id)
		}
	}
	slices.Sort(ready)

	order := make([]core.NodeID, 0, len(ids))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)

		for _, next := range successors[id] {
			indegree[next]--
			if indegree[next] == 0 {
				// Insert keeping the ready queue sorted
				at, _ := slices.BinarySearch(ready, next)
				ready = slices.Insert(ready, at, next)
			}
		}
	}

	if len(order) != len(ids) {
		var stuck []core.NodeID
		for id, deg := range indegree {
			if deg > 0 {
				stuck = append(stuck, id)
			}
		}
		slices.Sort(stuck)
		return nil, fmt.Errorf("%w: cycle through nodes %v", core.ErrInvalidDefinition, stuck)
	}
	return order, nil
}
