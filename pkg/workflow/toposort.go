package workflow

import (
	"sort"

	"github.com/strandworks/strand/pkg/models"
)

// TopoSort computes a topological order of the nodes from the edge list using
// Kahn's algorithm. Ties break deterministically: nodes become ready in edge
// resolution order, and the initial ready set is sorted by node id. A cycle
// is a configuration error reported before any node executes.
func TopoSort(nodes []*models.WorkflowNode, edges []*models.WorkflowEdge) ([]string, error) {
	indegree := make(map[string]int, len(nodes))
	successors := make(map[string][]string, len(nodes))

	for _, node := range nodes {
		indegree[node.ID] = 0
	}

	for _, edge := range edges {
		// Edges referencing unknown nodes were rejected by Workflow.Validate;
		// tolerate them here by skipping.
		if _, ok := indegree[edge.Source]; !ok {
			continue
		}

		if _, ok := indegree[edge.Target]; !ok {
			continue
		}

		successors[edge.Source] = append(successors[edge.Source], edge.Target)
		indegree[edge.Target]++
	}

	ready := make([]string, 0, len(nodes))

	for id, degree := range indegree {
		if degree == 0 {
			ready = append(ready, id)
		}
	}

	sort.Strings(ready)

	order := make([]string, 0, len(nodes))

	for len(ready) > 0 {
		current := ready[0]
		ready = ready[1:]
		order = append(order, current)

		for _, next := range successors[current] {
			indegree[next]--
			if indegree[next] == 0 {
				ready = append(ready, next)
			}
		}
	}

	if len(order) != len(nodes) {
		remaining := make([]string, 0, len(nodes)-len(order))

		for id, degree := range indegree {
			if degree > 0 {
				remaining = append(remaining, id)
			}
		}

		sort.Strings(remaining)

		return nil, &CycleError{Remaining: remaining}
	}

	return order, nil
}
