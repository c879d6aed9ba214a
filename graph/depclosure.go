package graph

import (
	"fmt"

	"github.com/evalgo/flowengine/pin"
)

// PureDependencyClosures computes, for every pure node in g (impure nodes
// get no entry), its full reverse-topological list of pure transitive
// predecessors reachable by walking non-Execution input pins' DependsOn
// edges, each listed once; a pure cycle is cut where the walk meets a node
// already on its path. Impure predecessors
// are never inlined here: they activate through control propagation, not
// through a pull closure.
//
// Grounded on oriys-nova's internal/workflow/dag.go BuildDependencyMap
// (node_key -> predecessor node_keys), walked transitively here instead
// of returned as a single-level map, and repointed at pin dependency
// edges instead of workflow node edges.
func PureDependencyClosures(g *ExecutionGraph) (map[string][]*RuntimeNode, error) {
	result := make(map[string][]*RuntimeNode, len(g.Nodes))
	for id, rn := range g.Nodes {
		if !rn.Snapshot.Pure() {
			continue
		}
		visited := make(map[string]bool)
		stack := make(map[string]bool)
		order, err := pureClosureDFS(g, id, visited, stack)
		if err != nil {
			return nil, err
		}
		nodes := make([]*RuntimeNode, 0, len(order))
		for _, nid := range order {
			if nid == id {
				continue
			}
			nodes = append(nodes, g.Nodes[nid])
		}
		result[id] = nodes
	}
	return result, nil
}

func pureClosureDFS(g *ExecutionGraph, nodeID string, visited, stack map[string]bool) ([]string, error) {
	visited[nodeID] = true
	stack[nodeID] = true

	rn, ok := g.Nodes[nodeID]
	if !ok {
		return nil, fmt.Errorf("graph: dependency closure references unknown node %s", nodeID)
	}

	var order []string
	for _, rp := range rn.Pins() {
		if rp.Decl.IsExecution() || rp.Decl.Direction != pin.DirectionInput {
			continue
		}
		for _, producer := range rp.DependsOn() {
			if !producer.Node().Snapshot.Pure() {
				continue
			}
			depID := producer.NodeID
			if stack[depID] {
				// A pure cycle is broken here: depID is already on the walk's path.
				continue
			}
			if !visited[depID] {
				sub, err := pureClosureDFS(g, depID, visited, stack)
				if err != nil {
					return nil, err
				}
				// sub already ends with depID itself.
				order = append(order, sub...)
			}
		}
	}

	stack[nodeID] = false
	return append(order, nodeID), nil
}
