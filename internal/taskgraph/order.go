package taskgraph

// ExecutionOrder computes a full topological ordering over all
// registered tasks using Kahn's algorithm. Every dependency precedes
// its dependents; the relative order of independent tasks is
// unspecified. When the output covers fewer tasks than are registered,
// the residue belongs to one or more cycles and a CycleError naming it
// is returned.
func (g *Graph) ExecutionOrder() ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	inDegree := make(map[string]int, len(g.tasks))
	dependents := make(map[string][]string, len(g.tasks))

	for id, t := range g.tasks {
		if _, ok := inDegree[id]; !ok {
			inDegree[id] = 0
		}
		for _, dep := range t.Dependencies {
			// Edge dep -> id. Edges into unregistered tasks still
			// count toward the in-degree so a task with a dangling
			// dependency never sorts as a root.
			inDegree[id]++
			dependents[dep] = append(dependents[dep], id)
		}
	}

	frontier := make([]string, 0, len(g.tasks))
	for id, deg := range inDegree {
		if deg == 0 {
			frontier = append(frontier, id)
		}
	}

	order := make([]string, 0, len(g.tasks))
	for len(frontier) > 0 {
		node := frontier[len(frontier)-1]
		frontier = frontier[:len(frontier)-1]
		order = append(order, node)

		for _, dependent := range dependents[node] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				frontier = append(frontier, dependent)
			}
		}
	}

	if len(order) != len(g.tasks) {
		remaining := make([]string, 0, len(g.tasks)-len(order))
		seen := make(map[string]struct{}, len(order))
		for _, id := range order {
			seen[id] = struct{}{}
		}
		for id := range g.tasks {
			if _, ok := seen[id]; !ok {
				remaining = append(remaining, id)
			}
		}
		return nil, &CycleError{Remaining: remaining}
	}
	return order, nil
}
