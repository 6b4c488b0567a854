package core

// Route finds the tree path between two satellites in the spanning
// forest via BFS. It returns the node sequence [src, ..., dst] and true,
// or nil and false when the endpoints sit in different trees. An
// unreachable destination is a normal outcome, not an error.
//
// Tree paths are unique, so reversing the endpoints yields exactly the
// reversed path.
func Route(f *SpanningForest, src, dst string) ([]string, bool) {
	if _, ok := f.component[src]; !ok {
		return nil, false
	}
	if src == dst {
		return []string{src}, true
	}
	if !f.Connected(src, dst) {
		return nil, false
	}

	queue := []string{src}
	visited := map[string]bool{src: true}
	prev := make(map[string]string)

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if current == dst {
			// Reconstruct [dst, ..., src] then reverse in place.
			path := make([]string, 0)
			node := dst
			for node != "" {
				path = append(path, node)
				node = prev[node]
			}
			for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
				path[i], path[j] = path[j], path[i]
			}
			return path, true
		}

		for _, neighbor := range f.Neighbors(current) {
			if visited[neighbor] {
				continue
			}
			visited[neighbor] = true
			prev[neighbor] = current
			queue = append(queue, neighbor)
		}
	}

	return nil, false
}
