package tinyinject

// node is a compiled binding. Static nodes link their dependencies directly,
// so resolution follows pointers instead of looking keys up.
type node struct {
	provider   Provider
	erased     Erased
	deps       []Key
	depNodes   []*node
	decorators []decorator
	key        Key
	lifetime   Lifetime
	slot       int
	cyclic     bool
	owned      bool
}

func (n *node) dynamic() bool {
	return n.erased != nil
}

// dependency returns the node of the i-th dependency or nil if it is unbound.
// Dynamic nodes look it up on every call.
func (n *node) dependency(p *plan, i int) *node {
	if n.dynamic() {
		return p.nodes[n.deps[i]]
	}

	return n.depNodes[i]
}

type plan struct {
	nodes      map[Key]*node
	order      []*node
	singletons int
	scoped     int
}

// compile turns frozen entries into a plan, evaluating every selection.
func compile(entries []Entry, decorators map[Key][]decorator) (*plan, error) {
	p := &plan{
		nodes: make(map[Key]*node, len(entries)),
		order: make([]*node, 0, len(entries)),
	}

	for _, e := range entries {
		n := &node{
			key:        e.Key,
			lifetime:   e.Lifetime,
			provider:   e.Provider,
			deps:       e.Provider.Dependencies(),
			decorators: decorators[e.Key],
			owned:      e.Provider.Kind() != InstanceProvider,
		}

		switch provider := e.Provider.(type) {
		case *erasedProvider:
			n.erased = provider.erased
			n.deps = provider.erased.Dependencies()
		case *selectedProvider:
			erased, err := provider.selectFor(e.Key)
			if err != nil {
				return nil, err
			}

			n.erased = erased
			n.deps = erased.Dependencies()
		}

		switch n.lifetime {
		case Singleton:
			n.slot = p.singletons
			p.singletons++
		case Scoped:
			n.slot = p.scoped
			p.scoped++
		}

		p.nodes[n.key] = n
		p.order = append(p.order, n)
	}

	for _, n := range p.order {
		if n.dynamic() {
			continue
		}

		n.depNodes = make([]*node, len(n.deps))
		for i, dep := range n.deps {
			n.depNodes[i] = p.nodes[dep]
		}
	}

	p.markCycles()

	return p, nil
}

// markCycles flags every node on a dependency cycle (Tarjan's SCC).
// Such a node can never be built, so resolution skips its slot lock
// and concurrent callers fail instead of waiting on each other.
func (p *plan) markCycles() {
	var (
		index   int
		stack   []*node
		indices = make(map[*node]int, len(p.order))
		lowlink = make(map[*node]int, len(p.order))
		onStack = make(map[*node]bool, len(p.order))
	)

	var connect func(n *node)
	connect = func(n *node) {
		indices[n] = index
		lowlink[n] = index
		index++

		stack = append(stack, n)
		onStack[n] = true

		for i := range n.deps {
			dep := n.dependency(p, i)
			if dep == nil {
				continue
			}

			if dep == n {
				n.cyclic = true
			}

			if _, seen := indices[dep]; !seen {
				connect(dep)
				lowlink[n] = min(lowlink[n], lowlink[dep])
			} else if onStack[dep] {
				lowlink[n] = min(lowlink[n], indices[dep])
			}
		}

		if lowlink[n] != indices[n] {
			return
		}

		var component []*node
		for {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[top] = false
			component = append(component, top)

			if top == n {
				break
			}
		}

		if len(component) > 1 {
			for _, c := range component {
				c.cyclic = true
			}
		}
	}

	for _, n := range p.order {
		if _, seen := indices[n]; !seen {
			connect(n)
		}
	}
}
