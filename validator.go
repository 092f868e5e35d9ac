package tinyinject

import (
	"slices"
	"strings"
)

type visitState int

const (
	unvisited visitState = iota
	visiting
	visited
)

// validate walks the whole plan and reports every unbound dependency,
// every distinct cycle and every Singleton capturing a Scoped key.
func validate(p *plan) error {
	var findings []error

	findings = append(findings, findUnbound(p)...)
	findings = append(findings, findCycles(p)...)
	findings = append(findings, findCaptives(p)...)

	if len(findings) == 0 {
		return nil
	}

	return newValidationError(findings)
}

// findUnbound reports unbound dependencies with the chain a Resolve of the
// nearest root would report: from a node nothing depends on down to the missing key.
func findUnbound(p *plan) []error {
	dependents := make(map[*node][]*node)
	for _, n := range p.order {
		for i := range n.deps {
			if dep := n.dependency(p, i); dep != nil && dep != n {
				dependents[dep] = append(dependents[dep], n)
			}
		}
	}

	var findings []error

	for _, n := range p.order {
		for i, dep := range n.deps {
			if n.dependency(p, i) == nil {
				chain := append(requesters(n, dependents), dep)
				findings = append(findings, newUnboundTypeError(dep, chain))
			}
		}
	}

	return findings
}

// requesters returns the shortest chain of keys leading to n from a node
// nothing depends on. Nodes reachable only through cycles start the chain themselves.
func requesters(n *node, dependents map[*node][]*node) []Key {
	next := map[*node]*node{n: nil}
	queue := []*node{n}
	root := n

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if len(dependents[current]) == 0 {
			root = current
			break
		}

		for _, d := range dependents[current] {
			if _, seen := next[d]; !seen {
				next[d] = current
				queue = append(queue, d)
			}
		}
	}

	var chain []Key
	for current := root; current != nil; current = next[current] {
		chain = append(chain, current.key)
	}

	return chain
}

func findCycles(p *plan) []error {
	var (
		findings []error
		stack    []*node
		states   = make(map[*node]visitState, len(p.order))
		reported = make(map[string]bool)
	)

	var walk func(n *node)
	walk = func(n *node) {
		states[n] = visiting
		stack = append(stack, n)

		for i := range n.deps {
			dep := n.dependency(p, i)
			if dep == nil {
				continue
			}

			switch states[dep] {
			case unvisited:
				walk(dep)
			case visiting:
				chain := normalizeCycle(stack[slices.Index(stack, dep):])
				if id := formatChain(chain); !reported[id] {
					reported[id] = true
					findings = append(findings, newCyclicDependencyError(chain))
				}
			}
		}

		stack = stack[:len(stack)-1]
		states[n] = visited
	}

	for _, n := range p.order {
		if states[n] == unvisited {
			walk(n)
		}
	}

	return findings
}

// normalizeCycle rotates a cycle to start at its smallest key and closes it.
func normalizeCycle(cycle []*node) []Key {
	start := 0
	for i, n := range cycle {
		if n.key.Compare(cycle[start].key) < 0 {
			start = i
		}
	}

	chain := make([]Key, 0, len(cycle)+1)
	for i := range cycle {
		chain = append(chain, cycle[(start+i)%len(cycle)].key)
	}

	return append(chain, chain[0])
}

// findCaptives reports Singleton nodes reaching a Scoped node
// directly or through Transient nodes.
func findCaptives(p *plan) []error {
	var findings []error

	for _, root := range p.order {
		if root.lifetime != Singleton {
			continue
		}

		seen := map[*node]bool{root: true}
		reported := make(map[string]bool)

		var walk func(n *node, chain []Key)
		walk = func(n *node, chain []Key) {
			for i := range n.deps {
				dep := n.dependency(p, i)
				if dep == nil || seen[dep] {
					continue
				}

				seen[dep] = true
				path := append(slices.Clone(chain), dep.key)

				switch dep.lifetime {
				case Scoped:
					if id := strings.Join([]string{root.key.String(), dep.key.String()}, "|"); !reported[id] {
						reported[id] = true
						findings = append(findings, newLifetimeMismatchError(path))
					}
				case Transient:
					walk(dep, path)
				}
			}
		}

		walk(root, []Key{root.key})
	}

	return findings
}
