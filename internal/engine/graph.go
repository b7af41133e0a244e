package engine

import (
	"sort"
)

// Node — узел статического графа задач.
type Node struct {
	// Task — задача; nil для пререквизита, не описанного задачей
	// (файл или цель правила, ещё не материализованная).
	Task *Task

	// ID — полное имя задачи или имя пререквизита.
	ID string

	// InDegree — количество пререквизитов узла.
	InDegree int

	// DependsOn — пререквизиты узла.
	DependsOn []*Node

	// Dependents — узлы, для которых этот узел пререквизит.
	Dependents []*Node
}

// Graph — статическое представление зарегистрированных задач.
//
// Используется только для вывода (-P, --graph): выполнение идёт
// по живой цепочке вызовов, а не по этому графу.
type Graph struct {
	// Nodes — все узлы графа (ID → Node).
	Nodes map[string]*Node

	// RootNodes — узлы без пререквизитов.
	RootNodes []*Node

	// Order — топологический порядок (пререквизиты раньше зависимых).
	Order []*Node
}

// BuildGraph строит граф зарегистрированных задач.
//
// Правила не применяются. При цикле возвращается граф с неполным
// Order и ErrCyclicDependency.
func (e *Engine) BuildGraph() (*Graph, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	g := &Graph{Nodes: make(map[string]*Node)}

	tasks := make([]*Task, 0, len(e.index))
	for _, t := range e.index {
		if !t.placeholder {
			tasks = append(tasks, t)
		}
	}
	sortTasks(tasks)

	// Первый проход: узлы задач
	for _, t := range tasks {
		g.Nodes[t.FullName()] = &Node{Task: t, ID: t.FullName()}
	}

	// Второй проход: рёбра пререквизит → задача
	for _, t := range tasks {
		node := g.Nodes[t.FullName()]
		for _, p := range t.prereqs {
			name, _ := ParseTaskName(p)
			g.addEdge(g.nodeFor(e.resolveLocked(t.ns, name), name), node)
		}
	}

	g.findRootNodes()

	order, err := g.topologicalSort()
	g.Order = order
	return g, err
}

// nodeFor возвращает узел задачи или создаёт узел-лист для
// неразрешённого пререквизита.
func (g *Graph) nodeFor(t *Task, name string) *Node {
	id := name
	if t != nil && !t.placeholder {
		id = t.FullName()
	}
	if node, ok := g.Nodes[id]; ok {
		return node
	}
	node := &Node{ID: id}
	g.Nodes[id] = node
	return node
}

// addEdge добавляет ребро, пропуская дубликаты.
func (g *Graph) addEdge(from, to *Node) {
	for _, dep := range to.DependsOn {
		if dep == from {
			return
		}
	}
	from.Dependents = append(from.Dependents, to)
	to.DependsOn = append(to.DependsOn, from)
	to.InDegree++
}

func (g *Graph) findRootNodes() {
	g.RootNodes = make([]*Node, 0)
	for _, node := range g.sortedNodes() {
		if node.InDegree == 0 {
			g.RootNodes = append(g.RootNodes, node)
		}
	}
}

// topologicalSort — алгоритм Кана. Узлы одного уровня идут по ID.
func (g *Graph) topologicalSort() ([]*Node, error) {
	inDegree := make(map[*Node]int, len(g.Nodes))
	for _, node := range g.Nodes {
		inDegree[node] = node.InDegree
	}

	queue := append([]*Node(nil), g.RootNodes...)
	order := make([]*Node, 0, len(g.Nodes))

	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		order = append(order, node)

		var ready []*Node
		for _, dependent := range node.Dependents {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
		sort.Slice(ready, func(i, j int) bool { return ready[i].ID < ready[j].ID })
		queue = append(queue, ready...)
	}

	if len(order) != len(g.Nodes) {
		return order, ErrCyclicDependency
	}
	return order, nil
}

func (g *Graph) sortedNodes() []*Node {
	nodes := make([]*Node, 0, len(g.Nodes))
	for _, node := range g.Nodes {
		nodes = append(nodes, node)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	return nodes
}

// Node возвращает узел по ID.
func (g *Graph) Node(id string) *Node {
	return g.Nodes[id]
}

// Size возвращает количество узлов.
func (g *Graph) Size() int {
	return len(g.Nodes)
}

// Reachable возвращает узлы, от которых зависит id (включая его),
// в топологическом порядке.
func (g *Graph) Reachable(id string) []*Node {
	start := g.Nodes[id]
	if start == nil {
		return nil
	}

	seen := map[*Node]bool{start: true}
	stack := []*Node{start}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, dep := range node.DependsOn {
			if !seen[dep] {
				seen[dep] = true
				stack = append(stack, dep)
			}
		}
	}

	out := make([]*Node, 0, len(seen))
	for _, node := range g.Order {
		if seen[node] {
			out = append(out, node)
		}
	}
	return out
}
