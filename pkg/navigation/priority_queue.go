package navigation

// searchNode is one explored cell of an A* search.
type searchNode struct {
	cell   int
	g, h   float64
	f      float64
	parent *searchNode
	index  int
	closed bool
}

// nodeQueue is a min-heap of search nodes on f, for container/heap.
type nodeQueue []*searchNode

func (q nodeQueue) Len() int { return len(q) }

func (q nodeQueue) Less(i, j int) bool {
	if q[i].f == q[j].f {
		// prefer the node closer to the goal so ties expand toward it
		return q[i].h < q[j].h
	}
	return q[i].f < q[j].f
}

func (q nodeQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *nodeQueue) Push(x any) {
	n := x.(*searchNode)
	n.index = len(*q)
	*q = append(*q, n)
}

func (q *nodeQueue) Pop() any {
	old := *q
	last := len(old) - 1
	n := old[last]
	old[last] = nil
	n.index = -1
	*q = old[:last]
	return n
}
