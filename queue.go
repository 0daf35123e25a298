package flux

// flightQueue implements container/heap.Interface over pending flights.
//
// Dequeue order is priority first, then recency: the most recently requested
// flight wins a tie. Users scroll past earlier-revealed files, so strict FIFO
// would decode exactly the thumbnails nobody is looking at anymore.
type flightQueue []*flight

func (q flightQueue) Len() int { return len(q) }

func (q flightQueue) Less(i, j int) bool {
	if q[i].priority != q[j].priority {
		return q[i].priority > q[j].priority
	}
	return q[i].seq > q[j].seq
}

func (q flightQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *flightQueue) Push(x any) {
	f := x.(*flight)
	f.index = len(*q)
	*q = append(*q, f)
}

func (q *flightQueue) Pop() any {
	old := *q
	n := len(old)
	f := old[n-1]
	old[n-1] = nil
	f.index = -1
	*q = old[:n-1]
	return f
}
