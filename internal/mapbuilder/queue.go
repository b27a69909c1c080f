package mapbuilder

// queue buffers calls made before the map exists. FIFO, consumed once.
type queue struct {
	calls []Call
}

func (q *queue) push(c Call) {
	q.calls = append(q.calls, c)
}

func (q *queue) pop() (Call, bool) {
	if len(q.calls) == 0 {
		return nil, false
	}
	c := q.calls[0]
	q.calls[0] = nil
	q.calls = q.calls[1:]
	return c, true
}

func (q *queue) len() int {
	return len(q.calls)
}

func (q *queue) clear() {
	q.calls = nil
}
