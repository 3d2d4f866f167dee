package ranking

import "container/heap"

// selectTop returns the n best candidates, best first. Better means a
// higher score, then a lower row.
func selectTop(cands []candidate, n int) []candidate {
	if n <= 0 {
		return nil
	}
	h := &candidateHeap{}
	heap.Init(h)
	for _, c := range cands {
		heap.Push(h, c)
		if h.Len() > n {
			heap.Pop(h)
		}
	}
	out := make([]candidate, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(h).(candidate)
	}
	return out
}

type candidate struct {
	row   int
	score float64
}

// candidateHeap is a min-heap: the root is the worst kept candidate.
type candidateHeap []candidate

func (h candidateHeap) Len() int { return len(h) }

func (h candidateHeap) Less(i, j int) bool {
	if h[i].score != h[j].score {
		return h[i].score < h[j].score
	}
	return h[i].row > h[j].row
}

func (h candidateHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *candidateHeap) Push(x any) {
	*h = append(*h, x.(candidate))
}

func (h *candidateHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
