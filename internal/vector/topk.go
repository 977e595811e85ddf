package vector

import (
	"container/heap"
	"sort"
)

// Hit is a scored record position.
type Hit struct {
	ID    int64
	Score float64
}

// better reports whether a ranks ahead of b: higher score first, then lower id.
func better(a, b Hit) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.ID < b.ID
}

// hitHeap keeps the worst retained hit at the root.
type hitHeap []Hit

var _ heap.Interface = (*hitHeap)(nil)

func (h hitHeap) Len() int           { return len(h) }
func (h hitHeap) Less(i, j int) bool { return better(h[j], h[i]) }
func (h hitHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *hitHeap) Push(x any) { *h = append(*h, x.(Hit)) }

func (h *hitHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// TopK retains the k best hits seen so far in O(log k) per push.
type TopK struct {
	k    int
	hits hitHeap
}

// NewTopK returns a selector for k hits. k <= 0 retains nothing.
func NewTopK(k int) *TopK {
	if k < 0 {
		k = 0
	}
	return &TopK{k: k, hits: make(hitHeap, 0, k)}
}

// Push offers a hit to the selector.
func (t *TopK) Push(h Hit) {
	if t.k == 0 {
		return
	}
	if len(t.hits) < t.k {
		heap.Push(&t.hits, h)
		return
	}
	if better(h, t.hits[0]) {
		t.hits[0] = h
		heap.Fix(&t.hits, 0)
	}
}

// Len returns the number of retained hits.
func (t *TopK) Len() int { return len(t.hits) }

// Sorted returns the retained hits ordered by descending score, ties by ascending id.
func (t *TopK) Sorted() []Hit {
	out := make([]Hit, len(t.hits))
	copy(out, t.hits)
	sort.Slice(out, func(i, j int) bool { return better(out[i], out[j]) })
	return out
}
