package local

import (
	"sort"

	"github.com/m-mizutani/goerr/v2"

	"github.com/IamTinashe/personal-assistant-agent/pkg/model"
)

// IndexKind selects the nearest-neighbor structure behind the store.
type IndexKind string

const (
	// KindFlat scans every vector exactly. The default; correct at any size.
	KindFlat IndexKind = "flat"
	// KindIVF buckets vectors by nearest centroid and probes a few buckets.
	KindIVF IndexKind = "ivf"
	// KindGraph searches a bounded-degree neighbor graph greedily.
	KindGraph IndexKind = "graph"
)

// hit is one candidate from an index search: the slot the vector occupies
// and its inner-product score against the query.
type hit struct {
	slot  int
	score float32
}

// vectorIndex holds normalized vectors in insertion order. Slots are
// assigned sequentially and never reused; deletion is handled by the
// store rebuilding the whole index.
type vectorIndex interface {
	Add(vec []float32)
	Search(query []float32, k int) []hit
	Reset()
	Len() int
}

func newIndex(kind IndexKind, dimension int) (vectorIndex, error) {
	switch kind {
	case KindFlat, "":
		return &flatIndex{}, nil
	case KindIVF:
		return newIVFIndex(dimension), nil
	case KindGraph:
		return newGraphIndex(), nil
	default:
		return nil, goerr.Wrap(model.ErrUnknownIndexKind, "cannot build index", goerr.V("kind", kind))
	}
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// topK sorts candidates by score descending and truncates. Ties keep the
// lower slot first so results are stable.
func topK(hits []hit, k int) []hit {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].slot < hits[j].slot
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

// flatIndex is the exact index: one dot product per stored vector.
type flatIndex struct {
	vectors [][]float32
}

func (x *flatIndex) Add(vec []float32) {
	x.vectors = append(x.vectors, vec)
}

func (x *flatIndex) Search(query []float32, k int) []hit {
	hits := make([]hit, 0, len(x.vectors))
	for slot, vec := range x.vectors {
		hits = append(hits, hit{slot: slot, score: dot(query, vec)})
	}
	return topK(hits, k)
}

func (x *flatIndex) Reset() { x.vectors = nil }
func (x *flatIndex) Len() int {
	return len(x.vectors)
}

// ivfIndex assigns each vector to its nearest centroid and scans only the
// nprobe closest buckets at query time. The first nlist vectors seed the
// centroids, so small stores degrade to exact search.
type ivfIndex struct {
	dimension int
	nlist     int
	nprobe    int
	centroids [][]float32
	buckets   [][]int // centroid -> slots
	vectors   [][]float32
}

func newIVFIndex(dimension int) *ivfIndex {
	return &ivfIndex{
		dimension: dimension,
		nlist:     100,
		nprobe:    8,
	}
}

func (x *ivfIndex) Add(vec []float32) {
	slot := len(x.vectors)
	x.vectors = append(x.vectors, vec)

	if len(x.centroids) < x.nlist {
		x.centroids = append(x.centroids, vec)
		x.buckets = append(x.buckets, []int{slot})
		return
	}

	best, bestScore := 0, float32(-2)
	for i, c := range x.centroids {
		if s := dot(vec, c); s > bestScore {
			best, bestScore = i, s
		}
	}
	x.buckets[best] = append(x.buckets[best], slot)
}

func (x *ivfIndex) Search(query []float32, k int) []hit {
	if len(x.vectors) == 0 {
		return nil
	}

	order := make([]hit, 0, len(x.centroids))
	for i, c := range x.centroids {
		order = append(order, hit{slot: i, score: dot(query, c)})
	}
	order = topK(order, x.nprobe)

	var hits []hit
	for _, centroid := range order {
		for _, slot := range x.buckets[centroid.slot] {
			hits = append(hits, hit{slot: slot, score: dot(query, x.vectors[slot])})
		}
	}
	return topK(hits, k)
}

func (x *ivfIndex) Reset() {
	x.centroids = nil
	x.buckets = nil
	x.vectors = nil
}

func (x *ivfIndex) Len() int { return len(x.vectors) }

// graphIndex keeps a bounded-degree neighbor graph and answers queries
// with greedy best-first expansion from the first inserted vector. Links
// are made at insert time against the exact nearest neighbors seen so
// far, then pruned back to maxDegree.
type graphIndex struct {
	maxDegree int
	vectors   [][]float32
	neighbors [][]int
}

func newGraphIndex() *graphIndex {
	return &graphIndex{maxDegree: 32}
}

func (x *graphIndex) Add(vec []float32) {
	slot := len(x.vectors)
	x.vectors = append(x.vectors, vec)
	x.neighbors = append(x.neighbors, nil)
	if slot == 0 {
		return
	}

	nearest := make([]hit, 0, slot)
	for other := 0; other < slot; other++ {
		nearest = append(nearest, hit{slot: other, score: dot(vec, x.vectors[other])})
	}
	nearest = topK(nearest, x.maxDegree)

	for _, n := range nearest {
		x.neighbors[slot] = append(x.neighbors[slot], n.slot)
		x.neighbors[n.slot] = append(x.neighbors[n.slot], slot)
		if len(x.neighbors[n.slot]) > x.maxDegree {
			x.neighbors[n.slot] = x.prune(n.slot)
		}
	}
}

// prune keeps only the maxDegree closest neighbors of a node.
func (x *graphIndex) prune(slot int) []int {
	candidates := make([]hit, 0, len(x.neighbors[slot]))
	for _, n := range x.neighbors[slot] {
		candidates = append(candidates, hit{slot: n, score: dot(x.vectors[slot], x.vectors[n])})
	}
	candidates = topK(candidates, x.maxDegree)

	kept := make([]int, 0, len(candidates))
	for _, c := range candidates {
		kept = append(kept, c.slot)
	}
	return kept
}

func (x *graphIndex) Search(query []float32, k int) []hit {
	if len(x.vectors) == 0 {
		return nil
	}

	beam := k * 4
	if beam < 32 {
		beam = 32
	}

	visited := map[int]bool{0: true}
	frontier := []hit{{slot: 0, score: dot(query, x.vectors[0])}}
	found := append([]hit(nil), frontier...)

	for len(frontier) > 0 {
		current := frontier[0]
		frontier = frontier[1:]

		for _, n := range x.neighbors[current.slot] {
			if visited[n] {
				continue
			}
			visited[n] = true
			candidate := hit{slot: n, score: dot(query, x.vectors[n])}
			found = append(found, candidate)
			frontier = append(frontier, candidate)
		}

		// Keep the frontier focused on the best unexpanded candidates.
		frontier = topK(frontier, beam)
		if len(found) > beam*4 {
			found = topK(found, beam)
		}
	}

	return topK(found, k)
}

func (x *graphIndex) Reset() {
	x.vectors = nil
	x.neighbors = nil
}

func (x *graphIndex) Len() int { return len(x.vectors) }
