package splitting

import "time"

// dsu is a disjoint-set union over per-supplier award indexes. Connected
// components of the similarity graph fall out of the union operations.
type dsu struct {
	parent []int
	size   []int
}

func newDSU(n int) *dsu {
	d := &dsu{parent: make([]int, n), size: make([]int, n)}
	for i := range d.parent {
		d.parent[i] = i
		d.size[i] = 1
	}
	return d
}

func (d *dsu) find(x int) int {
	for d.parent[x] != x {
		d.parent[x] = d.parent[d.parent[x]]
		x = d.parent[x]
	}
	return x
}

func (d *dsu) union(a, b int) {
	ra, rb := d.find(a), d.find(b)
	if ra == rb {
		return
	}
	if d.size[ra] < d.size[rb] {
		ra, rb = rb, ra
	}
	d.parent[rb] = ra
	d.size[ra] += d.size[rb]
}

// components returns the connected components, each as the ascending list of
// member indexes.
func (d *dsu) components() [][]int {
	byRoot := make(map[int][]int)
	for i := range d.parent {
		root := d.find(i)
		byRoot[root] = append(byRoot[root], i)
	}
	comps := make([][]int, 0, len(byRoot))
	for i := range d.parent {
		if d.find(i) == i {
			comps = append(comps, byRoot[i])
		}
	}
	return comps
}

// repairSpan re-partitions a date-sorted component whose total span exceeds
// the time window. Transitive edges can chain awards further apart than the
// window allows (A-B close, B-C close, A-C far); the repair walks the members
// in date order and greedily starts a new sub-cluster whenever the gap back to
// the current sub-cluster's earliest date would exceed the window. The policy
// is deterministic because members arrive sorted by (date, tender id).
func repairSpan(members []int, dates []time.Time, window time.Duration) [][]int {
	var subs [][]int
	var current []int
	var earliest time.Time

	for _, idx := range members {
		date := dates[idx]
		switch {
		case len(current) == 0:
			current = []int{idx}
			earliest = date
		case date.Sub(earliest) <= window:
			current = append(current, idx)
		default:
			subs = append(subs, current)
			current = []int{idx}
			earliest = date
		}
	}
	if len(current) > 0 {
		subs = append(subs, current)
	}
	return subs
}
