// Package cluster groups nearby coordinates so a single representative can be
// queried for elevation on behalf of its neighbours.
//
// Clustering is single-linkage with a minimum cluster size of one: two
// coordinates within eps degrees (Euclidean, in degree space) are linked, and
// a cluster is every coordinate reachable through such links. No coordinate is
// ever treated as noise.
package cluster

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/quadtree"

	"github.com/couchcryptid/kml2dxf/internal/domain"
)

// indexed ties a distinct site to its position in the site list for the quadtree.
type indexed struct {
	p   orb.Point
	idx int
}

func (i indexed) Point() orb.Point { return i.p }

// Assign clusters coords with linkage distance eps. Labels are issued in
// first-occurrence order and each cluster's representative is its lowest
// input index. eps <= 0 yields the identity assignment.
//
// Coincident inputs share one index entry, and a site leaves the index once
// labelled, so every site is returned by a neighbour query at most once
// within its linkage distance.
func Assign(coords []domain.Coordinate, eps float64) domain.ClusterAssignment {
	n := len(coords)
	if eps <= 0 || n < 2 {
		return domain.IdentityAssignment(n)
	}

	sites, siteOf := distinctSites(coords)
	tree := buildIndex(sites, eps)

	siteLabel := make([]int, len(sites))
	for i := range siteLabel {
		siteLabel[i] = -1
	}
	labels := make([]int, n)
	reps := make([]int, 0, len(sites))

	var (
		queue []int
		buf   []orb.Pointer
	)
	for i := 0; i < n; i++ {
		first := siteOf[i]
		if siteLabel[first] >= 0 {
			labels[i] = siteLabel[first]
			continue
		}
		label := len(reps)
		reps = append(reps, i)
		labels[i] = label
		siteLabel[first] = label
		tree.Remove(indexed{p: sites[first], idx: first}, nil)

		queue = append(queue[:0], first)
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]

			center := sites[cur]
			buf = tree.InBound(buf[:0], orb.Bound{Min: center, Max: center}.Pad(eps))
			for _, nb := range buf {
				j := nb.(indexed).idx
				if siteLabel[j] >= 0 || planar.Distance(center, nb.Point()) > eps {
					continue
				}
				siteLabel[j] = label
				tree.Remove(nb, nil)
				queue = append(queue, j)
			}
		}
	}

	return domain.ClusterAssignment{Labels: labels, Representatives: reps}
}

// Representatives returns the representative coordinate of every cluster, in label order.
func Representatives(coords []domain.Coordinate, a domain.ClusterAssignment) []domain.Coordinate {
	out := make([]domain.Coordinate, len(a.Representatives))
	for l, idx := range a.Representatives {
		out[l] = coords[idx]
	}
	return out
}

// distinctSites collapses exactly coincident coordinates. siteOf maps each
// input index to its site.
func distinctSites(coords []domain.Coordinate) (sites []orb.Point, siteOf []int) {
	seen := make(map[orb.Point]int, len(coords))
	siteOf = make([]int, len(coords))
	for i, c := range coords {
		p := c.Point()
		s, ok := seen[p]
		if !ok {
			s = len(sites)
			seen[p] = s
			sites = append(sites, p)
		}
		siteOf[i] = s
	}
	return sites, siteOf
}

func buildIndex(sites []orb.Point, eps float64) *quadtree.Quadtree {
	// Padding keeps the root bound non-degenerate when every point coincides.
	tree := quadtree.New(orb.MultiPoint(sites).Bound().Pad(eps))
	for i, p := range sites {
		// Every site lies inside the padded bound, so Add cannot fail.
		_ = tree.Add(indexed{p: p, idx: i})
	}
	return tree
}
