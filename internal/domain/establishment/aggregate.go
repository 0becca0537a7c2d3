package establishment

import "sort"

// AggregateReviews groups reviews by establishment in a single pass. Each
// group is ordered newest first; ties keep their input order. The second
// map holds the mean rating and has no entry for establishments without
// reviews.
func AggregateReviews(reviews []*Review) (map[int64][]*Review, map[int64]float64) {
	groups := make(map[int64][]*Review)
	sums := make(map[int64]int)
	for _, r := range reviews {
		groups[r.EstablishmentID] = append(groups[r.EstablishmentID], r)
		sums[r.EstablishmentID] += r.Rating
	}

	avg := make(map[int64]float64, len(groups))
	for id, g := range groups {
		sort.SliceStable(g, func(i, j int) bool {
			return g[i].CreatedAt.After(g[j].CreatedAt)
		})
		avg[id] = float64(sums[id]) / float64(len(g))
	}
	return groups, avg
}

// SortByDistance orders establishments nearest first. Entries without a
// distance go last; equal distances keep their relative order.
func SortByDistance(items []*Establishment) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].Distance, items[j].Distance
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		}
		return *a < *b
	})
}
