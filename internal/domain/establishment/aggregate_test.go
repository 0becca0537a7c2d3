package establishment

import (
	"testing"
	"time"
)

func ptr(f float64) *float64 { return &f }

func TestAggregateReviews(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	reviews := []*Review{
		{ID: 1, EstablishmentID: 1, Rating: 5, CreatedAt: t0},
		{ID: 2, EstablishmentID: 2, Rating: 1, CreatedAt: t0},
		{ID: 3, EstablishmentID: 1, Rating: 3, CreatedAt: t0.Add(time.Minute)},
		{ID: 4, EstablishmentID: 1, Rating: 4, CreatedAt: t0.Add(time.Minute)},
	}

	groups, avg := AggregateReviews(reviews)

	if got := avg[1]; got != 4.0 {
		t.Errorf("expected avg 4.0 for establishment 1, got %v", got)
	}
	if got := avg[2]; got != 1.0 {
		t.Errorf("expected avg 1.0 for establishment 2, got %v", got)
	}
	if _, ok := avg[3]; ok {
		t.Error("expected no average for establishment without reviews")
	}

	want := []int64{3, 4, 1}
	g := groups[1]
	if len(g) != len(want) {
		t.Fatalf("expected %d reviews, got %d", len(want), len(g))
	}
	for i, id := range want {
		if g[i].ID != id {
			t.Errorf("position %d: expected review %d, got %d", i, id, g[i].ID)
		}
	}
}

func TestAggregateReviews_Empty(t *testing.T) {
	groups, avg := AggregateReviews(nil)
	if len(groups) != 0 || len(avg) != 0 {
		t.Errorf("expected empty maps, got %d groups and %d averages", len(groups), len(avg))
	}
}

func TestSortByDistance(t *testing.T) {
	items := []*Establishment{
		{ID: 1, Distance: nil},
		{ID: 2, Distance: ptr(12)},
		{ID: 3, Distance: ptr(0)},
		{ID: 4, Distance: ptr(12)},
		{ID: 5, Distance: ptr(3.5)},
	}
	SortByDistance(items)

	want := []int64{3, 5, 2, 4, 1}
	for i, id := range want {
		if items[i].ID != id {
			t.Errorf("position %d: expected %d, got %d", i, id, items[i].ID)
		}
	}
}
