package flux

import (
	"container/heap"
	"testing"
)

func pushFlight(q *flightQueue, path string, pr Priority, seq uint64) *flight {
	f := &flight{path: path, priority: pr, seq: seq, index: -1}
	heap.Push(q, f)
	return f
}

func popOrder(t *testing.T, q *flightQueue) []string {
	t.Helper()
	var order []string
	for q.Len() > 0 {
		f := heap.Pop(q).(*flight)
		if f.index != -1 {
			t.Errorf("popped flight %s kept heap index %d", f.path, f.index)
		}
		order = append(order, f.path)
	}
	return order
}

func TestFlightQueuePriorityBeforeRecency(t *testing.T) {
	t.Parallel()

	var q flightQueue
	pushFlight(&q, "bg", PriorityBackground, 4)
	pushFlight(&q, "visible", PriorityVisible, 1)
	pushFlight(&q, "normal", PriorityNormal, 3)

	got := popOrder(t, &q)
	want := []string{"visible", "normal", "bg"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("pop order = %v, want %v", got, want)
		}
	}
}

func TestFlightQueueRecencyBreaksTies(t *testing.T) {
	t.Parallel()

	var q flightQueue
	pushFlight(&q, "old", PriorityNormal, 1)
	pushFlight(&q, "mid", PriorityNormal, 2)
	pushFlight(&q, "new", PriorityNormal, 3)

	got := popOrder(t, &q)
	want := []string{"new", "mid", "old"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("pop order = %v, want %v", got, want)
		}
	}
}

func TestFlightQueueFixAfterPriorityBump(t *testing.T) {
	t.Parallel()

	var q flightQueue
	bumped := pushFlight(&q, "bumped", PriorityBackground, 1)
	pushFlight(&q, "steady", PriorityNormal, 2)

	// A later duplicate submit raises priority and recency in place.
	bumped.priority = PriorityVisible
	bumped.seq = 3
	heap.Fix(&q, bumped.index)

	got := popOrder(t, &q)
	if got[0] != "bumped" {
		t.Fatalf("pop order = %v, want bumped first", got)
	}
}

func TestFlightQueueRemove(t *testing.T) {
	t.Parallel()

	var q flightQueue
	pushFlight(&q, "keep", PriorityNormal, 1)
	doomed := pushFlight(&q, "doomed", PriorityVisible, 2)

	heap.Remove(&q, doomed.index)

	got := popOrder(t, &q)
	if len(got) != 1 || got[0] != "keep" {
		t.Fatalf("pop order after remove = %v, want [keep]", got)
	}
}
