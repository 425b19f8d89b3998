package render

import "testing"

func task(page int, class PriorityClass, gen uint64) Task {
	return Task{
		Key:        PageKey{Doc: 1, Page: page, ScaleMilli: 1000},
		Priority:   Priority{Class: class},
		Generation: gen,
	}
}

func leadTask(page, depth int, gen uint64) Task {
	return Task{
		Key:        PageKey{Doc: 1, Page: page, ScaleMilli: 1000},
		Priority:   Priority{Class: DirectionalLead, Depth: depth},
		Generation: gen,
	}
}

func popPages(t *testing.T, q *PrefetchQueue) []int {
	t.Helper()
	var pages []int
	for {
		task, ok := q.PopBest()
		if !ok {
			return pages
		}
		pages = append(pages, task.Key.Page)
	}
}

func TestPopOrderFollowsPriority(t *testing.T) {
	q := NewPrefetchQueue(16)
	q.Submit(task(1, Background, 1))
	q.Submit(leadTask(2, 2, 1))
	q.Submit(leadTask(3, 1, 1))
	q.Submit(task(4, GuardReverse, 1))
	q.Submit(task(5, CriticalCurrent, 1))

	got := popPages(t, q)
	want := []int{5, 4, 3, 2, 1}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("pop order = %v, want %v", got, want)
		}
	}
}

func TestFIFOWithinSamePriority(t *testing.T) {
	q := NewPrefetchQueue(16)
	q.Submit(leadTask(10, 1, 7))
	q.Submit(leadTask(11, 1, 7))
	q.Submit(leadTask(12, 1, 7))

	got := popPages(t, q)
	want := []int{10, 11, 12}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("pop order = %v, want %v", got, want)
		}
	}
}

func TestSubmitIsIdempotent(t *testing.T) {
	q := NewPrefetchQueue(16)
	if got := q.Submit(task(1, Background, 1)); got != Enqueued {
		t.Fatalf("first submit = %v, want Enqueued", got)
	}
	if got := q.Submit(task(1, Background, 1)); got != Duplicate {
		t.Fatalf("second submit = %v, want Duplicate", got)
	}
	if q.Len() != 1 {
		t.Fatalf("len = %d, want 1", q.Len())
	}
}

func TestPriorityReplacementUpgradesInPlace(t *testing.T) {
	q := NewPrefetchQueue(16)
	q.Submit(task(1, Background, 1))
	if got := q.Submit(task(1, CriticalCurrent, 1)); got != ReplacedEntry {
		t.Fatalf("upgrade submit = %v, want ReplacedEntry", got)
	}
	if q.Len() != 1 {
		t.Fatalf("len = %d, want 1", q.Len())
	}
	popped, _ := q.PopBest()
	if popped.Priority.Class != CriticalCurrent {
		t.Fatalf("priority = %v, want CriticalCurrent", popped.Priority.Class)
	}

	// The reverse submission is a no-op.
	q.Submit(task(2, CriticalCurrent, 1))
	if got := q.Submit(task(2, Background, 1)); got != Duplicate {
		t.Fatalf("downgrade submit = %v, want Duplicate", got)
	}
	popped, _ = q.PopBest()
	if popped.Priority.Class != CriticalCurrent {
		t.Fatalf("priority = %v, want CriticalCurrent kept", popped.Priority.Class)
	}
}

func TestLowerLeadDepthOutranksDeeper(t *testing.T) {
	q := NewPrefetchQueue(16)
	q.Submit(leadTask(3, 3, 1))
	q.Submit(leadTask(1, 1, 1))
	q.Submit(leadTask(2, 2, 1))

	got := popPages(t, q)
	want := []int{1, 2, 3}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("pop order = %v, want %v", got, want)
		}
	}
}

func TestStaleBackgroundPurgedOnSubmit(t *testing.T) {
	q := NewPrefetchQueue(16)
	q.Submit(task(1, Background, 1))
	q.Submit(leadTask(2, 1, 1))

	q.Submit(task(3, Background, 2))

	if q.Contains(PageKey{Doc: 1, Page: 1, ScaleMilli: 1000}) {
		t.Fatal("stale background task should have been purged")
	}
	if !q.Contains(PageKey{Doc: 1, Page: 2, ScaleMilli: 1000}) {
		t.Fatal("stale lead is not purged by submit, only by cancel")
	}
}

func TestAdmissionPreemptsLowestPriorityWhenFull(t *testing.T) {
	const qMax = 8
	q := NewPrefetchQueue(qMax)
	for i := 0; i < qMax; i++ {
		if got := q.Submit(task(i, Background, 3)); got != Enqueued {
			t.Fatalf("fill submit %d = %v", i, got)
		}
	}

	if got := q.Submit(task(100, CriticalCurrent, 3)); got != Enqueued {
		t.Fatalf("critical submit = %v, want Enqueued after preemption", got)
	}
	if q.Len() != qMax {
		t.Fatalf("len = %d, want %d", q.Len(), qMax)
	}
	first, _ := q.PopBest()
	if first.Priority.Class != CriticalCurrent || first.Key.Page != 100 {
		t.Fatalf("first pop = %+v, want the critical task", first)
	}
	// The oldest background task (page 0) was the victim.
	if q.Contains(PageKey{Doc: 1, Page: 0, ScaleMilli: 1000}) {
		t.Fatal("oldest background should have been evicted")
	}
}

func TestSubmitRejectedWhenFullOfEqualPriority(t *testing.T) {
	q := NewPrefetchQueue(2)
	q.Submit(task(0, CriticalCurrent, 1))
	q.Submit(task(1, CriticalCurrent, 1))

	if got := q.Submit(task(2, CriticalCurrent, 1)); got != RejectedFull {
		t.Fatalf("submit = %v, want RejectedFull", got)
	}
	if q.Rejected() != 1 {
		t.Fatalf("rejected counter = %d, want 1", q.Rejected())
	}
}

func TestCancelOlderThanSparesCritical(t *testing.T) {
	q := NewPrefetchQueue(16)
	q.Submit(task(1, CriticalCurrent, 1))
	q.Submit(task(2, GuardReverse, 1))
	q.Submit(leadTask(3, 1, 1))
	q.Submit(task(4, Background, 1))
	q.Submit(leadTask(5, 1, 2))

	removed := q.CancelOlderThan(2)
	if removed != 3 {
		t.Fatalf("removed = %d, want 3", removed)
	}

	got := popPages(t, q)
	want := []int{1, 5}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("remaining = %v, want %v", got, want)
	}
}
