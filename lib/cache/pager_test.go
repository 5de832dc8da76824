package cache

import (
	"errors"
	"sync"
	"testing"
)

func countingFetch(pageSize, totalPages int, calls *int) FetchFunc[row] {
	return func(cursor int) (Page[row], error) {
		*calls++
		items := make([]row, pageSize)
		for i := range items {
			items[i] = row{ID: string(rune('a' + cursor*pageSize + i))}
		}
		return CursorPage(items, cursor, cursor+1 < totalPages), nil
	}
}

func TestPagerAccumulates(t *testing.T) {
	l := NewList[row]()
	calls := 0
	p := NewPager(l, "feed", countingFetch(25, 2, &calls))
	if !p.HasMore() {
		t.Fatalf("An unfetched list must report more")
	}
	if err := p.NextPage(); err != nil {
		t.Fatalf("First page: %v", err)
	}
	if n := l.Count("feed"); n != 25 {
		t.Fatalf("Expected 25 items after one page, got %d", n)
	}
	if err := p.NextPage(); err != nil {
		t.Fatalf("Second page: %v", err)
	}
	if n := l.Count("feed"); n != 50 {
		t.Fatalf("Expected 50 items after two pages, got %d", n)
	}
	if p.HasMore() {
		t.Fatalf("List should be complete after the last page")
	}
	if err := p.NextPage(); err != nil {
		t.Fatalf("NextPage on a complete list should be a silent no-op, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("Expected exactly 2 fetches, got %d", calls)
	}
}

func TestPagerCountedContinuation(t *testing.T) {
	l := NewList[row]()
	calls := 0
	p := NewPager(l, "comments", func(cursor int) (Page[row], error) {
		calls++
		return CountedPage([]row{{ID: "x"}, {ID: "y"}}, cursor, 3), nil
	})
	if err := p.NextPage(); err != nil {
		t.Fatalf("First page: %v", err)
	}
	if !p.HasMore() {
		t.Fatalf("2 of 3 items fetched; should have more")
	}
	p2 := NewPager(l, "comments", func(cursor int) (Page[row], error) {
		calls++
		return CountedPage([]row{{ID: "z"}}, cursor, 3), nil
	})
	if err := p2.NextPage(); err != nil {
		t.Fatalf("Second page: %v", err)
	}
	if p2.HasMore() {
		t.Fatalf("3 of 3 items fetched; list should be complete")
	}
}

func TestPagerFailedFetchDoesNotAdvance(t *testing.T) {
	l := NewList[row]()
	boom := errors.New("network down")
	fail := true
	calls := 0
	p := NewPager(l, "feed", func(cursor int) (Page[row], error) {
		calls++
		if fail {
			return Page[row]{}, boom
		}
		return CursorPage([]row{{ID: "a"}}, cursor, false), nil
	})
	if err := p.NextPage(); !errors.Is(err, boom) {
		t.Fatalf("Expected the fetch error surfaced, got %v", err)
	}
	if _, ok := l.Pages("feed"); ok {
		t.Fatalf("A failed fetch must not be cached")
	}
	fail = false
	if err := p.NextPage(); err != nil {
		t.Fatalf("Retry: %v", err)
	}
	pages, _ := l.Pages("feed")
	if len(pages) != 1 || pages[0].Cursor != 0 {
		t.Fatalf("Retry should fetch cursor 0 again, got %+v", pages)
	}
	if calls != 2 {
		t.Fatalf("Expected 2 fetch attempts, got %d", calls)
	}
}

func TestPagerSingleFlight(t *testing.T) {
	l := NewList[row]()
	started := make(chan struct{})
	release := make(chan struct{})
	calls := 0
	p := NewPager(l, "feed", func(cursor int) (Page[row], error) {
		calls++
		close(started)
		<-release
		return CursorPage([]row{{ID: "a"}}, cursor, false), nil
	})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.NextPage()
	}()
	<-started
	//these arrive while the first fetch is in flight and must all bail
	for i := 0; i < 10; i++ {
		if err := p.NextPage(); err != nil {
			t.Fatalf("Concurrent NextPage should no-op, got %v", err)
		}
	}
	close(release)
	wg.Wait()
	if calls != 1 {
		t.Fatalf("Expected a single fetch, got %d", calls)
	}
}
