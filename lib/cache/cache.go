//Package cache is the client-side paginated query cache: keyed, page-based
//storage of list results supporting incremental fetch-more and targeted
//in-place mutation without refetching the whole list.
package cache

import "sync"

//Page is one fetched batch of a list query.
//Continuation is expressed either by HasNext (server-supplied) or by Total
//(the list continues while the accumulated item count is below it); which one
//a list uses never leaks past the Pager.
type Page[T any] struct {
	Items   []T
	Cursor  int
	HasNext bool
	Total   int
}

//CursorPage builds a page for lists whose server reports a has-more boolean.
func CursorPage[T any](items []T, cursor int, hasNext bool) Page[T] {
	return Page[T]{Items: items, Cursor: cursor, HasNext: hasNext}
}

//CountedPage builds a page for lists whose server reports a total item count.
func CountedPage[T any](items []T, cursor, total int) Page[T] {
	return Page[T]{Items: items, Cursor: cursor, Total: total}
}

//List is a keyed store of paginated query results.
//
//Writes never touch a stored page in place: every mutation reads the current
//page set, produces a fresh one and swaps it in, so a reader holding a
//snapshot sees a consistent list no matter what happens after.
type List[T any] struct {
	mu    sync.RWMutex
	pages map[string][]Page[T]
}

//NewList constructs an empty List.
func NewList[T any]() *List[T] {
	return &List[T]{pages: make(map[string][]Page[T])}
}

//Pages returns the cached page set for key, and whether the key has ever been filled.
//An empty cached list is distinct from an absent one.
func (l *List[T]) Pages(key string) (pages []Page[T], ok bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	pages, ok = l.pages[key]
	return
}

//Items returns the flattened view of key: the ordered concatenation of its pages' items.
func (l *List[T]) Items(key string) (items []T) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, page := range l.pages[key] {
		items = append(items, page.Items...)
	}
	return
}

//Count returns how many items key holds across all its pages.
func (l *List[T]) Count(key string) (n int) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, page := range l.pages[key] {
		n += len(page.Items)
	}
	return
}

//AppendPage adds a page to the end of key's page sequence, creating the entry if needed.
func (l *List[T]) AppendPage(key string, page Page[T]) {
	l.mu.Lock()
	defer l.mu.Unlock()
	next := make([]Page[T], 0, len(l.pages[key])+1)
	next = append(next, l.pages[key]...)
	next = append(next, page)
	l.pages[key] = next
}

//AppendItem adds a single item to the end of key's final page, creating a
//page if the key is empty. Optimistic and inbound message appends use this;
//it does not change the list's continuation state.
func (l *List[T]) AppendItem(key string, item T) {
	l.mu.Lock()
	defer l.mu.Unlock()
	pages := l.pages[key]
	if len(pages) == 0 {
		l.pages[key] = []Page[T]{{Items: []T{item}}}
		return
	}
	out := make([]Page[T], len(pages))
	copy(out, pages)
	last := out[len(out)-1]
	items := make([]T, 0, len(last.Items)+1)
	items = append(items, last.Items...)
	items = append(items, item)
	last.Items = items
	out[len(out)-1] = last
	l.pages[key] = out
}

//Replace swaps in a whole new page set for key.
func (l *List[T]) Replace(key string, pages []Page[T]) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pages[key] = pages
}

//Drop evicts key entirely.
func (l *List[T]) Drop(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.pages, key)
}

//MutateItem applies update to every item under key matching the predicate,
//preserving page boundaries and ordering. It reports how many items changed;
//a missing key is a no-op.
func (l *List[T]) MutateItem(key string, match func(T) bool, update func(T) T) (changed int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	pages, ok := l.pages[key]
	if !ok {
		return 0
	}
	l.pages[key] = mutatePages(pages, match, update, &changed)
	return
}

//MutateAll is MutateItem over every key in the cache: the engine uses it to
//update each denormalized copy of an entity in one synchronous pass.
func (l *List[T]) MutateAll(match func(T) bool, update func(T) T) (changed int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, pages := range l.pages {
		l.pages[key] = mutatePages(pages, match, update, &changed)
	}
	return
}

func mutatePages[T any](pages []Page[T], match func(T) bool, update func(T) T, changed *int) []Page[T] {
	out := make([]Page[T], len(pages))
	for i, page := range pages {
		items := make([]T, len(page.Items))
		for j, item := range page.Items {
			if match(item) {
				items[j] = update(item)
				*changed++
			} else {
				items[j] = item
			}
		}
		page.Items = items
		out[i] = page
	}
	return out
}

//RemoveItem filters matching items out of whichever of key's pages contain them.
func (l *List[T]) RemoveItem(key string, match func(T) bool) (removed int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	pages, ok := l.pages[key]
	if !ok {
		return 0
	}
	out := make([]Page[T], len(pages))
	for i, page := range pages {
		items := make([]T, 0, len(page.Items))
		for _, item := range page.Items {
			if match(item) {
				removed++
				continue
			}
			items = append(items, item)
		}
		page.Items = items
		out[i] = page
	}
	l.pages[key] = out
	return
}

//Find returns the first item under key matching the predicate.
func (l *List[T]) Find(key string, match func(T) bool) (item T, ok bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, page := range l.pages[key] {
		for _, it := range page.Items {
			if match(it) {
				return it, true
			}
		}
	}
	return
}

//FindAny is Find across every key.
func (l *List[T]) FindAny(match func(T) bool) (item T, ok bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, pages := range l.pages {
		for _, page := range pages {
			for _, it := range page.Items {
				if match(it) {
					return it, true
				}
			}
		}
	}
	return
}
