package cache

//FetchFunc retrieves one page of a list query. cursor is the zero-based page
//number to fetch next.
type FetchFunc[T any] func(cursor int) (Page[T], error)

//Pager drives incremental fetch-more for one cached list.
//
//NextPage is safe to call from an onEndReached-style trigger as often as the
//UI likes: it requests the next page only if no fetch is already in flight
//and a next page is known to exist. A failed fetch is reported to the caller,
//is not cached, and does not advance the cursor.
type Pager[T any] struct {
	list  *List[T]
	key   string
	fetch FetchFunc[T]

	mu chan struct{} //capacity 1; held while a fetch is in flight
}

//NewPager constructs a Pager over list[key] backed by fetch.
func NewPager[T any](list *List[T], key string, fetch FetchFunc[T]) *Pager[T] {
	return &Pager[T]{list: list, key: key, fetch: fetch, mu: make(chan struct{}, 1)}
}

//HasMore reports whether a next page is known to exist. An unfetched list
//always has more; after that the last page's own continuation rule decides.
func (p *Pager[T]) HasMore() bool {
	pages, ok := p.list.Pages(p.key)
	if !ok || len(pages) == 0 {
		return true
	}
	last := pages[len(pages)-1]
	if last.Total > 0 {
		return p.list.Count(p.key) < last.Total
	}
	return last.HasNext
}

//NextPage fetches and appends the next page. It is a no-op while another
//fetch is in flight or when the list is known to be complete.
func (p *Pager[T]) NextPage() error {
	select {
	case p.mu <- struct{}{}:
	default:
		return nil //already fetching
	}
	defer func() { <-p.mu }()
	if !p.HasMore() {
		return nil
	}
	pages, _ := p.list.Pages(p.key)
	page, err := p.fetch(len(pages))
	if err != nil {
		return err
	}
	page.Cursor = len(pages)
	p.list.AppendPage(p.key, page)
	return nil
}
