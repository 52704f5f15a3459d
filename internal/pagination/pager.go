// Package pagination computes navigation state for server-paged lists.
package pagination

// Pager describes one page of a server-paged list. Pages, when set, is the
// page count reported by the server; otherwise it is derived from Total.
type Pager struct {
	Page  int
	Limit int
	Total int
	Pages int
}

// New builds a Pager, clamping page to at least 1.
func New(page, limit, total, pages int) Pager {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 1
	}
	return Pager{Page: page, Limit: limit, Total: total, Pages: pages}
}

// TotalPages is ceil(Total/Limit) unless the server reported a count.
func (p Pager) TotalPages() int {
	if p.Pages > 0 {
		return p.Pages
	}
	if p.Limit <= 0 || p.Total <= 0 {
		return 0
	}
	return (p.Total + p.Limit - 1) / p.Limit
}

func (p Pager) PrevDisabled() bool { return p.Page <= 1 }

func (p Pager) NextDisabled() bool { return p.Page >= p.TotalPages() }

func (p Pager) Prev() int {
	if p.PrevDisabled() {
		return p.Page
	}
	return p.Page - 1
}

func (p Pager) Next() int {
	if p.NextDisabled() {
		return p.Page
	}
	return p.Page + 1
}

// Clamp keeps page inside [1, TotalPages], treating an empty list as one page.
func (p Pager) Clamp(page int) int {
	last := p.TotalPages()
	if last < 1 {
		last = 1
	}
	switch {
	case page < 1:
		return 1
	case page > last:
		return last
	}
	return page
}

// First and last 1-based item index shown on this page, for "Showing x-y of z".
func (p Pager) Range() (int, int) {
	if p.Total == 0 {
		return 0, 0
	}
	from := (p.Page-1)*p.Limit + 1
	to := from + p.Limit - 1
	if to > p.Total {
		to = p.Total
	}
	return from, to
}
