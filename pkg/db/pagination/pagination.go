package pagination

const (
	DefaultPageSize = 20
	MaxPageSize     = 250
)

// Page is a 1-based offset page request.
type Page struct {
	Number int `form:"page,default=1"`
	Size   int `form:"page_size,default=20"`
}

// Normalize clamps the page into valid bounds.
func (p Page) Normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size <= 0 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

func (p Page) Offset() int {
	n := p.Normalize()
	return (n.Number - 1) * n.Size
}

type PageInfo struct {
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	LastPage int   `json:"last_page"`
}

// BuildPageInfo derives the last page from the total row count. An empty
// result still reports last_page 1 so clients never see page 0.
func BuildPageInfo(page Page, total int64) PageInfo {
	n := page.Normalize()
	last := int((total + int64(n.Size) - 1) / int64(n.Size))
	if last < 1 {
		last = 1
	}
	return PageInfo{
		Total:    total,
		Page:     n.Number,
		PageSize: n.Size,
		LastPage: last,
	}
}
