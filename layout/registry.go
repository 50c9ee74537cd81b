package layout

// PageRegistry 按插入顺序持有一次排版会话产生的全部页面；下标即页码减一。
// 排版期间只追加、不删除、不重排。
type PageRegistry struct {
	width  float64
	height float64
	pages  []*Page
}

func newPageRegistry(width, height float64) *PageRegistry {
	return &PageRegistry{width: width, height: height}
}

// Current 返回最后一页，首次访问时惰性创建第一页。
func (r *PageRegistry) Current() *Page {
	if len(r.pages) == 0 {
		return r.NewPage()
	}
	return r.pages[len(r.pages)-1]
}

// NewPage 总是追加一张新页面。
func (r *PageRegistry) NewPage() *Page {
	p := &Page{Width: r.width, Height: r.height}
	r.pages = append(r.pages, p)
	return p
}

// Len 是权威的总页数。
func (r *PageRegistry) Len() int {
	return len(r.pages)
}

// Pages 返回页面的只读副本。
func (r *PageRegistry) Pages() []Page {
	out := make([]Page, len(r.pages))
	for i, p := range r.pages {
		lines := make([]PositionedLine, len(p.Lines))
		copy(lines, p.Lines)
		out[i] = Page{Width: p.Width, Height: p.Height, Lines: lines}
	}
	return out
}

func (r *PageRegistry) page(i int) *Page {
	return r.pages[i]
}
