package layout

import "math"

// Cursor 是排版期间的瞬时状态，只由 flowController 持有和修改，排版结束即丢弃。
// Page 为当前活动页在 PageRegistry 中的下标，尚未创建任何页面时为 -1。
type Cursor struct {
	Page   int     `json:"page"`
	Y      float64 `json:"y"`
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
}

// lineSpec 描述一行待放置的文本。
type lineSpec struct {
	text   string
	style  Style
	indent float64
	offset float64 // 居中等对齐方式在块宽度内的水平偏移
	width  float64
	align  Align
	last   bool
}

// flowController 逐行判断剩余垂直空间，必要时在放置前换页。
type flowController struct {
	reg          *PageRegistry
	opts         Options
	cur          Cursor
	breakPending bool
}

func newFlowController(reg *PageRegistry, opts Options) *flowController {
	return &flowController{
		reg:  reg,
		opts: opts,
		cur: Cursor{
			Page:   -1,
			Y:      opts.Height - opts.Margin.Top,
			Top:    opts.Margin.Top,
			Bottom: opts.Margin.Bottom,
		},
	}
}

// top 是内容区顶部的 y 坐标。
func (fc *flowController) top() float64 {
	return fc.opts.Height - fc.cur.Top
}

func (fc *flowController) ensurePage() {
	if fc.cur.Page < 0 {
		fc.reg.Current()
		fc.cur.Page = fc.reg.Len() - 1
	}
}

func (fc *flowController) pageEmpty() bool {
	return fc.cur.Page < 0 || len(fc.reg.page(fc.cur.Page).Lines) == 0
}

func (fc *flowController) newPage() {
	fc.reg.NewPage()
	fc.cur.Page = fc.reg.Len() - 1
	fc.cur.Y = fc.top()
}

// place 放置一行：若行框会越过下边距则先换页，然后在 (左边距+缩进, y) 处记录该行，
// 最后 y 下移 字号×行距。判断按行进行，因此一个段落可以在句中跨页。
func (fc *flowController) place(ls lineSpec) PositionedLine {
	fc.ensurePage()
	advance := ls.style.Size * fc.opts.LineSpacing
	if fc.cur.Y-advance < fc.cur.Bottom {
		if fc.pageEmpty() {
			// 空页上只可能是块间距把 y 推低了，回到顶部即可，不产生空白页。
			fc.cur.Y = fc.top()
		} else {
			fc.newPage()
		}
	}
	line := PositionedLine{
		X:     fc.opts.Margin.Left + ls.indent + ls.offset,
		Y:     fc.cur.Y,
		Text:  ls.text,
		Font:  ls.style.Font,
		Size:  ls.style.Size,
		Width: ls.width,
		Align: ls.align,
		Last:  ls.last,
		Role:  RoleBody,
	}
	page := fc.reg.page(fc.cur.Page)
	page.Lines = append(page.Lines, line)
	fc.cur.Y = math.Max(fc.cur.Y-advance, fc.cur.Bottom)
	return line
}

// gap 施加块级额外间距，y 不会低于下边距。
func (fc *flowController) gap(amount float64) {
	if amount <= 0 {
		return
	}
	fc.cur.Y = math.Max(fc.cur.Y-amount, fc.cur.Bottom)
}

// pageBreak 处理显式换页；当前页还没有内容时只把 y 复位到顶部。
func (fc *flowController) pageBreak() {
	if fc.pageEmpty() {
		fc.cur.Y = fc.top()
		return
	}
	fc.newPage()
}
