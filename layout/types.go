package layout

// 该文件定义内容块、定位行与页面结果，供排版、渲染与调试 JSON 共用。
// 坐标统一使用 pt，原点位于页面左下角，y 向上增长（与 PDF 一致）。

// FontVariant 是封闭的字重枚举，只区分常规与粗体。
type FontVariant int

const (
	Regular FontVariant = iota
	Bold
)

func (f FontVariant) String() string {
	switch f {
	case Regular:
		return "regular"
	case Bold:
		return "bold"
	default:
		return "unknown"
	}
}

// MarshalText 让调试 JSON 输出可读的字重名称。
func (f FontVariant) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// Align 描述行在块宽度内的水平对齐方式。
type Align int

const (
	AlignLeft Align = iota
	AlignCenter
	AlignJustify
)

func (a Align) String() string {
	switch a {
	case AlignCenter:
		return "center"
	case AlignJustify:
		return "justify"
	default:
		return "left"
	}
}

func (a Align) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// Style 是内容块的字体样式：字重 + 字号（pt）。
type Style struct {
	Font FontVariant `json:"font"`
	Size float64     `json:"size"`
}

// ContentBlock 是一段语义文本（标题、标签行、段落），由内容组装方创建，排版时只消费一次。
type ContentBlock struct {
	Text     string  `json:"text"`
	Style    Style   `json:"style"`
	Indent   float64 `json:"indent"`
	MaxWidth float64 `json:"maxWidth"` // <=0 时取内容区宽度减去缩进
	Align    Align   `json:"align"`
	// GapAfter 是块结束后额外下移的距离，由调用方显式给出。
	GapAfter float64 `json:"gapAfter"`
	// PageBreak 要求该块从新页开始；当前页尚无内容时不会产生空白页。
	PageBreak bool `json:"pageBreak,omitempty"`
}

// LineRole 区分正文行与页脚行。
type LineRole int

const (
	RoleBody LineRole = iota
	RoleFooter
)

func (r LineRole) MarshalText() ([]byte, error) {
	if r == RoleFooter {
		return []byte("footer"), nil
	}
	return []byte("body"), nil
}

// PositionedLine 是已经确定坐标的一行文本。Y 为行框顶部。
type PositionedLine struct {
	X     float64     `json:"x"`
	Y     float64     `json:"y"`
	Text  string      `json:"text"`
	Font  FontVariant `json:"font"`
	Size  float64     `json:"size"`
	Width float64     `json:"width"` // 可用宽度，两端对齐时用于分配词间距
	Align Align       `json:"align"`
	Last  bool        `json:"last,omitempty"` // 段落末行，不做两端对齐
	Role  LineRole    `json:"role"`
}

// Page 记录页面尺寸与按绘制顺序排列的行。
type Page struct {
	Width  float64          `json:"width"`
	Height float64          `json:"height"`
	Lines  []PositionedLine `json:"lines"`
}

// Margin 以 pt 为单位。
type Margin struct {
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
}

// DocumentMeta 保存 PDF 元信息。
type DocumentMeta struct {
	Title    string   `json:"title"`
	Author   string   `json:"author"`
	Subject  string   `json:"subject"`
	Creator  string   `json:"creator"`
	Keywords []string `json:"keywords"`
}

// Document 是完成页脚编号后的最终排版结果，可直接交给渲染器。
type Document struct {
	Width  float64      `json:"width"`
	Height float64      `json:"height"`
	Margin Margin       `json:"margin"`
	Pages  []Page       `json:"pages"`
	Meta   DocumentMeta `json:"meta"`
}
