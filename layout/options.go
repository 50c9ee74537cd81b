package layout

import "fmt"

const (
	defaultLineSpacing  = 1.5
	defaultFooterSize   = 10.0
	defaultFooterOffset = 50.0
	defaultMargin       = 50.0
)

// TextMeasurer 返回字符串在给定字重与字号（pt）下的渲染宽度（pt）。
// 字体不可用时必须返回错误，而不是猜测宽度。
type TextMeasurer interface {
	TextWidth(font FontVariant, size float64, text string) (float64, error)
}

// Options 配置一次排版会话的页面几何与行距。
// LineSpacing、FooterSize、FooterOffset 为零值（或负数）时使用默认值；
// 需要把页脚贴近页面底边时请给出一个很小的正数。
type Options struct {
	Width        float64
	Height       float64
	Margin       Margin
	LineSpacing  float64 // 行距倍数，默认 1.5
	FooterSize   float64 // 页脚字号，默认 10pt
	FooterOffset float64 // 页脚行框顶部距页面底边的距离，默认 50pt
	Measurer     TextMeasurer
	Meta         DocumentMeta
}

// DefaultOptions 返回 A4（595 × 842pt）、四边 50pt 边距的配置。
func DefaultOptions(m TextMeasurer) Options {
	size := pagePresets["A4"]
	return Options{
		Width:    size[0],
		Height:   size[1],
		Margin:   Margin{Top: defaultMargin, Right: defaultMargin, Bottom: defaultMargin, Left: defaultMargin},
		Measurer: m,
	}.withDefaults()
}

func (o Options) withDefaults() Options {
	if o.LineSpacing <= 0 {
		o.LineSpacing = defaultLineSpacing
	}
	if o.FooterSize <= 0 {
		o.FooterSize = defaultFooterSize
	}
	if o.FooterOffset <= 0 {
		o.FooterOffset = defaultFooterOffset
	}
	return o
}

func (o Options) validate() error {
	if o.Measurer == nil {
		return fmt.Errorf("layout: 缺少文本测量后端 TextMeasurer")
	}
	if o.Width <= 0 || o.Height <= 0 {
		return fmt.Errorf("layout: 页面尺寸无效 %gx%g", o.Width, o.Height)
	}
	if o.contentWidth() <= 0 || o.Height-o.Margin.Top-o.Margin.Bottom <= 0 {
		return fmt.Errorf("layout: 边距 %+v 超出页面尺寸", o.Margin)
	}
	return nil
}

func (o Options) contentWidth() float64 {
	return o.Width - o.Margin.Left - o.Margin.Right
}

// BuildOptions 配置模板构建阶段所需的依赖；页面几何由模板决定。
type BuildOptions struct {
	Measurer     TextMeasurer
	LineSpacing  float64
	FooterSize   float64
	FooterOffset float64
}
