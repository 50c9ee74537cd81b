package canvasrenderer

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"

	"github.com/nirvana-analytics/healthreport/fonts"
	"github.com/nirvana-analytics/healthreport/layout"
	"github.com/nirvana-analytics/healthreport/renderer"
)

// Renderer draws layout documents via github.com/tdewolff/canvas and doubles as
// the layout.TextMeasurer, so wrapping and drawing use the same font metrics.
// One Renderer serves one request.
type Renderer struct {
	fontMu   sync.Mutex
	families map[layout.FontVariant]*canvas.FontFamily
	faces    map[faceKey]*canvas.FontFace
}

var (
	_ renderer.Renderer   = (*Renderer)(nil)
	_ layout.TextMeasurer = (*Renderer)(nil)
)

type faceKey struct {
	font layout.FontVariant
	size float64
}

var textColor = canvas.RGBA(30.0/255.0, 30.0/255.0, 30.0/255.0, 1.0)

// NewRenderer creates a renderer backed by the built-in Go fonts.
func NewRenderer() *Renderer {
	return &Renderer{
		families: map[layout.FontVariant]*canvas.FontFamily{},
		faces:    map[faceKey]*canvas.FontFace{},
	}
}

// LoadFonts parses every built-in font variant up front. Fonts are otherwise
// loaded on first use.
func (r *Renderer) LoadFonts() error {
	r.fontMu.Lock()
	defer r.fontMu.Unlock()
	for _, v := range fonts.Variants() {
		if _, err := r.familyLocked(v); err != nil {
			return err
		}
	}
	return nil
}

// TextWidth implements layout.TextMeasurer. size and the result are in points.
func (r *Renderer) TextWidth(font layout.FontVariant, size float64, text string) (float64, error) {
	face, err := r.fontFace(font, size)
	if err != nil {
		return 0, err
	}
	return toPt(face.TextWidth(text)), nil
}

// Render renders the document into a PDF byte slice.
func (r *Renderer) Render(doc *layout.Document) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("渲染结果为空")
	}
	if len(doc.Pages) == 0 {
		return nil, fmt.Errorf("缺少可渲染的页面")
	}

	var buf bytes.Buffer
	first := doc.Pages[0]
	writer := pdf.New(&buf, toMm(first.Width), toMm(first.Height), nil)
	applyMeta(writer, doc.Meta)
	for i, page := range doc.Pages {
		w, h := toMm(page.Width), toMm(page.Height)
		if i > 0 {
			writer.NewPage(w, h)
		}
		c := canvas.New(w, h)
		ctx := canvas.NewContext(c)
		// 默认坐标系原点在左下角、y 向上，与布局坐标一致。
		for _, line := range page.Lines {
			if err := r.drawLine(ctx, line); err != nil {
				return nil, fmt.Errorf("绘制第 %d 页失败: %w", i+1, err)
			}
		}
		c.RenderTo(writer)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("写入 PDF 失败: %w", err)
	}
	return buf.Bytes(), nil
}

func applyMeta(writer *pdf.PDF, meta layout.DocumentMeta) {
	if writer == nil {
		return
	}
	keywords := strings.Join(meta.Keywords, ", ")
	writer.SetInfo(meta.Title, meta.Subject, keywords, meta.Author, meta.Creator)
}

// drawLine 把行框顶部换算为基线：baseline = top - ascent。
// 两端对齐的非末行把剩余宽度平均分配到词间。
func (r *Renderer) drawLine(ctx *canvas.Context, line layout.PositionedLine) error {
	if strings.TrimSpace(line.Text) == "" {
		return nil
	}
	face, err := r.fontFace(line.Font, line.Size)
	if err != nil {
		return err
	}
	x := toMm(line.X)
	baseline := toMm(line.Y) - face.Metrics().Ascent

	if line.Align == layout.AlignJustify && !line.Last {
		words := strings.Fields(line.Text)
		if len(words) > 1 {
			natural := 0.0
			for _, w := range words {
				natural += face.TextWidth(w)
			}
			if gap := (toMm(line.Width) - natural) / float64(len(words)-1); gap > 0 {
				for _, w := range words {
					ctx.DrawText(x, baseline, canvas.NewTextLine(face, w, canvas.Left))
					x += face.TextWidth(w) + gap
				}
				return nil
			}
		}
	}
	ctx.DrawText(x, baseline, canvas.NewTextLine(face, line.Text, canvas.Left))
	return nil
}

func (r *Renderer) fontFace(font layout.FontVariant, size float64) (*canvas.FontFace, error) {
	if size <= 0 {
		return nil, fmt.Errorf("字号必须为正数，实际 %g", size)
	}
	r.fontMu.Lock()
	defer r.fontMu.Unlock()

	key := faceKey{font: font, size: size}
	if face, ok := r.faces[key]; ok {
		return face, nil
	}
	family, err := r.familyLocked(font)
	if err != nil {
		return nil, err
	}
	face := family.Face(size, textColor, canvasStyle(font), canvas.FontNormal)
	r.faces[key] = face
	return face, nil
}

func (r *Renderer) familyLocked(font layout.FontVariant) (*canvas.FontFamily, error) {
	if family, ok := r.families[font]; ok {
		return family, nil
	}
	data, err := fonts.Load(font)
	if err != nil {
		return nil, err
	}
	family := canvas.NewFontFamily("healthreport-" + font.String())
	if err := family.LoadFont(data, 0, canvasStyle(font)); err != nil {
		return nil, fmt.Errorf("加载字体 %s 失败: %w", font, err)
	}
	r.families[font] = family
	return family, nil
}

func canvasStyle(font layout.FontVariant) canvas.FontStyle {
	if font == layout.Bold {
		return canvas.FontBold
	}
	return canvas.FontRegular
}

// toPt 将毫米(mm)转换为点(pt)。
func toPt(mm float64) float64 { return mm * layout.MmToPt }

// toMm 将点(pt)转换为毫米(mm)。
func toMm(pt float64) float64 { return pt * layout.PtToMm }
