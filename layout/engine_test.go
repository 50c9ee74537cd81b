package layout

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"
)

// fixedMeasurer 每个字符固定 5pt 宽，与字重字号无关，使排版结果可以手算。
type fixedMeasurer struct{}

func (fixedMeasurer) TextWidth(_ FontVariant, _ float64, text string) (float64, error) {
	return float64(utf8.RuneCountInString(text)) * 5, nil
}

// failingMeasurer 模拟字体加载失败。
type failingMeasurer struct{}

func (failingMeasurer) TextWidth(font FontVariant, _ float64, _ string) (float64, error) {
	return 0, fmt.Errorf("font %s not loadable", font)
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(DefaultOptions(fixedMeasurer{}))
	if err != nil {
		t.Fatalf("创建引擎失败: %v", err)
	}
	return e
}

func lineBlocks(n int, size float64) []ContentBlock {
	blocks := make([]ContentBlock, n)
	for i := range blocks {
		blocks[i] = ContentBlock{Text: fmt.Sprintf("line %d", i+1), Style: Style{Font: Regular, Size: size}}
	}
	return blocks
}

func bodyLines(p Page) []PositionedLine {
	var out []PositionedLine
	for _, l := range p.Lines {
		if l.Role == RoleBody {
			out = append(out, l)
		}
	}
	return out
}

func footerLines(p Page) []PositionedLine {
	var out []PositionedLine
	for _, l := range p.Lines {
		if l.Role == RoleFooter {
			out = append(out, l)
		}
	}
	return out
}

// TestFlowBreaksAfter27LinesAtSize18 验证 (842-50-50)/27 = 27 行可放入第一页，第 28 行开启第二页。
func TestFlowBreaksAfter27LinesAtSize18(t *testing.T) {
	doc, err := newTestEngine(t).Render(lineBlocks(40, 18))
	if err != nil {
		t.Fatalf("排版失败: %v", err)
	}
	if len(doc.Pages) != 2 {
		t.Fatalf("期望 2 页，实际 %d 页", len(doc.Pages))
	}
	first := bodyLines(doc.Pages[0])
	second := bodyLines(doc.Pages[1])
	if len(first) != 27 || len(second) != 13 {
		t.Fatalf("分页位置错误：第一页 %d 行，第二页 %d 行", len(first), len(second))
	}
	if first[26].Text != "line 27" || second[0].Text != "line 28" {
		t.Fatalf("换页行不符合预期: %q / %q", first[26].Text, second[0].Text)
	}
	if second[0].Y != 792 {
		t.Fatalf("新页首行应从 842-50=792 开始，实际 %g", second[0].Y)
	}
	for i, l := range first {
		if want := 792 - float64(i)*27; l.Y != want {
			t.Fatalf("第 %d 行 y=%g，期望 %g", i+1, l.Y, want)
		}
		if l.X != 50 {
			t.Fatalf("第 %d 行 x=%g，期望左边距 50", i+1, l.X)
		}
	}
}

// TestFlowExactBoundaryStaysOnPage 行框底部恰好落在下边距上时不换页，也不会多出空白页。
func TestFlowExactBoundaryStaysOnPage(t *testing.T) {
	opts := DefaultOptions(fixedMeasurer{})
	opts.Height = 100 + 27*27
	e, err := NewEngine(opts)
	if err != nil {
		t.Fatalf("创建引擎失败: %v", err)
	}
	doc, err := e.Render(lineBlocks(27, 18))
	if err != nil {
		t.Fatalf("排版失败: %v", err)
	}
	if len(doc.Pages) != 1 {
		t.Fatalf("恰好填满一页时应只有 1 页，实际 %d 页", len(doc.Pages))
	}
	if got := len(bodyLines(doc.Pages[0])); got != 27 {
		t.Fatalf("期望 27 行，实际 %d", got)
	}
}

func TestEmptyInputRendersSinglePage(t *testing.T) {
	doc, err := newTestEngine(t).Render(nil)
	if err != nil {
		t.Fatalf("排版失败: %v", err)
	}
	if len(doc.Pages) != 1 {
		t.Fatalf("空输入应产生 1 页，实际 %d", len(doc.Pages))
	}
	lines := doc.Pages[0].Lines
	if len(lines) != 1 || lines[0].Text != "Page 1 of 1" || lines[0].Role != RoleFooter {
		t.Fatalf("空输入的页面只应包含页脚，实际 %+v", lines)
	}
}

func TestFooterOnEveryPage(t *testing.T) {
	doc, err := newTestEngine(t).Render(lineBlocks(70, 18))
	if err != nil {
		t.Fatalf("排版失败: %v", err)
	}
	n := len(doc.Pages)
	if n != 3 {
		t.Fatalf("期望 3 页，实际 %d", n)
	}
	for i, p := range doc.Pages {
		footers := footerLines(p)
		if len(footers) != 1 {
			t.Fatalf("第 %d 页应只有一个页脚，实际 %d", i+1, len(footers))
		}
		f := footers[0]
		want := fmt.Sprintf("Page %d of %d", i+1, n)
		if f.Text != want {
			t.Fatalf("第 %d 页页脚 %q，期望 %q", i+1, f.Text, want)
		}
		// "Page 1 of 3" 共 11 个字符 = 55pt，居中于 595pt 宽的页面。
		if f.X != (595-55)/2.0 || f.Y != 50 || f.Size != 10 || f.Font != Regular {
			t.Fatalf("页脚位置或样式不正确: %+v", f)
		}
	}
}

func TestPageCountIsMonotonic(t *testing.T) {
	blocks := lineBlocks(90, 18)
	prev := 0
	for n := 0; n <= len(blocks); n += 7 {
		res, err := newTestEngine(t).Flow(blocks[:n])
		if err != nil {
			t.Fatalf("排版失败: %v", err)
		}
		if res.PageCount() < prev {
			t.Fatalf("追加内容后页数减少：%d -> %d", prev, res.PageCount())
		}
		prev = res.PageCount()
	}
}

func TestFinalizeOnlyOnce(t *testing.T) {
	res, err := newTestEngine(t).Flow(lineBlocks(3, 12))
	if err != nil {
		t.Fatalf("排版失败: %v", err)
	}
	doc, err := res.Finalize()
	if err != nil {
		t.Fatalf("Finalize 失败: %v", err)
	}
	if _, err := res.Finalize(); !errors.Is(err, ErrFinalized) {
		t.Fatalf("第二次 Finalize 应返回 ErrFinalized，实际 %v", err)
	}
	if res.PageCount() != 0 {
		t.Fatalf("Finalize 之后注册表应已被消耗")
	}
	if got := len(footerLines(doc.Pages[0])); got != 1 {
		t.Fatalf("页脚被盖了 %d 次", got)
	}
}

func TestFlowOnlyOnce(t *testing.T) {
	e := newTestEngine(t)
	if _, err := e.Flow(nil); err != nil {
		t.Fatalf("排版失败: %v", err)
	}
	if _, err := e.Flow(nil); !errors.Is(err, ErrEngineUsed) {
		t.Fatalf("第二次 Flow 应返回 ErrEngineUsed，实际 %v", err)
	}
}

func TestPageBreakNeverCreatesBlankPage(t *testing.T) {
	blocks := []ContentBlock{
		{Text: "first", Style: Style{Size: 12}, PageBreak: true},
		{Text: "second", Style: Style{Size: 12}, PageBreak: true},
	}
	doc, err := newTestEngine(t).Render(blocks)
	if err != nil {
		t.Fatalf("排版失败: %v", err)
	}
	if len(doc.Pages) != 2 {
		t.Fatalf("期望 2 页，实际 %d", len(doc.Pages))
	}
	if got := bodyLines(doc.Pages[0]); len(got) != 1 || got[0].Text != "first" {
		t.Fatalf("第一页内容不正确: %+v", got)
	}
}

func TestEmptyBlockPageBreakCarriesForward(t *testing.T) {
	trailing := []ContentBlock{
		{Text: "content", Style: Style{Size: 12}},
		{Text: "\x00血", Style: Style{Size: 12}, PageBreak: true},
	}
	doc, err := newTestEngine(t).Render(trailing)
	if err != nil {
		t.Fatalf("排版失败: %v", err)
	}
	if len(doc.Pages) != 1 {
		t.Fatalf("末尾的空块不应产生空白页，实际 %d 页", len(doc.Pages))
	}

	carried := []ContentBlock{
		{Text: "content", Style: Style{Size: 12}},
		{Text: "  ", Style: Style{Size: 12}, PageBreak: true},
		{Text: "next", Style: Style{Size: 12}},
		{Text: "same page", Style: Style{Size: 12}},
	}
	doc, err = newTestEngine(t).Render(carried)
	if err != nil {
		t.Fatalf("排版失败: %v", err)
	}
	if len(doc.Pages) != 2 {
		t.Fatalf("换页请求应顺延到下一个有内容的块，实际 %d 页", len(doc.Pages))
	}
	got := bodyLines(doc.Pages[1])
	if len(got) != 2 || got[0].Text != "next" || got[0].Y != 792 {
		t.Fatalf("第二页内容不正确: %+v", got)
	}
}

func TestGapClampsAtBottomMargin(t *testing.T) {
	blocks := []ContentBlock{
		{Text: "before", Style: Style{Size: 12}, GapAfter: 5000},
		{Text: "after", Style: Style{Size: 12}},
	}
	doc, err := newTestEngine(t).Render(blocks)
	if err != nil {
		t.Fatalf("排版失败: %v", err)
	}
	if len(doc.Pages) != 2 {
		t.Fatalf("超大间距后应换到第 2 页，实际 %d 页", len(doc.Pages))
	}
	if got := bodyLines(doc.Pages[1]); got[0].Y != 792 {
		t.Fatalf("新页首行 y=%g，期望 792", got[0].Y)
	}
}

func TestEmptyTextContributesOnlyGap(t *testing.T) {
	blocks := []ContentBlock{
		{Text: "a", Style: Style{Size: 12}},
		{Text: "\x00体", Style: Style{Size: 12}, GapAfter: 20},
		{Text: "b", Style: Style{Size: 12}},
	}
	doc, err := newTestEngine(t).Render(blocks)
	if err != nil {
		t.Fatalf("排版失败: %v", err)
	}
	got := bodyLines(doc.Pages[0])
	if len(got) != 2 {
		t.Fatalf("清洗后为空的块不应产生行，实际 %+v", got)
	}
	if want := 792.0 - 18 - 20; got[1].Y != want {
		t.Fatalf("第二行 y=%g，期望 %g", got[1].Y, want)
	}
}

func TestIndentCenterAndJustifyMarkers(t *testing.T) {
	blocks := []ContentBlock{
		{Text: "title", Style: Style{Font: Bold, Size: 24}, Align: AlignCenter},
		{Text: "Score: 7/10", Style: Style{Size: 12}, Indent: 20},
		{Text: "aaaa bbbb cccc dddd", Style: Style{Size: 12}, MaxWidth: 50, Align: AlignJustify},
	}
	doc, err := newTestEngine(t).Render(blocks)
	if err != nil {
		t.Fatalf("排版失败: %v", err)
	}
	got := bodyLines(doc.Pages[0])
	// 内容宽 495，"title" 宽 25。
	if got[0].X != 50+(495-25)/2.0 || got[0].Font != Bold {
		t.Fatalf("居中行位置不正确: %+v", got[0])
	}
	if got[1].X != 70 || got[1].Width != 475 {
		t.Fatalf("缩进行位置不正确: %+v", got[1])
	}
	wantText := []string{"aaaa bbbb", "cccc dddd"}
	for i, l := range got[2:] {
		if l.Text != wantText[i] || l.Width != 50 || l.Align != AlignJustify {
			t.Fatalf("两端对齐行 %d 不正确: %+v", i, l)
		}
		if l.Last != (i == 1) {
			t.Fatalf("只有段落末行应标记 Last: %+v", l)
		}
	}
}

func TestMeasurerFailureAbortsFlow(t *testing.T) {
	e, err := NewEngine(DefaultOptions(failingMeasurer{}))
	if err != nil {
		t.Fatalf("创建引擎失败: %v", err)
	}
	_, err = e.Flow([]ContentBlock{{Text: "hello", Style: Style{Size: 12}}})
	if err == nil || !strings.Contains(err.Error(), "not loadable") {
		t.Fatalf("测量失败应中止排版，实际 %v", err)
	}
}

func TestNewEngineValidatesOptions(t *testing.T) {
	if _, err := NewEngine(DefaultOptions(nil)); err == nil {
		t.Fatalf("缺少 Measurer 时应报错")
	}
	opts := DefaultOptions(fixedMeasurer{})
	opts.Margin.Left = 400
	opts.Margin.Right = 400
	if _, err := NewEngine(opts); err == nil {
		t.Fatalf("边距超出页面宽度时应报错")
	}
}

func TestZeroOptionsUseDefaults(t *testing.T) {
	opts := DefaultOptions(fixedMeasurer{})
	opts.LineSpacing, opts.FooterSize, opts.FooterOffset = 0, 0, 0
	e, err := NewEngine(opts)
	if err != nil {
		t.Fatalf("创建引擎失败: %v", err)
	}
	doc, err := e.Render(lineBlocks(2, 12))
	if err != nil {
		t.Fatalf("排版失败: %v", err)
	}
	body := bodyLines(doc.Pages[0])
	if body[1].Y != 792-18 {
		t.Fatalf("零值行距应按 1.5 处理，第二行 y=%g", body[1].Y)
	}
	if f := footerLines(doc.Pages[0]); f[0].Y != 50 || f[0].Size != 10 {
		t.Fatalf("零值页脚参数应使用默认值，实际 %+v", f[0])
	}

	opts.FooterOffset = 0.5
	e, err = NewEngine(opts)
	if err != nil {
		t.Fatalf("创建引擎失败: %v", err)
	}
	doc, err = e.Render(nil)
	if err != nil {
		t.Fatalf("排版失败: %v", err)
	}
	if f := footerLines(doc.Pages[0]); f[0].Y != 0.5 {
		t.Fatalf("页脚应贴近底边，实际 y=%g", f[0].Y)
	}
}

func TestRegistryPagesIsCopy(t *testing.T) {
	reg := newPageRegistry(595, 842)
	reg.Current().Lines = append(reg.Current().Lines, PositionedLine{Text: "x"})
	pages := reg.Pages()
	pages[0].Lines[0].Text = "changed"
	want := []PositionedLine{{Text: "x"}}
	if diff := cmp.Diff(want, reg.page(0).Lines); diff != "" {
		t.Fatalf("Pages 返回的副本被修改影响了注册表 (-want +got):\n%s", diff)
	}
	if reg.Len() != 1 {
		t.Fatalf("Current 不应重复创建页面")
	}
}
