package layout

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// markdownBlocks 把一段 Markdown 叙述拆成内容块：标题使用 heading 模板，段落使用 body 模板，
// 列表项加 "- " 或序号前缀并逐级缩进，代码块原样保留换行，分隔线转为一行高度的空白。
// 行内强调、链接等只保留文字。
func markdownBlocks(src string, body, heading ContentBlock) []ContentBlock {
	if strings.TrimSpace(src) == "" {
		return nil
	}
	source := []byte(src)
	s := &mdSplitter{source: source, body: body, heading: heading}
	s.blocks(goldmark.New().Parser().Parse(text.NewReader(source)), 0)
	return s.out
}

type mdSplitter struct {
	source  []byte
	body    ContentBlock
	heading ContentBlock
	out     []ContentBlock
}

func (s *mdSplitter) emit(tmpl ContentBlock, content string, indent float64) {
	if strings.TrimSpace(content) == "" {
		return
	}
	b := tmpl
	b.Text = content
	b.Indent += indent
	s.out = append(s.out, b)
}

func (s *mdSplitter) blocks(parent ast.Node, depth int) {
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		s.node(n, depth)
	}
}

func (s *mdSplitter) node(n ast.Node, depth int) {
	indent := float64(depth) * listIndent
	switch node := n.(type) {
	case *ast.Heading:
		s.emit(s.heading, s.inline(node), indent)
	case *ast.Paragraph, *ast.TextBlock:
		s.emit(s.body, s.inline(node), indent)
	case *ast.List:
		s.list(node, depth)
	case *ast.FencedCodeBlock, *ast.CodeBlock:
		code := s.body
		code.Align = AlignLeft
		s.emit(code, s.rawLines(node), indent)
	case *ast.ThematicBreak:
		s.out = append(s.out, ContentBlock{GapAfter: s.body.Style.Size})
	case *ast.HTMLBlock:
	default:
		s.blocks(node, depth)
	}
}

// list 输出列表项；紧凑列表的项之间不留间距，只在最外层列表结束后补上段落间距。
func (s *mdSplitter) list(list *ast.List, depth int) {
	start := len(s.out)
	indent := float64(depth+1) * listIndent
	tmpl := s.body
	if list.IsTight {
		tmpl.GapAfter = 0
	}
	number := list.Start
	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		marker := "-"
		if list.IsOrdered() {
			marker = fmt.Sprintf("%d.", number)
			number++
		}
		first := true
		for child := item.FirstChild(); child != nil; child = child.NextSibling() {
			switch node := child.(type) {
			case *ast.Paragraph, *ast.TextBlock:
				content := s.inline(node)
				if first {
					content = marker + " " + content
					first = false
				}
				s.emit(tmpl, content, indent)
			case *ast.List:
				s.list(node, depth+1)
			default:
				s.node(child, depth+1)
			}
		}
	}
	if depth == 0 && len(s.out) > start {
		s.out[len(s.out)-1].GapAfter = s.body.GapAfter
	}
}

// inline 拼接节点下的纯文本；软换行变为空格，硬换行保留为换行符。
func (s *mdSplitter) inline(n ast.Node) string {
	var b strings.Builder
	_ = ast.Walk(n, func(child ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := child.(type) {
		case *ast.Text:
			b.Write(resolveEscapes(node.Segment.Value(s.source)))
			switch {
			case node.HardLineBreak():
				b.WriteByte('\n')
			case node.SoftLineBreak():
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(node.Value)
		case *ast.CodeSpan:
			for c := node.FirstChild(); c != nil; c = c.NextSibling() {
				if t, ok := c.(*ast.Text); ok {
					b.Write(t.Segment.Value(s.source))
				}
			}
			return ast.WalkSkipChildren, nil
		case *ast.AutoLink:
			b.Write(node.Label(s.source))
			return ast.WalkSkipChildren, nil
		case *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}

// resolveEscapes 处理反斜杠转义与 HTML 实体，顺序同 goldmark 的 html 渲染器。
func resolveEscapes(v []byte) []byte {
	v = util.UnescapePunctuations(v)
	v = util.ResolveNumericReferences(v)
	return util.ResolveEntityNames(v)
}

func (s *mdSplitter) rawLines(n ast.Node) string {
	var b strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(s.source))
	}
	return strings.TrimRight(b.String(), "\n")
}
