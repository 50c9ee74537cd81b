package layout

import (
	"fmt"
	"strings"

	"github.com/nirvana-analytics/healthreport/binding"
	"github.com/nirvana-analytics/healthreport/dsl"
)

const (
	defaultFontSize = 12.0
	listIndent      = 15.0
)

// styleDef 是 resources 中声明的具名样式，Props 在 resolveStyles 之后已包含继承属性。
type styleDef struct {
	Name    string
	Extends string
	Props   map[string]string
}

// Build 根据模板 AST 与数据生成带页脚的最终文档。页面尺寸、边距与样式来自模板，
// 文本测量与行距等来自 opts。
func Build(doc *dsl.Document, data any, opts BuildOptions) (*Document, error) {
	if doc == nil {
		return nil, fmt.Errorf("文档为空")
	}
	if opts.Measurer == nil {
		return nil, fmt.Errorf("layout: 缺少文本测量后端 TextMeasurer")
	}
	section := firstPage(doc)
	if section == nil {
		return nil, fmt.Errorf("文档中缺少 page 段落")
	}
	width, height, err := resolvePageSize(section.Spec)
	if err != nil {
		return nil, err
	}
	blocks, err := CompileBlocks(doc, data)
	if err != nil {
		return nil, err
	}
	engine, err := NewEngine(Options{
		Width:        width,
		Height:       height,
		Margin:       resolveMargin(section.Spec.Params),
		LineSpacing:  opts.LineSpacing,
		FooterSize:   opts.FooterSize,
		FooterOffset: opts.FooterOffset,
		Measurer:     opts.Measurer,
		Meta:         collectMeta(doc, data),
	})
	if err != nil {
		return nil, err
	}
	return engine.Render(blocks)
}

// CompileBlocks 展开模板中的 each/when 并插值，得到按顺序排列的内容块。
func CompileBlocks(doc *dsl.Document, data any) ([]ContentBlock, error) {
	if doc == nil {
		return nil, fmt.Errorf("文档为空")
	}
	section := firstPage(doc)
	if section == nil {
		return nil, fmt.Errorf("文档中缺少 page 段落")
	}
	if section.Block == nil {
		return nil, fmt.Errorf("page 段落缺少内容")
	}
	styles, err := collectStyles(doc)
	if err != nil {
		return nil, err
	}
	c := &compiler{styles: styles}
	if err := c.block(section.Block, data); err != nil {
		return nil, err
	}
	return c.out, nil
}

type compiler struct {
	styles       map[string]styleDef
	out          []ContentBlock
	pendingBreak bool
}

func (c *compiler) emit(b ContentBlock) {
	if c.pendingBreak {
		b.PageBreak = true
		c.pendingBreak = false
	}
	c.out = append(c.out, b)
}

// block 依次处理 block 内的语句：text、markdown、space、break、each、when/unless。
func (c *compiler) block(block *dsl.Block, data any) error {
	if block == nil {
		return nil
	}
	for _, stmt := range block.Statements {
		if stmt.Command == nil {
			continue
		}
		cmd := stmt.Command
		var err error
		switch strings.ToLower(cmd.Name) {
		case "text":
			err = c.text(cmd, data)
		case "markdown":
			err = c.markdown(cmd, data)
		case "space":
			err = c.space(cmd)
		case "break":
			c.pendingBreak = true
		case "each":
			err = c.each(cmd, data)
		case "when", "unless":
			err = c.when(cmd, data)
		default:
			err = fmt.Errorf("%s: 不支持的语句 %s", cmd.Pos, cmd.Name)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *compiler) text(cmd *dsl.Command, data any) error {
	if cmd.Block == nil {
		return fmt.Errorf("%s: text 语句缺少内容", cmd.Pos)
	}
	style, attrs := parseArgs(cmd.Args, true)
	if err := c.checkStyle(cmd, style); err != nil {
		return err
	}
	b, err := blockFromAttrs(mergeStyleAttributes(style, attrs, c.styles))
	if err != nil {
		return fmt.Errorf("%s: %w", cmd.Pos, err)
	}
	b.Text = binding.Interpolate(extractText(cmd.Block), data)
	c.emit(b)
	return nil
}

func (c *compiler) markdown(cmd *dsl.Command, data any) error {
	if cmd.Block == nil {
		return fmt.Errorf("%s: markdown 语句缺少内容", cmd.Pos)
	}
	style, attrs := parseArgs(cmd.Args, true)
	headingStyle := attrs["heading"]
	delete(attrs, "heading")
	if err := c.checkStyle(cmd, style); err != nil {
		return err
	}
	body, err := blockFromAttrs(mergeStyleAttributes(style, attrs, c.styles))
	if err != nil {
		return fmt.Errorf("%s: %w", cmd.Pos, err)
	}
	heading := body
	if headingStyle != "" {
		if err := c.checkStyle(cmd, headingStyle); err != nil {
			return err
		}
		heading, err = blockFromAttrs(mergeStyleAttributes(headingStyle, nil, c.styles))
		if err != nil {
			return fmt.Errorf("%s: %w", cmd.Pos, err)
		}
	}
	for _, b := range markdownBlocks(binding.Interpolate(extractText(cmd.Block), data), body, heading) {
		c.emit(b)
	}
	return nil
}

func (c *compiler) checkStyle(cmd *dsl.Command, name string) error {
	if name == "" {
		return nil
	}
	if _, ok := c.styles[name]; !ok {
		return fmt.Errorf("%s: %s 语句引用了未定义的 style %s", cmd.Pos, cmd.Name, name)
	}
	return nil
}

func (c *compiler) space(cmd *dsl.Command) error {
	if len(cmd.Args) == 0 {
		return fmt.Errorf("%s: space 语句缺少高度", cmd.Pos)
	}
	l, ok := ParseLength(cmd.Args[0].Value)
	if !ok || l.Value < 0 {
		return fmt.Errorf("%s: space 高度无效 %q", cmd.Pos, cmd.Args[0].Value)
	}
	c.emit(ContentBlock{GapAfter: l.ToPT()})
	return nil
}

// each 遍历数组，循环体内可通过 item（或 as 指定的名字）与 index（从 1 开始）引用当前元素。
func (c *compiler) each(cmd *dsl.Command, data any) error {
	if len(cmd.Args) == 0 {
		return fmt.Errorf("%s: each 语句缺少数据路径", cmd.Pos)
	}
	name := "item"
	if len(cmd.Args) >= 3 && strings.EqualFold(cmd.Args[1].Value, "as") {
		name = cmd.Args[2].Value
	}
	for i, item := range binding.Items(data, cmd.Args[0].Value) {
		scope := binding.With(binding.With(data, name, item), "index", float64(i+1))
		if err := c.block(cmd.Block, scope); err != nil {
			return err
		}
	}
	return nil
}

func (c *compiler) when(cmd *dsl.Command, data any) error {
	if len(cmd.Args) == 0 {
		return fmt.Errorf("%s: %s 语句缺少数据路径", cmd.Pos, cmd.Name)
	}
	v, _ := binding.Lookup(data, cmd.Args[0].Value)
	if binding.Truthy(v) == strings.EqualFold(cmd.Name, "unless") {
		return nil
	}
	return c.block(cmd.Block, data)
}

// blockFromAttrs 把合并后的样式属性转换为内容块模板（不含文本）。
func blockFromAttrs(attrs map[string]string) (ContentBlock, error) {
	b := ContentBlock{Style: Style{Font: Regular, Size: defaultFontSize}}
	if v, ok := attrs["font"]; ok {
		f, err := parseFontVariant(v)
		if err != nil {
			return b, err
		}
		b.Style.Font = f
	}
	if v, ok := attrs["size"]; ok {
		size := parsePoints(v)
		if size <= 0 {
			return b, fmt.Errorf("字号无效 %q", v)
		}
		b.Style.Size = size
	}
	if v, ok := attrs["align"]; ok {
		a, err := parseAlign(v)
		if err != nil {
			return b, err
		}
		b.Align = a
	}
	b.Indent = parsePoints(attrs["indent"])
	b.MaxWidth = parsePoints(attrs["width"])
	b.GapAfter = parsePoints(attrs["gap"])
	return b, nil
}

func parseFontVariant(v string) (FontVariant, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "regular", "normal":
		return Regular, nil
	case "bold":
		return Bold, nil
	default:
		return Regular, fmt.Errorf("不支持的字重 %q（仅支持 regular 与 bold）", v)
	}
}

func parseAlign(v string) (Align, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "left", "start":
		return AlignLeft, nil
	case "center":
		return AlignCenter, nil
	case "justify":
		return AlignJustify, nil
	default:
		return AlignLeft, fmt.Errorf("不支持的对齐方式 %q", v)
	}
}

func collectStyles(doc *dsl.Document) (map[string]styleDef, error) {
	raw := map[string]styleDef{}
	for _, section := range doc.Sections {
		if section.Resources == nil || section.Resources.Block == nil {
			continue
		}
		for _, stmt := range section.Resources.Block.Statements {
			if stmt.Command == nil || stmt.Command.Name != "style" {
				continue
			}
			style := parseStyleResource(stmt.Command)
			if style.Name != "" {
				raw[style.Name] = style
			}
		}
	}
	return resolveStyles(raw)
}

func parseStyleResource(cmd *dsl.Command) styleDef {
	if len(cmd.Args) == 0 {
		return styleDef{}
	}
	style := styleDef{
		Name:  cmd.Args[0].Value,
		Props: map[string]string{},
	}
	if len(cmd.Args) >= 3 && strings.EqualFold(cmd.Args[1].Value, "extends") {
		style.Extends = cmd.Args[2].Value
	}
	if cmd.Block == nil {
		return style
	}
	for _, stmt := range cmd.Block.Statements {
		if stmt.Assignment == nil {
			continue
		}
		val := valueToString(stmt.Assignment.Value)
		if val == "" {
			continue
		}
		style.Props[stmt.Assignment.Key] = val
	}
	return style
}

func resolveStyles(styles map[string]styleDef) (map[string]styleDef, error) {
	resolved := map[string]styleDef{}
	visiting := map[string]bool{}

	var dfs func(name string) (styleDef, error)
	dfs = func(name string) (styleDef, error) {
		if style, ok := resolved[name]; ok {
			return style, nil
		}
		style, ok := styles[name]
		if !ok {
			return styleDef{}, fmt.Errorf("style %s 未定义", name)
		}
		if visiting[name] {
			return styleDef{}, fmt.Errorf("style 继承存在循环：%s", name)
		}
		visiting[name] = true

		props := map[string]string{}
		if style.Extends != "" {
			parent, err := dfs(style.Extends)
			if err != nil {
				return styleDef{}, err
			}
			for k, v := range parent.Props {
				props[k] = v
			}
		}
		for k, v := range style.Props {
			props[k] = v
		}
		style.Props = props
		resolved[name] = style
		delete(visiting, name)
		return style, nil
	}

	for name := range styles {
		if _, err := dfs(name); err != nil {
			return nil, err
		}
	}
	return resolved, nil
}

// collectMeta 读取 meta 段落，字符串值同样支持 ${path} 插值。
func collectMeta(doc *dsl.Document, data any) DocumentMeta {
	meta := DocumentMeta{
		Creator: "healthreport",
	}
	for _, section := range doc.Sections {
		if section.Meta == nil || section.Meta.Block == nil {
			continue
		}
		for _, stmt := range section.Meta.Block.Statements {
			if stmt.Assignment == nil {
				continue
			}
			value := binding.Interpolate(valueToString(stmt.Assignment.Value), data)
			switch strings.ToLower(stmt.Assignment.Key) {
			case "title":
				meta.Title = value
			case "author":
				meta.Author = value
			case "subject":
				meta.Subject = value
			case "creator":
				meta.Creator = value
			case "keywords":
				meta.Keywords = valueToStringSlice(stmt.Assignment.Value)
			}
		}
	}
	return meta
}

func resolvePageSize(spec dsl.PageSpec) (float64, float64, error) {
	base, ok := pagePresets[strings.ToUpper(spec.Size)]
	if !ok {
		return 0, 0, fmt.Errorf("暂不支持的纸张尺寸：%s", spec.Size)
	}
	width, height := base[0], base[1]
	for _, token := range spec.Params {
		if strings.EqualFold(token.Value, "landscape") {
			width, height = height, width
		}
	}
	return width, height, nil
}

// resolveMargin 解析 page 头部的 margin，最多 4 个值，语义同 CSS：
// 1 个值四边相同；2 个值为上下/左右；3 个值为上/左右/下；4 个值为上/右/下/左。
func resolveMargin(params []*dsl.Lexeme) Margin {
	margin := Margin{Top: defaultMargin, Right: defaultMargin, Bottom: defaultMargin, Left: defaultMargin}
	for i := 0; i < len(params); i++ {
		if !strings.EqualFold(params[i].Value, "margin") {
			continue
		}
		vals := []float64{}
		for j := i + 1; j < len(params) && len(vals) < 4; j++ {
			l, ok := ParseLength(params[j].Value)
			if !ok {
				break
			}
			vals = append(vals, l.ToPT())
		}
		switch len(vals) {
		case 1:
			v := vals[0]
			margin = Margin{Top: v, Right: v, Bottom: v, Left: v}
		case 2:
			margin = Margin{Top: vals[0], Right: vals[1], Bottom: vals[0], Left: vals[1]}
		case 3:
			margin = Margin{Top: vals[0], Right: vals[1], Bottom: vals[2], Left: vals[1]}
		case 4:
			margin = Margin{Top: vals[0], Right: vals[1], Bottom: vals[2], Left: vals[3]}
		}
	}
	return margin
}

func firstPage(doc *dsl.Document) *dsl.PageSection {
	for _, section := range doc.Sections {
		if section.Page != nil {
			return section.Page
		}
	}
	return nil
}

// parseArgs 把命令参数解析为（样式名, key value 属性）。allowStyle 时首个标识符视为样式名。
func parseArgs(args []*dsl.Lexeme, allowStyle bool) (string, map[string]string) {
	result := map[string]string{}
	if len(args) == 0 {
		return "", result
	}

	cursor := 0
	var style string
	if allowStyle && args[0].Type == "Ident" {
		style = args[0].Value
		cursor = 1
	}

	for cursor < len(args)-1 {
		result[args[cursor].Value] = args[cursor+1].Value
		cursor += 2
	}
	return style, result
}

func mergeStyleAttributes(style string, inline map[string]string, styles map[string]styleDef) map[string]string {
	out := make(map[string]string)
	if style != "" {
		if s, ok := styles[style]; ok {
			for k, v := range s.Props {
				out[k] = v
			}
		}
	}
	for k, v := range inline {
		out[k] = v
	}
	return out
}

func extractText(block *dsl.Block) string {
	if block == nil {
		return ""
	}
	var builder strings.Builder
	for _, stmt := range block.Statements {
		if stmt.Text != nil {
			builder.WriteString(string(stmt.Text.Value))
		}
	}
	return builder.String()
}

func valueToString(val *dsl.Value) string {
	if val == nil {
		return ""
	}
	switch {
	case val.String != nil:
		return string(*val.String)
	case val.Number != nil:
		return *val.Number
	case val.Ident != nil:
		return *val.Ident
	default:
		return ""
	}
}

func valueToStringSlice(val *dsl.Value) []string {
	if val == nil {
		return nil
	}
	if val.Array != nil {
		out := make([]string, 0, len(val.Array.Values))
		for _, item := range val.Array.Values {
			if s := valueToString(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	if s := valueToString(val); s != "" {
		return []string{s}
	}
	return nil
}
