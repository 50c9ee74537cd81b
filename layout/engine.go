package layout

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEngineUsed 表示同一个 Engine 被第二次调用 Flow。
	ErrEngineUsed = errors.New("layout: engine 已经完成过一次排版")
	// ErrFinalized 表示 FlowResult 已经盖过页脚，不能再次 Finalize。
	ErrFinalized = errors.New("layout: 排版结果已经 finalize")
)

type phase int

const (
	phaseInit phase = iota
	phaseAccumulating
	phaseFlowed
	phaseFootered
)

func (p phase) String() string {
	switch p {
	case phaseAccumulating:
		return "accumulating"
	case phaseFlowed:
		return "flowed"
	case phaseFootered:
		return "footered"
	default:
		return "init"
	}
}

// Engine 负责一次文档请求的完整排版：清洗、折行、分页，最后统一盖页脚。
// 一个 Engine 只能使用一次。
type Engine struct {
	opts  Options
	phase phase
}

// NewEngine 校验配置并返回新的排版引擎。
func NewEngine(opts Options) (*Engine, error) {
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &Engine{opts: opts}, nil
}

// FlowResult 是排版完成、尚未盖页脚的中间结果。
type FlowResult struct {
	opts  Options
	reg   *PageRegistry
	phase phase
}

// PageCount 返回当前总页数；Finalize 之后为 0。
func (r *FlowResult) PageCount() int {
	if r.reg == nil {
		return 0
	}
	return r.reg.Len()
}

// Flow 按顺序排版全部内容块。空输入仍会产生一页，保证页脚有处可盖。
func (e *Engine) Flow(blocks []ContentBlock) (*FlowResult, error) {
	if e.phase != phaseInit {
		return nil, fmt.Errorf("%w（当前阶段 %s）", ErrEngineUsed, e.phase)
	}
	e.phase = phaseAccumulating

	reg := newPageRegistry(e.opts.Width, e.opts.Height)
	fc := newFlowController(reg, e.opts)
	for i, block := range blocks {
		if err := e.flowBlock(fc, block); err != nil {
			return nil, fmt.Errorf("排版第 %d 个内容块失败: %w", i+1, err)
		}
	}
	reg.Current()

	e.phase = phaseFlowed
	return &FlowResult{opts: e.opts, reg: reg, phase: phaseFlowed}, nil
}

func (e *Engine) flowBlock(fc *flowController, block ContentBlock) error {
	text := Sanitize(block.Text)
	if strings.TrimSpace(text) == "" {
		// 空块只贡献间距；它的换页请求顺延到下一个有内容的块，末尾的请求被丢弃。
		fc.breakPending = fc.breakPending || block.PageBreak
		fc.gap(block.GapAfter)
		return nil
	}
	if block.PageBreak || fc.breakPending {
		fc.breakPending = false
		fc.pageBreak()
	}
	if block.Style.Size <= 0 {
		return fmt.Errorf("字号必须为正数，实际 %g", block.Style.Size)
	}
	width := block.MaxWidth
	if width <= 0 {
		width = e.opts.contentWidth() - block.Indent
	}
	lines, err := Wrap(e.opts.Measurer, text, block.Style.Font, block.Style.Size, width)
	if err != nil {
		return err
	}
	for i, line := range lines {
		ls := lineSpec{
			text:   line,
			style:  block.Style,
			indent: block.Indent,
			width:  width,
			align:  block.Align,
			last:   i == len(lines)-1 || lines[i+1] == "",
		}
		if block.Align == AlignCenter && line != "" {
			w, err := e.opts.Measurer.TextWidth(block.Style.Font, block.Style.Size, line)
			if err != nil {
				return fmt.Errorf("测量居中行宽度失败: %w", err)
			}
			if w < width {
				ls.offset = (width - w) / 2
			}
		}
		fc.place(ls)
	}
	fc.gap(block.GapAfter)
	return nil
}

// Finalize 在每一页盖上 "Page i of N" 并冻结结果。它会消耗内部的页面注册表，
// 第二次调用返回 ErrFinalized。
func (r *FlowResult) Finalize() (*Document, error) {
	if r.phase != phaseFlowed || r.reg == nil {
		return nil, ErrFinalized
	}
	reg := r.reg
	r.reg = nil
	r.phase = phaseFootered
	if err := stampFooters(reg, r.opts); err != nil {
		return nil, err
	}
	return &Document{
		Width:  r.opts.Width,
		Height: r.opts.Height,
		Margin: r.opts.Margin,
		Pages:  reg.Pages(),
		Meta:   r.opts.Meta,
	}, nil
}

// Render 等价于 Flow 之后立即 Finalize。
func (e *Engine) Render(blocks []ContentBlock) (*Document, error) {
	res, err := e.Flow(blocks)
	if err != nil {
		return nil, err
	}
	return res.Finalize()
}
