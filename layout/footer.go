package layout

import "fmt"

// footerText 生成页脚文案，页码从 1 开始。
func footerText(page, total int) string {
	return fmt.Sprintf("Page %d of %d", page, total)
}

// stampFooters 在所有页面上追加 "Page i of N"。总页数只在这里读取一次，
// 因此必须在排版完全结束后调用；重复调用由 FlowResult.Finalize 阻止。
func stampFooters(reg *PageRegistry, opts Options) error {
	total := reg.Len()
	style := Style{Font: Regular, Size: opts.FooterSize}
	for i := 0; i < total; i++ {
		text := footerText(i+1, total)
		w, err := opts.Measurer.TextWidth(style.Font, style.Size, text)
		if err != nil {
			return fmt.Errorf("测量页脚宽度失败: %w", err)
		}
		page := reg.page(i)
		page.Lines = append(page.Lines, PositionedLine{
			X:     (page.Width - w) / 2,
			Y:     opts.FooterOffset,
			Text:  text,
			Font:  style.Font,
			Size:  style.Size,
			Width: w,
			Align: AlignCenter,
			Last:  true,
			Role:  RoleFooter,
		})
	}
	return nil
}
