package layout

import (
	"fmt"
	"strings"
)

// Wrap 使用贪心算法把已清洗的文本折成不超过 maxWidth 的行。
//
// 文本按空白切分为词，行内以单个空格连接；加入下一个词前测量候选行宽度，
// 超宽且当前行非空时换行。单个词本身超宽时独占一行，不截断也不加连字符。
// 宽度恰好等于 maxWidth 时留在当前行。显式换行符视为硬换行，连续空行合并为一个空行，
// 首尾空行被丢弃。空输入返回空切片。结果只依赖入参，与游标状态无关。
func Wrap(m TextMeasurer, text string, font FontVariant, size, maxWidth float64) ([]string, error) {
	if m == nil {
		return nil, fmt.Errorf("layout: 缺少文本测量后端 TextMeasurer")
	}
	var lines []string
	blank := false
	for _, hard := range strings.Split(text, "\n") {
		words := strings.Fields(hard)
		if len(words) == 0 {
			blank = len(lines) > 0
			continue
		}
		if blank {
			lines = append(lines, "")
			blank = false
		}
		wrapped, err := wrapWords(m, words, font, size, maxWidth)
		if err != nil {
			return nil, err
		}
		lines = append(lines, wrapped...)
	}
	return lines, nil
}

func wrapWords(m TextMeasurer, words []string, font FontVariant, size, maxWidth float64) ([]string, error) {
	var lines []string
	current := ""
	for _, word := range words {
		candidate := word
		if current != "" {
			candidate = current + " " + word
		}
		w, err := m.TextWidth(font, size, candidate)
		if err != nil {
			return nil, fmt.Errorf("测量文本宽度失败（%s %gpt）: %w", font, size, err)
		}
		if w > maxWidth && current != "" {
			lines = append(lines, current)
			current = word
			continue
		}
		current = candidate
	}
	if current != "" {
		lines = append(lines, current)
	}
	return lines, nil
}
