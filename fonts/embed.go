package fonts

import (
	"fmt"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/nirvana-analytics/healthreport/layout"
)

// Load 返回字重对应的内置 TrueType 字体数据（Go 字体，覆盖 Latin-1）。
func Load(variant layout.FontVariant) ([]byte, error) {
	switch variant {
	case layout.Regular:
		return goregular.TTF, nil
	case layout.Bold:
		return gobold.TTF, nil
	default:
		return nil, fmt.Errorf("没有字重 %s 对应的内置字体", variant)
	}
}

// Variants 列出所有内置字重，供渲染器预加载。
func Variants() []layout.FontVariant {
	return []layout.FontVariant{layout.Regular, layout.Bold}
}
