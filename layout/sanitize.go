package layout

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// 多字符替换需要在逐字符映射之前完成。
var sequenceReplacer = strings.NewReplacer(
	"\r\n", "\n",
	"\r", "\n",
	"\u2026", "...",
)

// typographicMap 把常见排版变体映射为字体可绘制的字符，先于字符集过滤执行。
var typographicMap = map[rune]rune{
	'\u2018': '\'', '\u2019': '\'', '\u201A': '\'', '\u201B': '\'', '\u2032': '\'',
	'\u201C': '"', '\u201D': '"', '\u201E': '"', '\u201F': '"', '\u2033': '"',
	'\u2010': '-', '\u2011': '-', '\u2012': '-', '\u2013': '-', '\u2014': '-', '\u2212': '-',
	'\u00B5': 'u', '\u03BC': 'u',
	'\u2022': '*',
	'\u0085': '\n', '\u2028': '\n', '\u2029': '\n',
	'\u180E': ' ',
}

// mapTypographic 先查映射表，其余空白字符（换行除外）一律变为空格，避免相邻单词被粘连。
func mapTypographic(r rune) rune {
	if m, ok := typographicMap[r]; ok {
		return m
	}
	if r != '\n' && unicode.IsSpace(r) {
		return ' '
	}
	return r
}

// drawable 是目标字体保证覆盖的字符集：换行、可打印 ASCII 与可打印 Latin-1（不含软连字符）。
func drawable(r rune) bool {
	switch {
	case r == '\n':
		return true
	case r >= 0x20 && r <= 0x7E:
		return true
	case r >= 0xA1 && r <= 0xFF:
		return r != 0xAD
	default:
		return false
	}
}

// Sanitize 将任意输入规整为可绘制的受限字符集。它是纯函数、永不失败且幂等：
// 控制字符与字体无法表示的码点被直接丢弃，排版变体与各类空白先被映射为等价的可绘制字符。
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	s = sequenceReplacer.Replace(s)
	t := transform.Chain(
		runes.Map(mapTypographic),
		norm.NFC,
		runes.Remove(runes.Predicate(func(r rune) bool { return !drawable(r) })),
	)
	// 链中的转换都不会报错。
	out, _, _ := transform.String(t, s)
	return out
}
