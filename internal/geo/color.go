package geo

import "strings"

// 文本颜色候选：深色与浅色两档，由背景亮度二选一
const (
	darkTextColor  = "#000"
	lightTextColor = "#fff"
)

// GetLegibleTextColor：按背景色感知亮度选择可读的前景色
// 约束：通道权重绿高于红、红高于蓝（0.299/0.587/0.114），阈值取中点 128；
// 非法颜色值按浅色背景处理，返回深色文字
func GetLegibleTextColor(backgroundHex string) string {
	r, g, b, ok := parseHexColor(backgroundHex)
	if !ok {
		return darkTextColor
	}
	luminance := 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
	if luminance >= 128 {
		return darkTextColor
	}
	return lightTextColor
}

// parseHexColor：解析 #rgb 或 #rrggbb
func parseHexColor(s string) (r, g, b int, ok bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	switch len(s) {
	case 3:
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	case 6:
	default:
		return 0, 0, 0, false
	}
	var v [3]int
	for i := 0; i < 3; i++ {
		hi, ok1 := hexVal(s[i*2])
		lo, ok2 := hexVal(s[i*2+1])
		if !ok1 || !ok2 {
			return 0, 0, 0, false
		}
		v[i] = hi<<4 | lo
	}
	return v[0], v[1], v[2], true
}

func hexVal(c byte) (int, bool) {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0'), true
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10, true
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10, true
	}
	return 0, false
}
