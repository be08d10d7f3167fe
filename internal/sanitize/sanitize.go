// 包 sanitize：描述 HTML 的白名单净化
// 背景：图层描述来自不可信的外部源，进入卡片前剥离可执行元素；
// 白名单外的标签被拆壳（保留子内容），白名单内的标签仅保留安全属性
package sanitize

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// 允许保留的标签
var allowedTags = map[string]bool{
	"a": true, "b": true, "i": true, "u": true, "em": true, "strong": true,
	"br": true, "p": true, "div": true, "span": true,
	"ul": true, "ol": true, "li": true,
}

// 标签上允许保留的属性
var allowedAttrs = map[string]bool{
	"href": true, "title": true, "target": true,
}

// 无闭合标签的空元素
var voidTags = map[string]bool{"br": true}

// HTML：净化一段描述 HTML；解析失败时返回空串而不是透传原文
func HTML(s string) string {
	if s == "" {
		return ""
	}
	ctx := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(s), ctx)
	if err != nil {
		return ""
	}
	var b strings.Builder
	for _, n := range nodes {
		render(&b, n)
	}
	return b.String()
}

func render(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(html.EscapeString(n.Data))
		return
	case html.ElementNode:
		if !allowedTags[n.Data] {
			// 拆壳：标签丢弃，子内容保留
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				render(b, c)
			}
			return
		}
		b.WriteByte('<')
		b.WriteString(n.Data)
		for _, a := range n.Attr {
			if !allowedAttrs[a.Key] || a.Namespace != "" {
				continue
			}
			if a.Key == "href" && unsafeHref(a.Val) {
				continue
			}
			b.WriteByte(' ')
			b.WriteString(a.Key)
			b.WriteString(`="`)
			b.WriteString(html.EscapeString(a.Val))
			b.WriteByte('"')
		}
		b.WriteByte('>')
		if voidTags[n.Data] {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			render(b, c)
		}
		b.WriteString("</")
		b.WriteString(n.Data)
		b.WriteByte('>')
	default:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			render(b, c)
		}
	}
}

// unsafeHref：拒绝脚本型伪协议
func unsafeHref(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return strings.HasPrefix(v, "javascript:") || strings.HasPrefix(v, "data:") ||
		strings.HasPrefix(v, "vbscript:")
}
