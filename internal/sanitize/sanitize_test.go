package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTMLKeepsAllowedTags(t *testing.T) {
	in := `<b>description1</b>-<div>addr</div>`
	assert.Equal(t, `<b>description1</b>-<div>addr</div>`, HTML(in))
}

func TestHTMLUnwrapsScript(t *testing.T) {
	// 脚本元素本身被剥离，但内部文本保留
	in := `<b>description1</b>-<div>addr</div><script>EvilScript</script>`
	assert.Equal(t, `<b>description1</b>-<div>addr</div>EvilScript`, HTML(in))
}

func TestHTMLFiltersAttributes(t *testing.T) {
	in := `<a href="http://example.com" onclick="evil()">x</a>`
	assert.Equal(t, `<a href="http://example.com">x</a>`, HTML(in))
}

func TestHTMLDropsScriptHref(t *testing.T) {
	in := `<a href="javascript:alert(1)">x</a>`
	assert.Equal(t, `<a>x</a>`, HTML(in))
}

func TestHTMLEscapesLooseText(t *testing.T) {
	assert.Equal(t, "description&lt;2&gt;two", HTML("description<2>two"))
}

func TestHTMLEmpty(t *testing.T) {
	assert.Equal(t, "", HTML(""))
}
