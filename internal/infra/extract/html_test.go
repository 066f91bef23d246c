package extract

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/ml-services/internal/domain/article"
)

func TestExtractPicksMainContainer(t *testing.T) {
	page := `<html><head><title>t</title><script>var x = "ignored paragraph text that is quite long";</script></head>
<body>
  <nav><p>Home | About | A very long navigation paragraph that should never be extracted</p></nav>
  <div class="sidebar"><p>Short teaser.</p></div>
  <article>
    <h2>Heading</h2>
    <p>The first paragraph of the story is long enough to count as content.</p>
    <p>The second paragraph carries <b>inline markup</b> and   odd   spacing as well.</p>
  </article>
  <footer><p>Copyright notice that is long enough to look like a paragraph.</p></footer>
</body></html>`

	text, err := NewHTML().Extract(context.Background(), article.Page{Body: []byte(page)})
	require.NoError(t, err)
	require.Equal(t, strings.Join([]string{
		"Heading",
		"The first paragraph of the story is long enough to count as content.",
		"The second paragraph carries inline markup and odd spacing as well.",
	}, "\n"), text)
}

func TestExtractWithoutMainText(t *testing.T) {
	tests := []struct {
		name string
		page string
	}{
		{name: "empty", page: ""},
		{name: "only short blurbs", page: `<div><p>Hi</p><p>Login</p></div>`},
		{name: "not html", page: "\x89PNG\r\n\x1a\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, err := NewHTML().Extract(context.Background(), article.Page{Body: []byte(tt.page)})
			require.NoError(t, err)
			require.Empty(t, text)
		})
	}
}
