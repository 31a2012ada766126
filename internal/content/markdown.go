package content

import (
	"bytes"
	"fmt"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Renderer converts markdown bodies to HTML. Safe for concurrent use.
type Renderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy // nil unless raw HTML is allowed
}

// NewRenderer returns a GFM renderer with typographic punctuation. Raw HTML in the source is dropped unless
// allowRawHTML is set, in which case the output is passed through the
// bluemonday UGC policy instead.
func NewRenderer(allowRawHTML bool) *Renderer {
	opts := []goldmark.Option{
		goldmark.WithExtensions(extension.GFM, extension.Typographer),
	}

	r := &Renderer{}

	if allowRawHTML {
		opts = append(opts, goldmark.WithRendererOptions(html.WithUnsafe()))
		r.policy = bluemonday.UGCPolicy()
	}

	r.md = goldmark.New(opts...)

	return r
}

// Render returns the HTML for src.
func (r *Renderer) Render(src []byte) (string, error) {
	var buf bytes.Buffer

	err := r.md.Convert(src, &buf)
	if err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}

	if r.policy != nil {
		return string(r.policy.SanitizeBytes(buf.Bytes())), nil
	}

	return buf.String(), nil
}
