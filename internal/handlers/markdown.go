package handlers

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/MegaGrindStone/gemini-web-chat/internal/chat"
	chromahtml "github.com/alecthomas/chroma/formatters/html"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// markdown renders chat bubbles to HTML. Raw HTML in the source is omitted, fenced code blocks are
// highlighted and get a copy button, and links open in a new browsing context.
type markdown struct {
	style string
}

// render converts content, the message at position in the conversation, to HTML. Copy buttons carry the
// id "<position>-<block>", so every block on the page has its own copy state.
func (md markdown) render(content string, position int) (template.HTML, error) {
	block := 0
	wrapper := func(w util.BufWriter, c highlighting.CodeBlockContext, entering bool) {
		if !entering {
			if !c.Highlighted() {
				_, _ = w.WriteString("</code></pre>")
			}
			_, _ = w.WriteString("</div></div>\n")
			return
		}

		id := chat.BlockID{Message: position, Block: block}
		block++

		lang := "code"
		if l, ok := c.Language(); ok && len(l) > 0 {
			lang = string(l)
		}
		_, _ = fmt.Fprintf(w,
			`<div class="code-block" data-block="%s"><div class="code-header"><span class="code-lang">%s</span>`+
				`<button type="button" class="copy-btn" data-block="%s">%s</button></div><div class="code-body">`,
			id, template.HTMLEscapeString(lang), id, chat.CopyLabel)
		if !c.Highlighted() {
			_, _ = w.WriteString("<pre><code>")
		}
	}

	gm := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			highlighting.NewHighlighting(
				highlighting.WithStyle(md.style),
				highlighting.WithFormatOptions(chromahtml.TabWidth(4)),
				highlighting.WithWrapperRenderer(wrapper),
			),
		),
		goldmark.WithParserOptions(
			parser.WithASTTransformers(util.Prioritized(linkTargetTransformer{}, 500)),
		),
	)

	var buf bytes.Buffer
	if err := gm.Convert([]byte(content), &buf); err != nil {
		return "", fmt.Errorf("failed to convert markdown: %w", err)
	}

	// The output is produced by goldmark with raw HTML disabled.
	return template.HTML(buf.String()), nil
}

// linkTargetTransformer makes every link and autolink open in a new browsing context.
type linkTargetTransformer struct{}

func (linkTargetTransformer) Transform(doc *ast.Document, _ text.Reader, _ parser.Context) {
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.Kind() {
		case ast.KindLink, ast.KindAutoLink:
			n.SetAttributeString("target", []byte("_blank"))
			n.SetAttributeString("rel", []byte("noopener noreferrer"))
		}
		return ast.WalkContinue, nil
	})
}
