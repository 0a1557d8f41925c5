package models

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// CodeBlock is a fenced code block found in a markdown document.
type CodeBlock struct {
	Language string
	Code     string
}

// CodeBlocks returns the fenced code blocks of a markdown document in document order. The trailing
// newline of each block is dropped, so Code is exactly what a copy action should put on the clipboard.
func CodeBlocks(markdown string) []CodeBlock {
	source := []byte(markdown)
	doc := goldmark.DefaultParser().Parse(text.NewReader(source))

	var blocks []CodeBlock
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		fcb, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}

		var sb strings.Builder
		lines := fcb.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			sb.Write(seg.Value(source))
		}
		blocks = append(blocks, CodeBlock{
			Language: string(fcb.Language(source)),
			Code:     strings.TrimSuffix(sb.String(), "\n"),
		})
		return ast.WalkSkipChildren, nil
	})
	return blocks
}
