package render

import (
	"bytes"
	"strings"

	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/quick"

	"github.com/zibo-chen/logline/internal/buffer"
)

// SyntaxRenderer applies chroma highlighting to structured log lines.
// Useful for JSON-lines and similar machine formats where level coloring
// alone is not informative.
type SyntaxRenderer struct {
	lexerName   string
	syntaxTheme string
}

// NewSyntaxRenderer creates a renderer for the given filename. The lexer is
// chosen by extension; unknown extensions fall back to plaintext.
func NewSyntaxRenderer(filename string) *SyntaxRenderer {
	lexerName := "plaintext"
	if lexer := lexers.Match(filename); lexer != nil {
		lexerName = lexer.Config().Name
	}
	return &SyntaxRenderer{
		lexerName:   lexerName,
		syntaxTheme: "monokai",
	}
}

// Render applies syntax highlighting to an entry. Lines that look like JSON
// objects are highlighted as JSON regardless of the file's lexer, which
// handles mixed plain/structured logs.
func (r *SyntaxRenderer) Render(e *buffer.Entry) string {
	content := e.Content
	if content == "" {
		return ""
	}

	lexer := r.lexerName
	if strings.HasPrefix(content, "{") && strings.HasSuffix(content, "}") {
		lexer = "JSON"
	}

	var buf bytes.Buffer
	if err := quick.Highlight(&buf, content, lexer, "terminal16m", r.syntaxTheme); err != nil {
		return content
	}

	// quick.Highlight appends newlines of its own
	return strings.TrimRight(buf.String(), "\r\n")
}
