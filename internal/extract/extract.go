// Package extract turns uploaded bytes into plain document text.
package extract

import (
	"bytes"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/cloo-solutions/gistify/internal/domain"
)

const (
	ContentTypePDF      = "application/pdf"
	ContentTypeMarkdown = "text/markdown"
	ContentTypeText     = "text/plain"
)

var (
	urlRe         = regexp.MustCompile(`(?i)(https?://|www\.)\S+`)
	inlineSpaceRe = regexp.MustCompile(`[ \t\f\v\r]+`)
)

// Result is the extracted text of an upload and its normalized content type.
type Result struct {
	Text        string
	ContentType string
}

// Extract detects the format of data and returns its cleaned text. filename is
// only consulted to tell markdown from plain text.
func Extract(filename string, data []byte) (*Result, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, domain.ErrEmptyDocument
	}

	var (
		raw         string
		contentType string
		err         error
	)
	switch detected := mimetype.Detect(data); {
	case detected.Is(ContentTypePDF):
		contentType = ContentTypePDF
		raw, err = pdfText(data)
	case isText(detected) && isMarkdownName(filename):
		contentType = ContentTypeMarkdown
		raw = markdownText(data)
	case isText(detected):
		contentType = ContentTypeText
		raw = string(data)
	default:
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeUnsupportedFormat,
			fmt.Sprintf("unsupported file type %s", detected.String()), domain.ErrUnsupportedFormat)
	}
	if err != nil {
		return nil, err
	}

	cleaned := CleanText(raw)
	if cleaned == "" {
		return nil, domain.ErrEmptyDocument
	}
	return &Result{Text: cleaned, ContentType: contentType}, nil
}

// CleanText strips URLs, collapses whitespace inside each line and drops blank lines.
// Line breaks are kept because they delimit paragraphs for chunking.
func CleanText(s string) string {
	s = urlRe.ReplaceAllString(s, "")
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		line = strings.TrimSpace(inlineSpaceRe.ReplaceAllString(line, " "))
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

func isText(mt *mimetype.MIME) bool {
	for m := mt; m != nil; m = m.Parent() {
		if m.Is(ContentTypeText) {
			return true
		}
	}
	return false
}

func isMarkdownName(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".md", ".markdown":
		return true
	}
	return false
}

func pdfText(data []byte) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: malformed pdf: %v", domain.ErrUnsupportedFormat, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUnsupportedFormat, err)
	}

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("read pdf page %d: %w", i, err)
		}
		b.WriteString(content)
		b.WriteString("\n")
	}
	return b.String(), nil
}

// markdownText renders the markdown AST as plain text, one line per block.
func markdownText(src []byte) string {
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var b strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.Text:
			if entering {
				b.Write(node.Segment.Value(src))
				if node.SoftLineBreak() {
					b.WriteByte(' ')
				}
				if node.HardLineBreak() {
					b.WriteByte('\n')
				}
			}
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			if entering {
				lines := n.Lines()
				for i := 0; i < lines.Len(); i++ {
					seg := lines.At(i)
					b.Write(seg.Value(src))
				}
				b.WriteByte('\n')
			}
			return ast.WalkSkipChildren, nil
		case *ast.Paragraph, *ast.Heading, *ast.TextBlock:
			if !entering {
				b.WriteByte('\n')
			}
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}
