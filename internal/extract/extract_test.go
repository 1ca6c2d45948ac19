package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/gistify/internal/domain"
)

func TestCleanText(t *testing.T) {
	in := "  Solar   panels\tconvert light.  \n\n\nSee https://example.com/x for more and www.example.org too.\n   \n"

	assert.Equal(t, "Solar panels convert light.\nSee for more and too.", CleanText(in))
}

func TestExtract_PlainText(t *testing.T) {
	res, err := Extract("notes.txt", []byte("First paragraph.\n\nSecond   paragraph."))

	require.NoError(t, err)
	assert.Equal(t, ContentTypeText, res.ContentType)
	assert.Equal(t, "First paragraph.\nSecond paragraph.", res.Text)
}

func TestExtract_Markdown(t *testing.T) {
	src := "# Title\n\nA paragraph that\nwraps lines with [a link](https://example.com).\n\n- item one\n- item two\n\n```\ncode line\n```\n"

	res, err := Extract("README.md", []byte(src))

	require.NoError(t, err)
	assert.Equal(t, ContentTypeMarkdown, res.ContentType)
	assert.Equal(t, "Title\nA paragraph that wraps lines with a link.\nitem one\nitem two\ncode line", res.Text)
}

func TestExtract_Empty(t *testing.T) {
	_, err := Extract("empty.txt", []byte("  \n\t "))
	assert.ErrorIs(t, err, domain.ErrEmptyDocument)

	_, err = Extract("links.txt", []byte("https://example.com"))
	assert.ErrorIs(t, err, domain.ErrEmptyDocument)
}

func TestExtract_Unsupported(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

	_, err := Extract("image.png", png)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
	var de *domain.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, domain.ErrCodeUnsupportedFormat, de.Code)
}

func TestExtract_MalformedPDF(t *testing.T) {
	_, err := Extract("broken.pdf", []byte("%PDF-1.4\nnot really a pdf"))

	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
}
