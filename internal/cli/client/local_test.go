package client

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/gistify/internal/domain"
	"github.com/cloo-solutions/gistify/internal/service"
	"github.com/cloo-solutions/gistify/internal/vectorstore"
)

// letterEmbedder buckets letters so texts sharing words land close together.
type letterEmbedder struct{}

func (letterEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, 9)
		v[8] = 1
		for _, r := range strings.ToLower(t) {
			if r >= 'a' && r <= 'z' {
				v[(r-'a')%8]++
			}
		}
		out[i] = v
	}
	return out, nil
}

type cannedGenerator struct {
	calls int
}

func (g *cannedGenerator) Generate(_ context.Context, _ string, _ domain.DecodingParams) (string, error) {
	g.calls++
	return "Solar panels lower household energy bills over time. They need sunny weather to deliver their rated output.", nil
}

func newTestLocal(t *testing.T) (*localBackend, *cannedGenerator) {
	t.Helper()
	store, err := vectorstore.Open("")
	require.NoError(t, err)
	gen := &cannedGenerator{}
	return newLocalBackend(store, letterEmbedder{}, gen, service.DefaultPipelineConfig()), gen
}

func writeDoc(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const solarText = `Solar panels convert sunlight into electricity for homes.

Batteries store the surplus energy for use overnight.

Inverters convert direct current so appliances can use it.`

func TestLocalBackend_IndexListDelete(t *testing.T) {
	b, _ := newTestLocal(t)
	ctx := context.Background()

	res, err := b.Index(ctx, writeDoc(t, "solar.txt", solarText))
	require.NoError(t, err)
	assert.NotEmpty(t, res.Document.ID)
	assert.Equal(t, "solar.txt", res.Document.SourceName)
	assert.Equal(t, 1, res.Document.ChunkCount)
	assert.True(t, strings.HasPrefix(res.Preview, "Solar panels"))

	docs, err := b.Documents(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, res.Document.ID, docs[0].ID)

	require.NoError(t, b.Delete(ctx, res.Document.ID))
	docs, err = b.Documents(ctx)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestLocalBackend_IndexEmptyFile(t *testing.T) {
	b, _ := newTestLocal(t)
	_, err := b.Index(context.Background(), writeDoc(t, "empty.txt", "   \n"))
	assert.ErrorIs(t, err, domain.ErrEmptyDocument)
}

func TestLocalBackend_DeleteUnknown(t *testing.T) {
	b, _ := newTestLocal(t)
	err := b.Delete(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
}

func TestLocalBackend_AskAndSummarize(t *testing.T) {
	b, gen := newTestLocal(t)
	ctx := context.Background()

	res, err := b.Index(ctx, writeDoc(t, "solar.txt", solarText))
	require.NoError(t, err)

	ans, err := b.Ask(ctx, res.Document.ID, "How do solar panels help homes?")
	require.NoError(t, err)
	assert.NotEmpty(t, ans.Text)
	assert.Equal(t, "solar.txt", ans.Source)
	assert.LessOrEqual(t, gen.calls, 3)

	rec, err := b.Summarize(ctx, res.Document.ID, domain.SummaryConcise)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(strings.Fields(rec.SummaryText)), 250)
	assert.Len(t, rec.Advantages, domain.PointsPerList)
	assert.Len(t, rec.Disadvantages, domain.PointsPerList)
}

func TestLocalBackend_AskUnknownDocument(t *testing.T) {
	b, _ := newTestLocal(t)
	_, err := b.Ask(context.Background(), "missing", "anything?")
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
}
