//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloo-solutions/gistify/internal/api/handlers"
	"github.com/cloo-solutions/gistify/internal/domain"
	"github.com/cloo-solutions/gistify/internal/logger"
	"github.com/cloo-solutions/gistify/internal/metrics"
	"github.com/cloo-solutions/gistify/internal/repository"
	"github.com/cloo-solutions/gistify/internal/server"
	"github.com/cloo-solutions/gistify/internal/service"
	"github.com/cloo-solutions/gistify/internal/storage"
	"github.com/cloo-solutions/gistify/internal/testutil"
)

const testAPIKey = "e2e-secret"

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T          *testing.T
	Ctx        context.Context
	Pool       *pgxpool.Pool
	S3Client   *storage.S3Client
	ServerURL  string
	HTTPClient *http.Client
	Generator  *scriptedGenerator
}

// SetupE2EEnv starts Postgres and RustFS, then serves the real router with fake models.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	t.Helper()
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	s3C := testutil.NewRustFSContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")
	t.Cleanup(func() {
		pool.Close()
		_ = s3C.Terminate(ctx)
		_ = pgC.Terminate(ctx)
	})

	s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        s3C.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     testutil.RustFSAccessKey,
		SecretAccessKey: testutil.RustFSSecretKey,
		Bucket:          "e2e-documents",
		UsePathStyle:    true,
	})
	if err != nil {
		t.Fatalf("failed to create S3 client: %v", err)
	}
	if err := s3Client.EnsureBucket(ctx); err != nil {
		t.Fatalf("failed to create bucket: %v", err)
	}

	gen := &scriptedGenerator{}
	m := metrics.New()
	documents := repository.NewDocumentRepository(pool)
	summaries := repository.NewSummaryRepository(pool)
	pipeline := service.NewPipeline(wordEmbedder{}, repository.NewChunkRepository(pool), gen, documents, summaries, service.DefaultPipelineConfig(), m)
	documentSvc := service.NewDocumentService(documents, summaries, s3Client, pipeline)

	srv := httptest.NewServer(server.NewRouter(server.RouterConfig{
		AuthValidator:   service.NewStaticKeyAuth(testAPIKey),
		Logger:          logger.New(logger.TestConfig()),
		Metrics:         m.Handler(),
		DocumentHandler: handlers.NewDocumentHandler(documentSvc),
		PipelineHandler: handlers.NewPipelineHandler(pipeline, documentSvc),
		Version:         "e2e",
	}))
	t.Cleanup(srv.Close)

	return &E2ETestEnv{
		T:          t,
		Ctx:        ctx,
		Pool:       pool,
		S3Client:   s3Client,
		ServerURL:  srv.URL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		Generator:  gen,
	}
}

// wordEmbedder hashes words into a small vector; shared words mean close vectors.
type wordEmbedder struct{}

func (wordEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, 16)
		v[15] = 0.5
		for _, w := range strings.Fields(strings.ToLower(t)) {
			h := 0
			for _, r := range w {
				h = h*31 + int(r)
			}
			if h < 0 {
				h = -h
			}
			v[h%15]++
		}
		out[i] = v
	}
	return out, nil
}

// scriptedGenerator answers from the prompt so gate checks see shared terms.
type scriptedGenerator struct {
	calls int
}

func (g *scriptedGenerator) Generate(_ context.Context, prompt string, params domain.DecodingParams) (string, error) {
	g.calls++
	if strings.Contains(strings.ToLower(prompt), "bullet") {
		return "- Solar panels reduce monthly household electricity bills noticeably\n- Rooftop installations need very little ongoing maintenance work", nil
	}
	return "Solar panels convert sunlight into electricity for homes. Batteries store surplus energy for overnight use. " +
		"Inverters convert direct current so household appliances can run on it.", nil
}

// APIResponse is the server's JSON envelope.
type APIResponse struct {
	StatusCode int
	Data       json.RawMessage `json:"data"`
	Error      string          `json:"error"`
	Code       string          `json:"code"`
}

func (e *E2ETestEnv) Get(path string) (*APIResponse, error) {
	return e.doRequest(http.MethodGet, path, nil, "")
}

func (e *E2ETestEnv) Post(path string, body any) (*APIResponse, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	return e.doRequest(http.MethodPost, path, bytes.NewReader(data), "application/json")
}

func (e *E2ETestEnv) Delete(path string) (*APIResponse, error) {
	return e.doRequest(http.MethodDelete, path, nil, "")
}

func (e *E2ETestEnv) Upload(filename string, content []byte) (*APIResponse, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(content); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	return e.doRequest(http.MethodPost, "/documents", &buf, mw.FormDataContentType())
}

func (e *E2ETestEnv) doRequest(method, path string, body io.Reader, contentType string) (*APIResponse, error) {
	req, err := http.NewRequestWithContext(e.Ctx, method, e.ServerURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	out := &APIResponse{StatusCode: resp.StatusCode}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return nil, fmt.Errorf("decode %s %s: %w: %s", method, path, err, raw)
	}
	return out, nil
}

func (e *E2ETestEnv) DownloadFile(url string) ([]byte, error) {
	resp, err := e.HTTPClient.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed with status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func decodeData[T any](t *testing.T, resp *APIResponse) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(resp.Data, &out); err != nil {
		t.Fatalf("failed to decode data: %v (%s)", err, resp.Data)
	}
	return out
}
