//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"log/slog"
	"math"
	"mime/multipart"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode"

	"github.com/cloo-solutions/shiftlog/internal/api/handlers"
	"github.com/cloo-solutions/shiftlog/internal/chunking"
	"github.com/cloo-solutions/shiftlog/internal/extraction"
	"github.com/cloo-solutions/shiftlog/internal/repository"
	"github.com/cloo-solutions/shiftlog/internal/server"
	"github.com/cloo-solutions/shiftlog/internal/service"
	"github.com/cloo-solutions/shiftlog/internal/storage"
	"github.com/cloo-solutions/shiftlog/internal/tables"
	"github.com/cloo-solutions/shiftlog/internal/testutil"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	testCollection = "building_logs"
	testDimensions = 64

	// CannedAnswer is what the test generator answers every question with.
	CannedAnswer = "The boiler pressure was checked and the night shift logged no incidents."
)

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	PostgresC    *testutil.PostgresContainer
	RustFSC      *testutil.RustFSContainer
	Pool         *pgxpool.Pool
	Store        *storage.S3Store
	Index        *service.IndexManager
	ServerURL    string
	ServerCloser func()
	BinaryDir    string
	HTTPClient   *http.Client
}

// SetupE2EEnv creates a full E2E test environment with containers and server
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	s3C := testutil.NewRustFSContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	store, err := storage.NewS3Store(ctx, storage.S3Config{
		Endpoint:        s3C.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     "rustfsadmin",
		SecretAccessKey: "rustfsadmin",
		Bucket:          "shiftlog-e2e",
		UsePathStyle:    true,
	})
	if err != nil {
		t.Fatalf("failed to create S3 store: %v", err)
	}
	if err := store.EnsureBucket(ctx); err != nil {
		t.Fatalf("failed to create bucket: %v", err)
	}

	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	index := service.NewIndexManager(repository.NewPgVectorStore(pool), keywordEmbedder{}, testCollection, logger)
	if err := index.EnsureReady(ctx); err != nil {
		t.Fatalf("failed to provision index: %v", err)
	}

	serverURL, serverCloser := startServer(t, index, store, logger, port)

	return &E2ETestEnv{
		T:            t,
		Ctx:          ctx,
		PostgresC:    pgC,
		RustFSC:      s3C,
		Pool:         pool,
		Store:        store,
		Index:        index,
		ServerURL:    serverURL,
		ServerCloser: serverCloser,
		// Presigned redirects are inspected, not followed.
		HTTPClient: &http.Client{
			Timeout: 60 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.ServerCloser != nil {
		e.ServerCloser()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.RustFSC != nil {
		e.RustFSC.Terminate(e.Ctx)
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
	if e.BinaryDir != "" {
		os.RemoveAll(e.BinaryDir)
	}
}

// BuildBinaries builds the shiftlog client binary
func (e *E2ETestEnv) BuildBinaries() {
	tmpDir, err := os.MkdirTemp("", "shiftlog-e2e-*")
	if err != nil {
		e.T.Fatalf("failed to create temp dir: %v", err)
	}
	e.BinaryDir = tmpDir

	cmd := exec.Command("go", "build", "-o", filepath.Join(tmpDir, "shiftlog"), "./cmd/shiftlog")
	cmd.Dir = "../.."
	if out, err := cmd.CombinedOutput(); err != nil {
		e.T.Fatalf("failed to build shiftlog: %v\n%s", err, out)
	}
}

// RunShiftlog runs the shiftlog CLI against the test server
func (e *E2ETestEnv) RunShiftlog(workDir string, args ...string) (string, error) {
	cmd := exec.Command(filepath.Join(e.BinaryDir, "shiftlog"), args...)
	cmd.Dir = workDir
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("SHIFTLOG_API_URL=%s", e.ServerURL),
		fmt.Sprintf("XDG_CONFIG_HOME=%s", workDir),
	)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// APIResponse represents a standard API response
type APIResponse struct {
	StatusCode int
	Header     http.Header
	Data       json.RawMessage `json:"data"`
	Error      string          `json:"error,omitempty"`
}

// Get performs a GET request
func (e *E2ETestEnv) Get(path string) (*APIResponse, error) {
	req, err := http.NewRequest(http.MethodGet, e.ServerURL+path, nil)
	if err != nil {
		return nil, err
	}
	return e.do(req)
}

// Post performs a POST request with a JSON body
func (e *E2ETestEnv) Post(path string, body interface{}) (*APIResponse, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal body: %w", err)
	}
	req, err := http.NewRequest(http.MethodPost, e.ServerURL+path, bytes.NewReader(jsonData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return e.do(req)
}

// Upload posts files as a multipart form under field
func (e *E2ETestEnv) Upload(path, field string, files ...string) (*APIResponse, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range files {
		content, err := os.ReadFile(f)
		if err != nil {
			return nil, err
		}
		w, err := mw.CreateFormFile(field, filepath.Base(f))
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(content); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, e.ServerURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return e.do(req)
}

// do returns the decoded envelope for every status; callers assert on StatusCode.
func (e *E2ETestEnv) do(req *http.Request) (*APIResponse, error) {
	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	apiResp := &APIResponse{StatusCode: resp.StatusCode, Header: resp.Header}
	if len(bytes.TrimSpace(respBody)) == 0 {
		return apiResp, nil
	}
	if err := json.Unmarshal(respBody, apiResp); err != nil {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}
	return apiResp, nil
}

// DownloadFile fetches a presigned URL
func (e *E2ETestEnv) DownloadFile(downloadURL string) ([]byte, error) {
	resp, err := http.Get(downloadURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed with status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

// startServer starts the HTTP server with all handlers
func startServer(t *testing.T, index *service.IndexManager, store *storage.S3Store, logger *slog.Logger, port int) (string, func()) {
	ingestion := service.NewIngestionService(
		extraction.NewXLSXReader(),
		tables.NewPDFExtractor(logger),
		chunking.NewChunker(),
		index,
		store,
		logger,
	)
	answers := service.NewAnswerService(index, cannedGenerator{}, logger)

	router := server.NewRouter(server.RouterConfig{
		Logger:        logger,
		CORSOrigins:   []string{"*"},
		ChatHandler:   handlers.NewChatHandler(answers, index),
		UploadHandler: handlers.NewUploadHandler(ingestion, 100, t.TempDir(), logger),
		FileHandler:   handlers.NewFileHandler(store, logger),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	serverURL := fmt.Sprintf("http://localhost:%d", port)
	waitForServer(t, serverURL, 10*time.Second)

	return serverURL, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}

func waitForServer(t *testing.T, url string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url + "/api/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server did not start within %v", timeout)
}

func getFreePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// keywordEmbedder hashes lowercased words into a fixed number of buckets so
// texts sharing words end up close under cosine distance.
type keywordEmbedder struct{}

func (keywordEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	v := make([]float32, testDimensions)
	v[0] = 0.01
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		h.Write([]byte(w))
		v[h.Sum32()%testDimensions]++
	}
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	norm = math.Sqrt(norm)
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
	return v, nil
}

func (keywordEmbedder) Dimensions() int {
	return testDimensions
}

// cannedGenerator refuses to rewrite so retrieval uses the question as asked.
type cannedGenerator struct{}

func (cannedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if strings.HasSuffix(strings.TrimSpace(prompt), "Rewritten question:") {
		return "", errors.New("rewriting disabled")
	}
	return CannedAnswer, nil
}
