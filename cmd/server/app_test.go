package main

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/phrazzld/shelf-api/internal/config"
	"github.com/phrazzld/shelf-api/internal/platform/logger"
	"github.com/phrazzld/shelf-api/internal/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func newTestConfig(driver, url string) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: 8080, LogLevel: "error", ShutdownTimeoutSeconds: 5},
		Store:  config.StoreConfig{Driver: driver, URL: url},
		Query:  config.QueryConfig{MaxDepth: 10, MaxFields: 200, Parallelism: 4, TimeoutMillis: 5000},
		Seed:   config.SeedConfig{Enabled: true},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) *httptest.Server {
	t.Helper()

	app, err := newApplication(context.Background(), cfg, logger.Discard())
	require.NoError(t, err)
	t.Cleanup(app.cleanup)

	srv := httptest.NewServer(app.setupRouter())
	t.Cleanup(srv.Close)
	return srv
}

func postQuery(t *testing.T, url, body string) (int, string) {
	t.Helper()

	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(b)
}

func getBody(t *testing.T, url string) (int, string) {
	t.Helper()

	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(b)
}

func TestApplication_MemoryStoreRoutes(t *testing.T) {
	srv := newTestServer(t, newTestConfig(config.DriverMemory, ""))

	status, body := getBody(t, srv.URL+"/health")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "OK", body)

	status, body = postQuery(t, srv.URL+"/api/query", `{"query":"{ books { id } }"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, int64(8), gjson.Get(body, "data.books.#").Int())

	status, body = postQuery(t, srv.URL+"/graphql",
		`{"query":"mutation { addAuthor(name: \"Ursula K. Le Guin\") { id books { id } } }"}`)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"data":{"addAuthor":{"id":4,"books":[]}}}`, body)

	status, body = getBody(t, srv.URL+"/api/query?query="+url.QueryEscape(`{ author(id: 4) { name } }`))
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Ursula K. Le Guin", gjson.Get(body, "data.author.name").String())

	status, _ = getBody(t, srv.URL+"/graphql?query="+url.QueryEscape(`mutation { addAuthor(name: "X") { id } }`))
	assert.Equal(t, http.StatusMethodNotAllowed, status)

	status, body = getBody(t, srv.URL+"/metrics")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `shelf_catalogue_entities_created_total{kind="Author"} 1`)
	assert.Contains(t, body, `shelf_query_requests_total{operation="mutation",outcome="ok"} 1`)
	assert.Contains(t, body, `shelf_query_requests_total{operation="mutation",outcome="rejected"} 1`)
}

func TestApplication_TraceHeader(t *testing.T) {
	srv := newTestServer(t, newTestConfig(config.DriverMemory, ""))

	resp, err := http.Post(srv.URL+"/api/query", "application/json", strings.NewReader(`{`))
	require.NoError(t, err)
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	traceID := resp.Header.Get("X-Trace-ID")
	assert.Len(t, traceID, 32)
	assert.Equal(t, traceID, gjson.GetBytes(b, "trace_id").String())
}

func TestApplication_SQLiteStore(t *testing.T) {
	srv := newTestServer(t, newTestConfig(config.DriverSQLite, testdb.SQLiteURL(t.Name())))

	status, body := postQuery(t, srv.URL+"/api/query", `{"query":"{ author(id: 2) { name books { name } } }"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "J. R. R. Tolkien", gjson.Get(body, "data.author.name").String())
	assert.Equal(t, int64(3), gjson.Get(body, "data.author.books.#").Int())

	status, body = postQuery(t, srv.URL+"/api/query",
		`{"query":"mutation { addBook(name: \"The Hobbit\", authorId: 2) { id author { name } } }"}`)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"data":{"addBook":{"id":9,"author":{"name":"J. R. R. Tolkien"}}}}`, body)
}

func TestApplication_SeedDisabled(t *testing.T) {
	cfg := newTestConfig(config.DriverMemory, "")
	cfg.Seed.Enabled = false
	srv := newTestServer(t, cfg)

	_, body := postQuery(t, srv.URL+"/api/query", `{"query":"{ books { id } authors { id } }"}`)
	assert.JSONEq(t, `{"data":{"books":[],"authors":[]}}`, body)
}

func TestApplication_SeedFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
authors:
  - id: 10
    name: Octavia E. Butler
books:
  - id: 20
    name: Kindred
    authorId: 10
`), 0o600))

	cfg := newTestConfig(config.DriverMemory, "")
	cfg.Seed.Path = path
	srv := newTestServer(t, cfg)

	_, body := postQuery(t, srv.URL+"/api/query", `{"query":"{ book(id: 20) { name author { name } } }"}`)
	assert.JSONEq(t, `{"data":{"book":{"name":"Kindred","author":{"name":"Octavia E. Butler"}}}}`, body)
}

func TestNewApplication_Errors(t *testing.T) {
	t.Run("missing seed file", func(t *testing.T) {
		cfg := newTestConfig(config.DriverMemory, "")
		cfg.Seed.Path = filepath.Join(t.TempDir(), "missing.yaml")

		_, err := newApplication(context.Background(), cfg, logger.Discard())
		assert.Error(t, err)
	})

	t.Run("unknown driver", func(t *testing.T) {
		_, err := newApplication(context.Background(), newTestConfig("mysql", "x"), logger.Discard())
		assert.Error(t, err)
	})
}

func TestServe_GracefulShutdown(t *testing.T) {
	app, err := newApplication(context.Background(), newTestConfig(config.DriverMemory, ""), logger.Discard())
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.serve(ctx, ln, app.setupRouter()) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
