package server

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aimhigh31/work-ten-sub018/internal/config"
	"github.com/aimhigh31/work-ten-sub018/internal/counter"
)

func testConfig(t *testing.T, backend string) *config.Config {
	t.Helper()
	cfg := config.Defaults()
	cfg.Store.Backend = backend
	cfg.Database.Path = filepath.Join(t.TempDir(), "codeseq.db")
	cfg.Database.Migrations.AutoMigrate = true
	cfg.Server.ShutdownTimeout = 2 * time.Second
	return cfg
}

func TestOpenBackend(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		b, err := OpenBackend(ctx, testConfig(t, config.BackendMemory))
		require.NoError(t, err)
		assert.IsType(t, &counter.MemoryStore{}, b)
	})

	t.Run("sqlite with auto migrate", func(t *testing.T) {
		b, err := OpenBackend(ctx, testConfig(t, config.BackendSQLite))
		require.NoError(t, err)
		defer b.Close()

		n, err := b.IncrementAndGet(ctx, counter.Key{ModuleType: "COST", Year: 2025})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("unreachable redis", func(t *testing.T) {
		cfg := testConfig(t, config.BackendRedis)
		cfg.Redis.Host = "127.0.0.1"
		cfg.Redis.Port = 1
		cfg.Redis.MaxRetries = -1
		cfg.Redis.DialTimeout = 200 * time.Millisecond

		_, err := OpenBackend(ctx, cfg)
		require.ErrorIs(t, err, counter.ErrStoreUnavailable)
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := OpenBackend(ctx, testConfig(t, "etcd"))
		assert.Error(t, err)
	})
}

func TestServer_Handler(t *testing.T) {
	cfg := testConfig(t, config.BackendMemory)
	s, err := New(cfg, counter.NewMemoryStore())
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/codes", strings.NewReader(`{"module_type":"TASK","year":2025}`))
	req.Header.Set("Content-Type", "application/json")
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"TASK-25-001"`)

	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestServer_ServeAndShutdown(t *testing.T) {
	cfg := testConfig(t, config.BackendMemory)
	s, err := New(cfg, counter.NewMemoryStore())
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	url := fmt.Sprintf("http://%s/health", ln.Addr())
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServer_ReloadAppliesAllocatorSettings(t *testing.T) {
	cfg := testConfig(t, config.BackendMemory)
	s, err := New(cfg, counter.NewMemoryStore())
	require.NoError(t, err)

	ahead := time.Now().UTC().Year() + 3
	body := fmt.Sprintf(`{"module_type":"PLAN","year":%d}`, ahead)
	post := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/codes", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		s.Handler().ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusBadRequest, post().Code)

	reloaded := *cfg
	reloaded.Allocator.MaxFutureYears = 3
	s.reload(&reloaded)

	w := post()
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), fmt.Sprintf(`"PLAN-%02d-001"`, ahead%100))
}
