package main

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/authgate/app"
	"github.com/upb/authgate/config"
	"github.com/upb/authgate/gate"
	"github.com/upb/authgate/listener"
	"github.com/upb/authgate/routes"
	"github.com/upb/authgate/userstore"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Environment: "test",
		Server: config.ServerConfig{
			Host:              "127.0.0.1",
			Port:              0,
			ReadHeaderTimeout: 5 * time.Second,
			ShutdownTimeout:   5 * time.Second,
		},
		Security: config.SecurityConfig{
			AllowedRoles:     []string{"admin", "guest"},
			AdminRoles:       []string{"admin"},
			JWTSecret:        testSecret,
			BasicAuthEnabled: true,
		},
		Observability: config.ObservabilityConfig{LogLevel: "debug", LogFormat: "console"},
	}
}

func TestParseFlags(t *testing.T) {
	opts, err := parseFlags([]string{"--env-file", "prod.env", "--addr", "127.0.0.1:9999"})
	require.NoError(t, err)
	assert.Equal(t, "prod.env", opts.envFile)
	assert.Equal(t, "127.0.0.1:9999", opts.addr)

	opts, err = parseFlags(nil)
	require.NoError(t, err)
	assert.Equal(t, ".env", opts.envFile)
	assert.Empty(t, opts.addr)

	_, err = parseFlags([]string{"--unknown"})
	assert.Error(t, err)
}

func TestInitLogger(t *testing.T) {
	logger, err := initLogger(config.ObservabilityConfig{LogLevel: "info", LogFormat: "json"})
	require.NoError(t, err)
	require.NotNil(t, logger)

	_, err = initLogger(config.ObservabilityConfig{LogLevel: "invalid"})
	assert.Error(t, err)
}

func TestNewBuilder(t *testing.T) {
	cfg := testConfig(t).Server

	builder, err := newBuilder(cfg, "", zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:0", builder.Addr)
	assert.Nil(t, builder.TLSConfig)

	builder, err = newBuilder(cfg, "127.0.0.1:1234", zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:1234", builder.Addr)

	cfg.TLS.Enabled = true
	cfg.TLS.CertFile = "missing-cert.pem"
	cfg.TLS.KeyFile = "missing-key.pem"
	_, err = newBuilder(cfg, "", zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestApplication(t *testing.T) {
	cfg := testConfig(t)
	logger := zaptest.NewLogger(t)

	deps, err := app.NewDependencies(context.Background(), cfg, logger)
	require.NoError(t, err)
	defer deps.Close()

	hash, err := bcrypt.GenerateFromPassword([]byte("wonderland"), bcrypt.MinCost)
	require.NoError(t, err)
	deps.Users.(*userstore.MemoryStore).Put(userstore.User{
		Username:     "alice",
		PasswordHash: string(hash),
		Authorities:  []string{"guest"},
	})

	builder, err := newBuilder(cfg.Server, "", logger)
	require.NoError(t, err)
	server, err := deps.Listeners.RegisterHandler(builder, routes.SetupRoutes(deps))
	require.NoError(t, err)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdown(ctx, deps.Listeners)
	}()
	baseURL := "http://" + server.Addr()

	get := func(t *testing.T, path string, setAuth func(*http.Request)) (*http.Response, map[string]interface{}) {
		t.Helper()
		req, err := http.NewRequest(http.MethodGet, baseURL+path, nil)
		require.NoError(t, err)
		if setAuth != nil {
			setAuth(req)
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		var body map[string]interface{}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return resp, body
	}

	bearer := func(sub string, roles ...string) func(*http.Request) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub":   sub,
			"roles": roles,
			"exp":   time.Now().Add(time.Hour).Unix(),
		}).SignedString([]byte(testSecret))
		require.NoError(t, err)
		return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
	}

	t.Run("health is public", func(t *testing.T) {
		resp, body := get(t, "/healthz", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "ok", body["status"])
	})

	t.Run("basic auth guest reaches whoami", func(t *testing.T) {
		resp, body := get(t, "/api/whoami", func(r *http.Request) { r.SetBasicAuth("alice", "wonderland") })
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "alice", body["data"].(map[string]interface{})["principal"])
	})

	t.Run("bearer guest reaches whoami", func(t *testing.T) {
		resp, body := get(t, "/api/whoami", bearer("bob", "guest"))
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "bob", body["data"].(map[string]interface{})["principal"])
	})

	t.Run("anonymous request is forbidden", func(t *testing.T) {
		resp, _ := get(t, "/api/whoami", nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("spoofed principal header is forbidden", func(t *testing.T) {
		resp, _ := get(t, "/api/whoami", func(r *http.Request) { r.Header.Set(gate.PrincipalHeader, "root") })
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("guest is forbidden on admin routes", func(t *testing.T) {
		resp, _ := get(t, "/api/admin/listeners", bearer("bob", "guest"))
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("admin sees the registered listener", func(t *testing.T) {
		resp, body := get(t, "/api/admin/listeners", bearer("root", "admin"))
		require.Equal(t, http.StatusOK, resp.StatusCode)

		listeners := body["data"].([]interface{})
		require.Len(t, listeners, 1)
		assert.Equal(t, server.ID().String(), listeners[0].(map[string]interface{})["server_id"])
	})

	t.Run("admin sees decision counts", func(t *testing.T) {
		resp, body := get(t, "/api/admin/decisions", bearer("root", "admin"))
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.NotEmpty(t, body["data"])
	})

	t.Run("unknown route", func(t *testing.T) {
		resp, _ := get(t, "/nope", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestShutdown(t *testing.T) {
	logger := zaptest.NewLogger(t)
	registry := listener.NewRegistry(logger)
	builder := &listener.HTTPBuilder{Addr: "127.0.0.1:0", Logger: logger}

	var addrs []string
	for i := 0; i < 2; i++ {
		server, err := registry.RegisterHandler(builder, http.NotFoundHandler())
		require.NoError(t, err)
		addrs = append(addrs, server.Addr())
	}
	require.Equal(t, 2, registry.Len())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, shutdown(ctx, registry))

	assert.Equal(t, 0, registry.Len())
	assert.Empty(t, registry.Servers())
	for _, addr := range addrs {
		_, err := http.Get("http://" + addr + "/")
		assert.Error(t, err)
	}
}
