package secrets

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vaultServer(t *testing.T, path, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Vault-Token") != "root" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		if r.URL.Path != path {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLoad_KV2ExportsAllowedKeys(t *testing.T) {
	srv := vaultServer(t, "/v1/secret/data/directory",
		`{"data":{"data":{"AUTH_JWT_SECRET":"s3cret","DB_PASSWORD":"pw","PATH":"/evil"},"metadata":{"version":3}}}`)

	t.Setenv("AUTH_JWT_SECRET", "")
	t.Setenv("DB_PASSWORD", "already-set")
	pathBefore := os.Getenv("PATH")

	result, err := Load(context.Background(), VaultSource{
		Enabled: true, Addr: srv.URL, Token: "root", Mount: "secret", Path: "directory", KVVersion: 2,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"AUTH_JWT_SECRET"}, result.Loaded)
	assert.Equal(t, []string{"DB_PASSWORD"}, result.Skipped)
	assert.Equal(t, []string{"PATH"}, result.Ignored)
	assert.Equal(t, "s3cret", os.Getenv("AUTH_JWT_SECRET"))
	assert.Equal(t, "already-set", os.Getenv("DB_PASSWORD"))
	assert.Equal(t, pathBefore, os.Getenv("PATH"))
}

func TestLoad_KV1Overwrite(t *testing.T) {
	srv := vaultServer(t, "/v1/kv/directory", `{"data":{"REDIS_PASSWORD":"fresh"}}`)
	t.Setenv("REDIS_PASSWORD", "stale")

	result, err := Load(context.Background(), VaultSource{
		Enabled: true, Addr: srv.URL + "/", Token: "root", Mount: "/kv/", Path: "/directory", KVVersion: 1, Overwrite: true,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"REDIS_PASSWORD"}, result.Loaded)
	assert.Equal(t, "fresh", os.Getenv("REDIS_PASSWORD"))
}

func TestLoad_Errors(t *testing.T) {
	srv := vaultServer(t, "/v1/secret/data/directory", `{"data":{}}`)

	tests := []struct {
		name string
		src  VaultSource
	}{
		{"missing token", VaultSource{Enabled: true, Addr: srv.URL, Mount: "secret", Path: "directory"}},
		{"missing path", VaultSource{Enabled: true, Addr: srv.URL, Token: "root", Mount: "secret"}},
		{"forbidden", VaultSource{Enabled: true, Addr: srv.URL, Token: "wrong", Mount: "secret", Path: "directory"}},
		{"no data", VaultSource{Enabled: true, Addr: srv.URL, Token: "root", Mount: "secret", Path: "directory", KVVersion: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(context.Background(), tt.src)
			assert.Error(t, err)
		})
	}
}

func TestLoad_DisabledIsNoop(t *testing.T) {
	result, err := Load(context.Background(), VaultSource{})
	require.NoError(t, err)
	assert.Empty(t, result.Loaded)
}

func TestVaultSourceFromEnv(t *testing.T) {
	t.Setenv("VAULT_ENABLED", "TRUE")
	t.Setenv("VAULT_MOUNT", "")
	t.Setenv("VAULT_KV_VERSION", "1")
	t.Setenv("VAULT_TIMEOUT_MS", "250")

	src := VaultSourceFromEnv()
	assert.True(t, src.Enabled)
	assert.Equal(t, "secret", src.Mount)
	assert.Equal(t, 1, src.KVVersion)
	assert.Equal(t, int64(250), src.Timeout.Milliseconds())
}
