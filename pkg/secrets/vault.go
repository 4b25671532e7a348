// Package secrets pulls the directory's credentials from a Vault KV store
// into the process environment before configuration is parsed.
package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// Keys are the only environment variables Vault may set
var Keys = []string{
	"DB_PASSWORD",
	"REDIS_PASSWORD",
	"TYPESENSE_API_KEY",
	"AUTH_JWT_SECRET",
	"STORAGE_ACCESS_KEY",
	"STORAGE_SECRET_KEY",
	"CLOUDINARY_API_KEY",
	"CLOUDINARY_API_SECRET",
	"WHATSAPP_ACCESS_TOKEN",
}

// VaultSource locates one KV secret
type VaultSource struct {
	Enabled   bool
	Addr      string
	Token     string
	Namespace string
	Mount     string
	Path      string
	KVVersion int
	Timeout   time.Duration
	// Overwrite replaces values already present in the environment
	Overwrite bool
}

// Result summarises what a load changed
type Result struct {
	Loaded  []string
	Skipped []string
	Ignored []string
}

// VaultSourceFromEnv reads the VAULT_* variables
func VaultSourceFromEnv() VaultSource {
	src := VaultSource{
		Enabled:   strings.EqualFold(os.Getenv("VAULT_ENABLED"), "true"),
		Addr:      os.Getenv("VAULT_ADDR"),
		Token:     os.Getenv("VAULT_TOKEN"),
		Namespace: os.Getenv("VAULT_NAMESPACE"),
		Mount:     os.Getenv("VAULT_MOUNT"),
		Path:      os.Getenv("VAULT_PATH"),
		KVVersion: 2,
		Timeout:   5 * time.Second,
		Overwrite: strings.EqualFold(os.Getenv("VAULT_OVERWRITE"), "true"),
	}
	if src.Mount == "" {
		src.Mount = "secret"
	}
	if v, err := strconv.Atoi(os.Getenv("VAULT_KV_VERSION")); err == nil {
		src.KVVersion = v
	}
	if v, err := strconv.Atoi(os.Getenv("VAULT_TIMEOUT_MS")); err == nil && v > 0 {
		src.Timeout = time.Duration(v) * time.Millisecond
	}
	return src
}

func (s VaultSource) url() (string, error) {
	addr := strings.TrimRight(s.Addr, "/")
	mount := strings.Trim(s.Mount, "/")
	path := strings.TrimLeft(s.Path, "/")
	if addr == "" || mount == "" || path == "" {
		return "", errors.New("vault configuration incomplete (VAULT_ADDR, VAULT_MOUNT, VAULT_PATH)")
	}
	if s.KVVersion == 1 {
		return fmt.Sprintf("%s/v1/%s/%s", addr, mount, path), nil
	}
	return fmt.Sprintf("%s/v1/%s/data/%s", addr, mount, path), nil
}

// Load fetches the secret and exports the allowed keys. A disabled source
// is a no-op.
func Load(ctx context.Context, src VaultSource) (Result, error) {
	var result Result
	if !src.Enabled {
		return result, nil
	}
	if src.Token == "" {
		return result, errors.New("vault configuration incomplete (VAULT_TOKEN)")
	}

	data, err := fetch(ctx, src)
	if err != nil {
		return result, err
	}

	allowed := make(map[string]bool, len(Keys))
	for _, k := range Keys {
		allowed[k] = true
	}

	for key, value := range data {
		switch {
		case !allowed[key]:
			result.Ignored = append(result.Ignored, key)
		case !src.Overwrite && os.Getenv(key) != "":
			result.Skipped = append(result.Skipped, key)
		default:
			if err := os.Setenv(key, stringify(value)); err != nil {
				return result, err
			}
			result.Loaded = append(result.Loaded, key)
		}
	}
	return result, nil
}

type kvResponse struct {
	Data json.RawMessage `json:"data"`
}

func fetch(ctx context.Context, src VaultSource) (map[string]interface{}, error) {
	url, err := src.url()
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Vault-Token", src.Token)
	if src.Namespace != "" {
		req.Header.Set("X-Vault-Namespace", src.Namespace)
	}

	resp, err := (&http.Client{Timeout: src.Timeout}).Do(req)
	if err != nil {
		return nil, fmt.Errorf("vault request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("vault fetch failed: %s", resp.Status)
	}

	var outer kvResponse
	if err := json.Unmarshal(body, &outer); err != nil {
		return nil, fmt.Errorf("failed to decode vault response: %w", err)
	}
	if src.KVVersion != 1 {
		// KV v2 nests the secret one level deeper
		var inner kvResponse
		if err := json.Unmarshal(outer.Data, &inner); err != nil {
			return nil, fmt.Errorf("failed to decode vault response: %w", err)
		}
		outer = inner
	}

	var data map[string]interface{}
	if err := json.Unmarshal(outer.Data, &data); err != nil || data == nil {
		return nil, errors.New("vault response has no secret data")
	}
	return data, nil
}

func stringify(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case nil:
		return ""
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(encoded)
	}
}
