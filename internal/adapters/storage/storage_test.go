package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/synergyayush/lookindharamshala/pkg/config"
)

func TestS3Storage_UploadPutsObjectAndReturnsPublicURL(t *testing.T) {
	var gotPath, gotType, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			gotPath = r.URL.Path
			gotType = r.Header.Get("Content-Type")
			body, _ := io.ReadAll(r.Body)
			gotBody = string(body)
			w.Header().Set("ETag", `"abc"`)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	store, err := NewS3Storage(&config.StorageConfig{
		Bucket:    "businesses",
		Region:    "ap-south-1",
		Endpoint:  server.URL,
		AccessKey: "key",
		SecretKey: "secret",
	})
	require.NoError(t, err)

	obj, err := store.Upload(context.Background(), "uploads/1700000000000_0.jpg", "image/jpeg", strings.NewReader("jpegdata"))
	require.NoError(t, err)

	assert.Equal(t, "/businesses/uploads/1700000000000_0.jpg", gotPath)
	assert.Equal(t, "image/jpeg", gotType)
	assert.Equal(t, "jpegdata", gotBody)
	assert.Equal(t, server.URL+"/businesses/uploads/1700000000000_0.jpg", obj.URL)
}

func TestS3Storage_UploadFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	store, err := NewS3Storage(&config.StorageConfig{
		Bucket: "businesses", Region: "ap-south-1", Endpoint: server.URL, AccessKey: "k", SecretKey: "s",
	})
	require.NoError(t, err)

	_, err = store.Upload(context.Background(), "uploads/x.png", "image/png", strings.NewReader("png"))
	assert.Error(t, err)
}

func TestPublicBaseURL(t *testing.T) {
	assert.Equal(t, "https://cdn.example.com",
		publicBaseURL(&config.StorageConfig{PublicURL: "https://cdn.example.com/", Bucket: "b"}))
	assert.Equal(t, "https://businesses.s3.ap-south-1.amazonaws.com",
		publicBaseURL(&config.StorageConfig{Bucket: "businesses", Region: "ap-south-1"}))
}

func TestPublicID(t *testing.T) {
	assert.Equal(t, "services/1700000000000-front", publicID("services/1700000000000-front.jpg"))
}

func TestNew_UnknownProvider(t *testing.T) {
	_, err := New(&config.StorageConfig{Provider: "ftp"})
	assert.Error(t, err)
}
