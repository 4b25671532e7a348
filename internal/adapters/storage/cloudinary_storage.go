package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/synergyayush/lookindharamshala/internal/domain/providers"
	"github.com/synergyayush/lookindharamshala/pkg/config"
)

// CloudinaryStorage stores images on Cloudinary, keyed by public id
type CloudinaryStorage struct {
	cld *cloudinary.Cloudinary
}

var _ providers.ObjectStorage = (*CloudinaryStorage)(nil)

// NewCloudinaryStorage creates a Cloudinary-backed bucket
func NewCloudinaryStorage(cfg *config.StorageConfig) (*CloudinaryStorage, error) {
	cld, err := cloudinary.NewFromParams(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create cloudinary client: %w", err)
	}
	return &CloudinaryStorage{cld: cld}, nil
}

// publicID drops the extension; Cloudinary appends the format itself
func publicID(key string) string {
	return strings.TrimSuffix(key, path.Ext(key))
}

// Upload stores the image and returns its secure URL
func (s *CloudinaryStorage) Upload(ctx context.Context, key, contentType string, r io.Reader) (*providers.StoredObject, error) {
	result, err := s.cld.Upload.Upload(ctx, r, uploader.UploadParams{
		PublicID:     publicID(key),
		ResourceType: "image",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload %s: %w", key, err)
	}
	if result.Error.Message != "" {
		return nil, fmt.Errorf("failed to upload %s: %s", key, result.Error.Message)
	}
	if result.SecureURL == "" {
		return nil, fmt.Errorf("failed to upload %s: no url returned", key)
	}

	return &providers.StoredObject{Key: key, URL: result.SecureURL}, nil
}

// Delete removes an image by key
func (s *CloudinaryStorage) Delete(ctx context.Context, key string) error {
	if _, err := s.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID(key)}); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}
