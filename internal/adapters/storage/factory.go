package storage

import (
	"fmt"
	"strings"

	"github.com/synergyayush/lookindharamshala/internal/domain/providers"
	"github.com/synergyayush/lookindharamshala/pkg/config"
)

// New returns the bucket selected by cfg.Provider
func New(cfg *config.StorageConfig) (providers.ObjectStorage, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "s3":
		return NewS3Storage(cfg)
	case "cloudinary":
		return NewCloudinaryStorage(cfg)
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.Provider)
	}
}
