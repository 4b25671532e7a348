package services

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"github.com/synergyayush/lookindharamshala/internal/domain/entities"
	"github.com/synergyayush/lookindharamshala/internal/domain/providers"
	"github.com/synergyayush/lookindharamshala/internal/infrastructure/observability"
	apperrors "github.com/synergyayush/lookindharamshala/pkg/errors"
)

// ImageFile is an image received from a form
type ImageFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// ImageRejection explains why one image was not stored
type ImageRejection struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// ImageSet collects the images of one submission. It never holds more than
// entities.MaxImages files.
type ImageSet struct {
	files []ImageFile
}

// Attach adds f to the set, refusing anything past the limit
func (s *ImageSet) Attach(f ImageFile) error {
	if len(s.files) >= entities.MaxImages {
		return apperrors.NewFieldValidationError(map[string]string{
			"images": fmt.Sprintf("At most %d images are allowed", entities.MaxImages),
		})
	}
	s.files = append(s.files, f)
	return nil
}

// Len returns the number of attached images
func (s *ImageSet) Len() int { return len(s.files) }

// Files returns the attached images
func (s *ImageSet) Files() []ImageFile { return s.files }

// ImageUploader stores submission images in the public bucket
type ImageUploader struct {
	storage providers.ObjectStorage
	metrics *observability.Metrics
	now     func() time.Time
	logger  zerolog.Logger
}

// NewImageUploader creates an uploader. metrics may be nil.
func NewImageUploader(storage providers.ObjectStorage, metrics *observability.Metrics) *ImageUploader {
	return &ImageUploader{
		storage: storage,
		metrics: metrics,
		now:     time.Now,
		logger:  observability.ComponentLogger("images"),
	}
}

// UploadListingImages stores a public submission's images under
// uploads/<unix-ms>_<index>.<ext>. Images that are not images or fail to
// upload are skipped and reported; the rest are returned as public URLs.
func (u *ImageUploader) UploadListingImages(ctx context.Context, set *ImageSet) ([]string, []ImageRejection) {
	return u.upload(ctx, set.Files(), func(i int, f ImageFile, contentType string) string {
		return fmt.Sprintf("uploads/%d_%d.%s", u.now().UnixMilli(), i, extension(f.Name, contentType))
	})
}

// UploadServiceImages stores admin service-form images under
// services/<unix-ms>-<file name>. existing is the number of images the
// service already has; if existing plus the new files exceeds the limit the
// whole batch is refused and nothing is uploaded.
func (u *ImageUploader) UploadServiceImages(ctx context.Context, existing int, files []ImageFile) ([]string, []ImageRejection, error) {
	if existing+len(files) > entities.MaxImages {
		return nil, nil, apperrors.NewFieldValidationError(map[string]string{
			"images": fmt.Sprintf("At most %d images are allowed, remove some before adding new ones", entities.MaxImages),
		})
	}

	urls, rejected := u.upload(ctx, files, func(_ int, f ImageFile, _ string) string {
		return fmt.Sprintf("services/%d-%s", u.now().UnixMilli(), safeName(f.Name))
	})
	return urls, rejected, nil
}

func (u *ImageUploader) upload(ctx context.Context, files []ImageFile, key func(int, ImageFile, string) string) ([]string, []ImageRejection) {
	var (
		urls     []string
		rejected []ImageRejection
	)

	for i, f := range files {
		contentType, ok := imageContentType(f)
		if !ok {
			rejected = append(rejected, ImageRejection{Name: f.Name, Reason: "only image files are allowed"})
			continue
		}

		k := key(i, f, contentType)
		obj, err := u.storage.Upload(ctx, k, contentType, bytes.NewReader(f.Data))
		observability.RecordImageUpload(ctx, u.metrics, err == nil)
		if err != nil {
			u.logger.Warn().Err(err).Str("key", k).Msg("image upload failed")
			rejected = append(rejected, ImageRejection{Name: f.Name, Reason: "upload failed"})
			continue
		}
		urls = append(urls, obj.URL)
	}

	return urls, rejected
}

// imageContentType trusts a declared image/* type and otherwise sniffs the bytes
func imageContentType(f ImageFile) (string, bool) {
	declared := strings.ToLower(strings.TrimSpace(f.ContentType))
	if strings.HasPrefix(declared, "image/") {
		return declared, true
	}
	detected := mimetype.Detect(f.Data)
	for m := detected; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), "image/") {
			return detected.String(), true
		}
	}
	return "", false
}

func extension(name, contentType string) string {
	if ext := strings.TrimPrefix(path.Ext(name), "."); ext != "" {
		return strings.ToLower(ext)
	}
	if m := mimetype.Lookup(contentType); m != nil && m.Extension() != "" {
		return strings.TrimPrefix(m.Extension(), ".")
	}
	return "bin"
}

// safeName keeps the base name of an uploaded file, without path separators or spaces
func safeName(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		return "image"
	}
	return strings.ReplaceAll(base, " ", "_")
}
