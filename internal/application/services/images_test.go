package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/synergyayush/lookindharamshala/pkg/errors"
)

var (
	pngBytes  = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")
	jpegBytes = []byte("\xFF\xD8\xFF\xE0\x00\x10JFIF\x00\x01\x01\x00\x00\x01\x00\x01\x00\x00")
)

func fixedUploader(storage *memStorage) *ImageUploader {
	u := NewImageUploader(storage, nil)
	u.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return u
}

func TestImageSet_AttachRejectsFourthImage(t *testing.T) {
	var set ImageSet
	for i := 0; i < 3; i++ {
		require.NoError(t, set.Attach(ImageFile{Name: "a.png", Data: pngBytes}))
	}

	err := set.Attach(ImageFile{Name: "d.png", Data: pngBytes})

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
	assert.Equal(t, 3, set.Len())
}

func TestImageUploader_ListingKeysAndURLs(t *testing.T) {
	storage := newMemStorage()
	u := fixedUploader(storage)

	var set ImageSet
	require.NoError(t, set.Attach(ImageFile{Name: "front.PNG", ContentType: "image/png", Data: pngBytes}))
	require.NoError(t, set.Attach(ImageFile{Name: "menu", ContentType: "", Data: jpegBytes}))

	urls, rejected := u.UploadListingImages(context.Background(), &set)

	assert.Empty(t, rejected)
	assert.Equal(t, []string{
		"https://cdn.test/businesses/uploads/1700000000000_0.png",
		"https://cdn.test/businesses/uploads/1700000000000_1.jpg",
	}, urls)
	assert.Equal(t, "image/jpeg", storage.objects["uploads/1700000000000_1.jpg"])
}

func TestImageUploader_SkipsNonImagesAndFailedUploads(t *testing.T) {
	storage := newMemStorage()
	storage.fail["uploads/1700000000000_2.png"] = true
	u := fixedUploader(storage)

	var set ImageSet
	require.NoError(t, set.Attach(ImageFile{Name: "ok.png", ContentType: "image/png", Data: pngBytes}))
	require.NoError(t, set.Attach(ImageFile{Name: "notes.txt", ContentType: "text/plain", Data: []byte("hello there")}))
	require.NoError(t, set.Attach(ImageFile{Name: "broken.png", ContentType: "image/png", Data: pngBytes}))

	urls, rejected := u.UploadListingImages(context.Background(), &set)

	assert.Equal(t, []string{"https://cdn.test/businesses/uploads/1700000000000_0.png"}, urls)
	require.Len(t, rejected, 2)
	assert.Equal(t, ImageRejection{Name: "notes.txt", Reason: "only image files are allowed"}, rejected[0])
	assert.Equal(t, ImageRejection{Name: "broken.png", Reason: "upload failed"}, rejected[1])
}

func TestImageUploader_ServiceImagesRespectExistingCount(t *testing.T) {
	storage := newMemStorage()
	u := fixedUploader(storage)
	files := []ImageFile{
		{Name: "a.png", ContentType: "image/png", Data: pngBytes},
		{Name: "b.png", ContentType: "image/png", Data: pngBytes},
	}

	_, _, err := u.UploadServiceImages(context.Background(), 2, files)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
	assert.Empty(t, storage.keys(), "nothing may be uploaded when the batch is refused")

	urls, rejected, err := u.UploadServiceImages(context.Background(), 1, files[:1])
	require.NoError(t, err)
	assert.Empty(t, rejected)
	assert.Equal(t, []string{"https://cdn.test/businesses/services/1700000000000-a.png"}, urls)
}

func TestSafeName(t *testing.T) {
	assert.Equal(t, "my_cafe.jpg", safeName("C:\\photos\\my cafe.jpg"))
	assert.Equal(t, "image", safeName(""))
}
