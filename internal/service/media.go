package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"photoshare/internal/models"
	"photoshare/internal/storage"

	_ "golang.org/x/image/webp" // Register WebP decoder
)

// DefaultMaxUploadBytes applies when no limit is configured.
const DefaultMaxUploadBytes = 10 * 1024 * 1024

// ImageFile is an uploaded image as received from a multipart form.
type ImageFile struct {
	Filename    string
	ContentType string
	Content     []byte
}

// sniffLen is how much of a blob is buffered to detect its content type.
const sniffLen = 512

// Blob is a stored binary opened for streaming. The caller owns Body and must close it.
type Blob struct {
	Key         string
	ContentType string
	Body        io.ReadCloser
}

type blobBody struct {
	io.Reader
	io.Closer
}

// validateImage checks size, sniffed type and decodability and returns the content type to store.
func validateImage(file *ImageFile, maxBytes int64) (string, error) {
	if file == nil || len(file.Content) == 0 {
		return "", models.NewValidationError("No file uploaded")
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	if int64(len(file.Content)) > maxBytes {
		return "", models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", maxBytes/(1024*1024)))
	}

	detectedType := http.DetectContentType(file.Content)
	if !isAllowedImageMIME(detectedType) {
		return "", models.NewValidationError("Invalid image type")
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(file.Content))
	if err != nil {
		return "", models.NewValidationError("Invalid image file")
	}
	if !isSupportedDecodedFormat(format) {
		return "", models.NewValidationError("Unsupported image format")
	}

	sourceMimeType := decodedFormatToMime(format)
	if provided := normalizeContentType(file.ContentType); strings.HasPrefix(provided, "image/") && !isMatchingContentType(provided, sourceMimeType) {
		return "", models.NewValidationError("Image content type mismatch")
	}
	return sourceMimeType, nil
}

// storeImage validates file and writes it under a fresh key.
func storeImage(ctx context.Context, blobs storage.BlobStore, file *ImageFile, maxBytes int64, now time.Time) (string, error) {
	contentType, err := validateImage(file, maxBytes)
	if err != nil {
		return "", err
	}
	key := storage.GenerateFilename(file.Filename, now)
	if err := blobs.Put(ctx, key, bytes.NewReader(file.Content), contentType); err != nil {
		return "", models.NewInternalError(fmt.Errorf("store %s: %w", key, err))
	}
	return key, nil
}

// deleteBlob removes a stored binary. External URLs and empty references are
// not blobs, and a key that is already gone counts as deleted.
func deleteBlob(ctx context.Context, blobs storage.BlobStore, ref string) error {
	if ref == "" || models.IsExternalURL(ref) {
		return nil
	}
	if err := blobs.Delete(ctx, ref); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("delete blob %s: %w", ref, err)
	}
	return nil
}

// ReadBlob opens key in blobs and sniffs its content type from the leading bytes.
// Only those bytes are buffered; the rest streams from the store.
func ReadBlob(ctx context.Context, blobs storage.BlobStore, key string) (*Blob, error) {
	if err := storage.ValidateKey(key); err != nil {
		return nil, models.NewNotFoundError("File", key)
	}
	rc, err := blobs.Open(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, models.NewNotFoundError("File", key)
		}
		return nil, models.NewInternalError(err)
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(rc, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		_ = rc.Close()
		return nil, models.NewInternalError(err)
	}
	head = head[:n]

	return &Blob{
		Key:         key,
		ContentType: http.DetectContentType(head),
		Body:        blobBody{Reader: io.MultiReader(bytes.NewReader(head), rc), Closer: rc},
	}, nil
}

func isAllowedImageMIME(contentType string) bool {
	switch normalizeContentType(contentType) {
	case "image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

func normalizeContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

func isMatchingContentType(provided, detected string) bool {
	p := normalizeContentType(provided)
	d := normalizeContentType(detected)
	if p == d {
		return true
	}
	return (p == "image/jpg" && d == "image/jpeg") || (p == "image/jpeg" && d == "image/jpg")
}

func isSupportedDecodedFormat(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jpeg", "jpg", "png", "gif", "webp":
		return true
	default:
		return false
	}
}

func decodedFormatToMime(format string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jpeg", "jpg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	default:
		return ""
	}
}
