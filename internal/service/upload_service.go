package service

import (
	"context"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"intern-portal/backend/internal/chat"
	apperrors "intern-portal/backend/pkg/errors"
	"intern-portal/backend/pkg/logger"
	"intern-portal/backend/pkg/storage"

	"github.com/google/uuid"
)

var (
	ErrNoFile       = apperrors.NewBadRequestError("NO_FILE", "no file uploaded")
	ErrFileTooLarge = apperrors.NewError(http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "file exceeds the upload limit")
	ErrUploadFailed = apperrors.NewInternalServerError("UPLOAD_FAILED", "file could not be stored")
)

// UploadService stores raw files and hands back the attachment descriptor
// clients put into a publish.
type UploadService struct {
	store   storage.Storage
	maxSize int64
	log     *logger.Logger
}

// NewUploadService creates the service. maxSize of zero disables the limit.
func NewUploadService(store storage.Storage, maxSize int64, log *logger.Logger) *UploadService {
	return &UploadService{store: store, maxSize: maxSize, log: log}
}

// MaxSize is the largest accepted upload in bytes
func (s *UploadService) MaxSize() int64 {
	return s.maxSize
}

// Upload stores r under a fresh key. contentType may be empty, in which case
// it is guessed from the file extension.
func (s *UploadService) Upload(ctx context.Context, originalName, contentType string, size int64, r io.Reader) (*chat.Attachment, error) {
	if r == nil || originalName == "" {
		return nil, ErrNoFile
	}
	if s.maxSize > 0 && size > s.maxSize {
		return nil, ErrFileTooLarge.WithDetails(map[string]int64{"max_bytes": s.maxSize})
	}

	ext := strings.ToLower(filepath.Ext(originalName))
	contentType = detectContentType(contentType, ext)
	key := uuid.NewString() + ext

	if err := s.store.Write(ctx, key, r, size, contentType); err != nil {
		s.log.LogError(err, "Upload write failed", "key", key, "original_name", originalName)
		return nil, ErrUploadFailed.Wrap(err)
	}

	s.log.Info("File uploaded",
		"key", key,
		"original_name", originalName,
		"content_type", contentType,
		"size", size,
	)

	return &chat.Attachment{
		URL:          s.store.URL(key),
		Kind:         chat.KindFromMIME(contentType),
		OriginalName: filepath.Base(originalName),
	}, nil
}

func detectContentType(declared, ext string) string {
	declared = strings.TrimSpace(declared)
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	if guessed := mime.TypeByExtension(ext); guessed != "" {
		return guessed
	}
	if declared != "" {
		return declared
	}
	return "application/octet-stream"
}
