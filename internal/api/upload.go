package api

import (
	stderrors "errors"
	"net/http"

	"intern-portal/backend/internal/service"
	"intern-portal/backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// multipart framing allowance on top of the file size limit
const uploadOverhead = 1 << 20

// UploadController accepts chat attachments
type UploadController struct {
	uploads *service.UploadService
}

// NewUploadController creates a new upload controller
func NewUploadController(uploads *service.UploadService) *UploadController {
	return &UploadController{uploads: uploads}
}

// RegisterRoutesV1 registers the upload route on an authenticated group
func (uc *UploadController) RegisterRoutesV1(group *gin.RouterGroup) {
	group.POST("/upload", uc.Upload)
}

// UploadResponse is what clients copy into a publish as the attachment
type UploadResponse struct {
	Success      bool   `json:"success"`
	FileURL      string `json:"fileUrl"`
	FileType     string `json:"fileType"`
	OriginalName string `json:"originalName"`
}

// Upload stores the multipart field "file"
func (uc *UploadController) Upload(c *gin.Context) {
	if limit := uc.uploads.MaxSize(); limit > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+uploadOverhead)
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			c.Error(service.ErrFileTooLarge)
			return
		}
		c.Error(service.ErrNoFile.Wrap(err))
		return
	}
	defer file.Close()

	att, err := uc.uploads.Upload(c.Request.Context(), header.Filename, header.Header.Get("Content-Type"), header.Size, file)
	if err != nil {
		c.Error(err)
		return
	}

	logger.FromContext(c).Debug("Attachment ready", "url", att.URL, "kind", string(att.Kind))

	c.JSON(http.StatusCreated, UploadResponse{
		Success:      true,
		FileURL:      att.URL,
		FileType:     string(att.Kind),
		OriginalName: att.OriginalName,
	})
}
