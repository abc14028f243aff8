package extract

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"applykit-backend/internal/shared/server/respond"
	"applykit-backend/internal/shared/telemetry"
	"applykit-backend/internal/shared/util"
)

const maxUploadSize = 5 << 20

// Handler exposes CV text extraction.
type Handler struct{}

// NewHandler constructs a Handler.
func NewHandler() *Handler {
	return &Handler{}
}

// RegisterRoutes attaches extraction routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/cv/extract", h.extract)
}

func (h *Handler) extract(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize+1<<10)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}
	if fileHeader.Size > maxUploadSize {
		respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "file exceeds 5MB", nil)
		return
	}
	name, err := util.SanitizeFileName(fileHeader.Filename)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid file name", nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}

	text, err := ExtractTextFromBytes(c.Request.Context(), data, fileHeader.Header.Get("Content-Type"), name)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnsupported):
			respond.Error(c, http.StatusUnsupportedMediaType, "unsupported_file", "upload a PDF, DOCX or TXT file", nil)
		default:
			telemetry.Warn("cv.extract_failed", map[string]any{"file": name, "error": err.Error()})
			respond.Error(c, http.StatusUnprocessableEntity, "extraction_failed", "We could not read text from this file.", nil)
		}
		return
	}

	respond.OK(c, gin.H{"text": text, "fileName": name})
}
