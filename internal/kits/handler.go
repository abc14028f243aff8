package kits

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"applykit-backend/internal/shared/server/middleware"
	"applykit-backend/internal/shared/server/respond"
	"applykit-backend/internal/shared/storage/object"
	"applykit-backend/internal/shared/telemetry"
	"applykit-backend/resume/model"
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches kit routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/application-kits", middleware.RequireAuth(), h.create)
	rg.GET("/application-kits", h.list)
	rg.GET("/application-kits/:id", h.get)
	rg.PATCH("/application-kits/:id", h.update)
	rg.DELETE("/application-kits/:id", h.delete)
	rg.GET("/application-kits/:id/resume", h.resume)
	rg.GET("/application-kits/:id/files/:field", h.file)
}

func (h *Handler) create(c *gin.Context) {
	var req createKitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	kit, err := h.Svc.Create(c.Request.Context(), middleware.UserIDFromContext(c), req.toNewKit())
	if err != nil {
		WriteError(c, err)
		return
	}
	c.Set("kitId", kit.ID)
	respond.Created(c, ToResponse(kit))
}

func (h *Handler) list(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))

	kits, err := h.Svc.List(c.Request.Context(), middleware.UserIDFromContext(c), limit, offset)
	if err != nil {
		WriteError(c, err)
		return
	}

	resp := make([]KitResponse, 0, len(kits))
	for _, kit := range kits {
		resp = append(resp, ToResponse(kit))
	}
	respond.OK(c, resp)
}

func (h *Handler) get(c *gin.Context) {
	c.Set("kitId", c.Param("id"))
	kit, err := h.Svc.Get(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		WriteError(c, err)
		return
	}
	respond.OK(c, ToResponse(kit))
}

func (h *Handler) update(c *gin.Context) {
	c.Set("kitId", c.Param("id"))
	var req updateKitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	kit, err := h.Svc.Update(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"), req.toUpdate())
	if err != nil {
		WriteError(c, err)
		return
	}
	respond.OK(c, ToResponse(kit))
}

func (h *Handler) delete(c *gin.Context) {
	c.Set("kitId", c.Param("id"))
	deleted, err := h.Svc.Delete(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrDeleteUnverified) {
			respond.Error(c, http.StatusInternalServerError, "delete_failed", "We could not delete this kit. Please try again.", nil)
			return
		}
		WriteError(c, err)
		return
	}
	respond.OK(c, gin.H{"deleted": deleted})
}

// resume returns the stored résumé coerced into the structured shape.
func (h *Handler) resume(c *gin.Context) {
	c.Set("kitId", c.Param("id"))
	kit, err := h.Svc.Get(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		WriteError(c, err)
		return
	}
	doc := model.Coerce(kit.Resume)
	if !doc.Parsed {
		telemetry.Warn("kit.resume_unparsed", map[string]any{"kit_id": kit.ID})
	}
	c.Header("X-Resume-Parsed", strconv.FormatBool(doc.Parsed))
	respond.OK(c, doc)
}

func (h *Handler) file(c *gin.Context) {
	c.Set("kitId", c.Param("id"))
	field, ok := ParseField(c.Param("field"))
	if !ok {
		respond.Error(c, http.StatusBadRequest, "validation_error", "field must be coverLetter, resume or followUpEmail", nil)
		return
	}
	ctx := c.Request.Context()
	userID := middleware.UserIDFromContext(c)

	url, err := h.Svc.FileURL(ctx, userID, c.Param("id"), field)
	if err == nil {
		c.Redirect(http.StatusTemporaryRedirect, url)
		return
	}
	if !errors.Is(err, object.ErrURLUnsupported) && !errors.Is(err, ErrNotFound) {
		WriteError(c, err)
		return
	}

	rc, err := h.Svc.OpenFile(ctx, userID, c.Param("id"), field)
	if err != nil {
		WriteError(c, err)
		return
	}
	defer rc.Close()
	c.Header("Content-Type", blobContentType)
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, rc); err != nil {
		telemetry.Warn("kit.file_stream_failed", map[string]any{"error": err.Error()})
	}
}

// WriteError maps kit service errors onto HTTP responses.
func WriteError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "application kit not found", nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "save_failed", "We could not save your application kit. Please try again.", nil)
	}
}
