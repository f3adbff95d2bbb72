package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/cristhian-fs/slack-clone/internal/auth"
	"github.com/cristhian-fs/slack-clone/internal/service"
)

// UploadHandler handles attachment upload endpoints.
type UploadHandler struct {
	service *service.UploadService
}

// NewUploadHandler creates an UploadHandler.
func NewUploadHandler(svc *service.UploadService) *UploadHandler {
	return &UploadHandler{service: svc}
}

type uploadURLResponse struct {
	URL string `json:"url"`
}

type uploadResponse struct {
	StorageID string `json:"storage_id"`
}

// GenerateUploadURL handles POST /api/v1/upload-url.
func (h *UploadHandler) GenerateUploadURL(c echo.Context) error {
	url, err := h.service.GenerateUploadURL(c.Request().Context(), auth.GetUserID(c))
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, uploadURLResponse{URL: url})
}

// Upload handles POST /api/v1/uploads/:token. The request body is the raw
// file and Content-Type its media type. The token authorizes the request.
func (h *UploadHandler) Upload(c echo.Context) error {
	req := c.Request()
	body := http.MaxBytesReader(c.Response(), req.Body, service.MaxUploadSize+1)
	defer body.Close()

	storageID, err := h.service.Store(req.Context(), c.Param("token"), req.Header.Get(echo.HeaderContentType), body)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, uploadResponse{StorageID: storageID})
}
