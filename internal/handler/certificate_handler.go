package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/emra-dev/lms-api/internal/models"
	"github.com/emra-dev/lms-api/internal/service"
	appErrors "github.com/emra-dev/lms-api/pkg/errors"
	"github.com/emra-dev/lms-api/pkg/response"
)

type certificateService interface {
	List(ctx context.Context, viewer service.Viewer) ([]models.CertificateDetail, error)
	Verify(ctx context.Context, serial string) (*models.CertificateDetail, error)
	RenderPDF(ctx context.Context, viewer service.Viewer, serial string) ([]byte, error)
}

// CertificateHandler exposes certificate listing, public verification and
// PDF download.
type CertificateHandler struct {
	service certificateService
}

// NewCertificateHandler constructs the handler.
func NewCertificateHandler(svc certificateService) *CertificateHandler {
	return &CertificateHandler{service: svc}
}

// List godoc
// @Summary Caller's certificates
// @Tags Certificates
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /certificates [get]
func (h *CertificateHandler) List(c *gin.Context) {
	viewer, ok := requireViewer(c)
	if !ok {
		return
	}
	certificates, err := h.service.List(c.Request.Context(), viewer)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, certificates, nil)
}

// Verify godoc
// @Summary Verify a certificate by serial number
// @Description Public endpoint for employers checking authenticity.
// @Tags Certificates
// @Produce json
// @Param serial path string true "Serial number"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.ErrorBody
// @Router /certificates/{serial}/verify [get]
func (h *CertificateHandler) Verify(c *gin.Context) {
	serial := strings.TrimSpace(c.Param("serial"))
	if serial == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "serial is required"))
		return
	}
	certificate, err := h.service.Verify(c.Request.Context(), serial)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, certificate, nil)
}

// Download godoc
// @Summary Download the printable certificate
// @Tags Certificates
// @Produce application/pdf
// @Security BearerAuth
// @Param serial path string true "Serial number"
// @Success 200 {file} binary
// @Failure 403 {object} response.ErrorBody
// @Router /certificates/{serial}/download [get]
func (h *CertificateHandler) Download(c *gin.Context) {
	viewer, ok := requireViewer(c)
	if !ok {
		return
	}
	serial := strings.TrimSpace(c.Param("serial"))
	if serial == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "serial is required"))
		return
	}

	pdf, err := h.service.RenderPDF(c.Request.Context(), viewer, serial)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="certificate-%s.pdf"`, serial))
	c.Data(http.StatusOK, "application/pdf", pdf)
}
