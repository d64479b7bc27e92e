package service

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/emra-dev/lms-api/internal/models"
	appErrors "github.com/emra-dev/lms-api/pkg/errors"
	"github.com/emra-dev/lms-api/pkg/export"
)

type certificateReader interface {
	FindBySerial(ctx context.Context, serial string) (*models.CertificateDetail, error)
	ListByUser(ctx context.Context, userID string) ([]models.CertificateDetail, error)
}

type certificateRenderer interface {
	Render(data export.CertificateData) ([]byte, error)
}

type pdfArchive interface {
	Get(serial string) ([]byte, bool)
	Put(serial string, pdf []byte) error
}

type instructorResolver interface {
	FindByID(ctx context.Context, id int64) (*models.CourseStats, error)
}

// CertificateService lists, verifies and renders completion certificates.
type CertificateService struct {
	certificates certificateReader
	courses      instructorResolver
	renderer     certificateRenderer
	archive      pdfArchive
	logger       *zap.Logger
}

// NewCertificateService constructs CertificateService. A nil archive
// disables the on-disk PDF cache and renders on every download.
func NewCertificateService(certificates certificateReader, courses instructorResolver, renderer certificateRenderer, archive pdfArchive, logger *zap.Logger) *CertificateService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CertificateService{certificates: certificates, courses: courses, renderer: renderer, archive: archive, logger: logger}
}

// List returns the caller's certificates.
func (s *CertificateService) List(ctx context.Context, viewer Viewer) ([]models.CertificateDetail, error) {
	certificates, err := s.certificates.ListByUser(ctx, viewer.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list certificates")
	}
	return certificates, nil
}

// Verify resolves a certificate by serial number. Public: anyone holding a
// serial can check its authenticity.
func (s *CertificateService) Verify(ctx context.Context, serial string) (*models.CertificateDetail, error) {
	certificate, err := s.certificates.FindBySerial(ctx, serial)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "certificate not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load certificate")
	}
	return certificate, nil
}

// RenderPDF produces the printable certificate. Only the owner may
// download it.
func (s *CertificateService) RenderPDF(ctx context.Context, viewer Viewer, serial string) ([]byte, error) {
	certificate, err := s.Verify(ctx, serial)
	if err != nil {
		return nil, err
	}
	if certificate.UserID != viewer.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "certificate belongs to another user")
	}

	if s.archive != nil {
		if pdf, ok := s.archive.Get(certificate.SerialNumber); ok {
			return pdf, nil
		}
	}

	instructor := ""
	if course, err := s.courses.FindByID(ctx, certificate.CourseID); err == nil {
		instructor = course.InstructorName
	}

	pdf, err := s.renderer.Render(export.CertificateData{
		SerialNumber: certificate.SerialNumber,
		StudentName:  certificate.StudentName,
		CourseTitle:  certificate.CourseTitle,
		Instructor:   instructor,
		IssuedAt:     certificate.IssuedAt,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render certificate")
	}

	if s.archive != nil {
		if err := s.archive.Put(certificate.SerialNumber, pdf); err != nil {
			s.logger.Warn("failed to archive certificate", zap.String("serial", certificate.SerialNumber), zap.Error(err))
		}
	}
	return pdf, nil
}
