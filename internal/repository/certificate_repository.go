package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/emra-dev/lms-api/internal/models"
)

// CertificateRepository manages completion certificates.
type CertificateRepository struct {
	db *sqlx.DB
}

// NewCertificateRepository constructs a CertificateRepository.
func NewCertificateRepository(db *sqlx.DB) *CertificateRepository {
	return &CertificateRepository{db: db}
}

// GetOrCreate issues a certificate once per (user, course) and returns it.
// Concurrent issuance converges on the first row through the unique index.
func (r *CertificateRepository) GetOrCreate(ctx context.Context, userID string, courseID int64) (*models.Certificate, bool, error) {
	serial := strings.ToUpper(uuid.NewString()[:8])
	const insert = `INSERT INTO certificates (user_id, course_id, serial_number, issued_at) VALUES ($1, $2, $3, $4)
        ON CONFLICT (user_id, course_id) DO NOTHING`
	result, err := r.db.ExecContext(ctx, insert, userID, courseID, serial, time.Now().UTC())
	if err != nil {
		return nil, false, fmt.Errorf("issue certificate: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("issue certificate: %w", err)
	}

	const query = `SELECT id, user_id, course_id, serial_number, issued_at FROM certificates WHERE user_id = $1 AND course_id = $2`
	var certificate models.Certificate
	if err := r.db.GetContext(ctx, &certificate, query, userID, courseID); err != nil {
		return nil, false, err
	}
	return &certificate, affected > 0, nil
}

// FindBySerial fetches a certificate with display names for rendering and
// public verification.
func (r *CertificateRepository) FindBySerial(ctx context.Context, serial string) (*models.CertificateDetail, error) {
	const query = `SELECT ct.id, ct.user_id, ct.course_id, ct.serial_number, ct.issued_at,
        c.title AS course_title, u.username AS student_name
        FROM certificates ct JOIN courses c ON c.id = ct.course_id JOIN users u ON u.id = ct.user_id
        WHERE ct.serial_number = $1`
	var detail models.CertificateDetail
	if err := r.db.GetContext(ctx, &detail, query, serial); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find certificate: %w", err)
	}
	return &detail, nil
}

// ListByUser returns the user's certificates, newest first.
func (r *CertificateRepository) ListByUser(ctx context.Context, userID string) ([]models.CertificateDetail, error) {
	const query = `SELECT ct.id, ct.user_id, ct.course_id, ct.serial_number, ct.issued_at,
        c.title AS course_title, u.username AS student_name
        FROM certificates ct JOIN courses c ON c.id = ct.course_id JOIN users u ON u.id = ct.user_id
        WHERE ct.user_id = $1 ORDER BY ct.issued_at DESC`
	var certificates []models.CertificateDetail
	if err := r.db.SelectContext(ctx, &certificates, query, userID); err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}
	return certificates, nil
}
