package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// CertificateData holds the fields printed on a completion certificate.
type CertificateData struct {
	SerialNumber string
	StudentName  string
	CourseTitle  string
	Instructor   string
	IssuedAt     time.Time
}

// CertificateRenderer renders completion certificates as landscape PDFs.
type CertificateRenderer struct{}

// NewCertificateRenderer constructs a renderer.
func NewCertificateRenderer() *CertificateRenderer {
	return &CertificateRenderer{}
}

// Render produces the PDF bytes for a certificate.
func (r *CertificateRenderer) Render(data CertificateData) ([]byte, error) {
	if data.StudentName == "" || data.CourseTitle == "" {
		return nil, fmt.Errorf("certificate requires student and course names")
	}

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(20, 25, 20)
	pdf.AddPage()

	pdf.SetDrawColor(40, 40, 90)
	pdf.SetLineWidth(1.2)
	pdf.Rect(10, 10, 277, 190, "D")

	pdf.SetFont("Times", "B", 30)
	pdf.CellFormat(0, 20, "Certificate of Completion", "", 1, "C", false, 0, "")
	pdf.Ln(8)

	pdf.SetFont("Times", "", 14)
	pdf.CellFormat(0, 8, "This certifies that", "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Times", "B", 24)
	pdf.CellFormat(0, 14, data.StudentName, "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Times", "", 14)
	pdf.CellFormat(0, 8, "has successfully completed the course", "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Times", "B", 20)
	pdf.CellFormat(0, 12, data.CourseTitle, "", 1, "C", false, 0, "")
	pdf.Ln(10)

	pdf.SetFont("Times", "", 12)
	if data.Instructor != "" {
		pdf.CellFormat(0, 7, "Instructor: "+data.Instructor, "", 1, "C", false, 0, "")
	}
	pdf.CellFormat(0, 7, "Issued on "+data.IssuedAt.Format("January 2, 2006"), "", 1, "C", false, 0, "")
	pdf.Ln(6)

	pdf.SetFont("Courier", "", 10)
	pdf.CellFormat(0, 6, "Serial: "+data.SerialNumber, "", 1, "C", false, 0, "")

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render certificate pdf: %w", err)
	}
	return buf.Bytes(), nil
}
