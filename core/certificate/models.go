package certificate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/shieldhq/shield/core/catalog"
	"github.com/shieldhq/shield/core/scoring"
)

var (
	// errors
	ErrNotFound = errors.New("certificate not found")
	// ErrDuplicateNumber is returned by repositories on a certificate number
	// unique-constraint violation.
	ErrDuplicateNumber = errors.New("certificate number already exists")
)

// Certificate is an append-only record of an issued certification.
type Certificate struct {
	ID             string       `json:"id"`
	OrganizationID int          `json:"organization_id"`
	ScoreResultID  string       `json:"score_result_id"`
	Rank           scoring.Rank `json:"rank"`
	Number         string       `json:"number"`
	IssuedAt       time.Time    `json:"issued_at"` // UTC
	DocumentPath   null.String  `json:"document_path"`
}

// FormatNumber builds a certificate number encoding path, year, organization
// and the per-year sequence: CERT-{path3}-{year}-{orgID:04d}-{seq:04d}.
func FormatNumber(path catalog.Path, year, orgID, seq int) string {
	return fmt.Sprintf("CERT-%s-%d-%04d-%04d", path.Code(), year, orgID, seq)
}

// DuplicateNumberError signals that issuance hit a duplicate certificate
// number even after re-deriving the sequence: the issuance serialization
// discipline was violated and the failure is escalated to the caller.
type DuplicateNumberError struct {
	Number string
}

func (e *DuplicateNumberError) Error() string {
	return fmt.Sprintf("duplicate certificate number %s after retry", e.Number)
}

type Repository interface {
	// CreateCertificate persists a certificate; returns ErrDuplicateNumber
	// when the number is already taken.
	CreateCertificate(ctx context.Context, cert Certificate) (Certificate, error)
	GetCertificate(ctx context.Context, id string) (Certificate, error)
	GetCertificateByNumber(ctx context.Context, number string) (Certificate, error)
	QueryCertificates(ctx context.Context, organizationID int) ([]Certificate, error)
	SetDocumentPath(ctx context.Context, id, documentPath string) error
	// NextSequence atomically increments and returns the issuance sequence for
	// a calendar year.
	NextSequence(ctx context.Context, year int) (int, error)
}
