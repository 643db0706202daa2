package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/shieldhq/shield/core/certificate"
	"github.com/shieldhq/shield/core/scoring"
)

const pqUniqueViolation = "23505"

type certificateRow struct {
	ID             string      `db:"id"`
	OrganizationID int         `db:"organization_id"`
	ScoreResultID  string      `db:"score_result_id"`
	Rank           string      `db:"rank"`
	Number         string      `db:"number"`
	IssuedAt       null.Time   `db:"issued_at"`
	DocumentPath   null.String `db:"document_path"`
}

type certificateRepository struct {
	db *sqlx.DB
}

var _ certificate.Repository = (*certificateRepository)(nil)

func NewCertificateRepository(db *sqlx.DB) *certificateRepository {
	return &certificateRepository{db: db}
}

func (repo *certificateRepository) unrow(row certificateRow) certificate.Certificate {
	return certificate.Certificate{
		ID:             row.ID,
		OrganizationID: row.OrganizationID,
		ScoreResultID:  row.ScoreResultID,
		Rank:           scoring.Rank(row.Rank),
		Number:         row.Number,
		IssuedAt:       row.IssuedAt.Time,
		DocumentPath:   row.DocumentPath,
	}
}

func (repo *certificateRepository) CreateCertificate(ctx context.Context, cert certificate.Certificate) (certificate.Certificate, error) {
	row := certificateRow{
		ID:             cert.ID,
		OrganizationID: cert.OrganizationID,
		ScoreResultID:  cert.ScoreResultID,
		Rank:           string(cert.Rank),
		Number:         cert.Number,
		IssuedAt:       null.NewTime(cert.IssuedAt.UTC(), !cert.IssuedAt.IsZero()),
		DocumentPath:   cert.DocumentPath,
	}
	query := `
		INSERT INTO certificate (id, organization_id, score_result_id, rank, number, issued_at, document_path)
		VALUES (:id, :organization_id, :score_result_id, :rank, :number, :issued_at, :document_path)`
	if _, err := repo.db.NamedExecContext(ctx, query, row); err != nil {
		if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code == pqUniqueViolation {
			return certificate.Certificate{}, certificate.ErrDuplicateNumber
		}
		return certificate.Certificate{}, errors.Wrap(err, "inserting certificate")
	}
	return cert, nil
}

func (repo *certificateRepository) GetCertificate(ctx context.Context, id string) (certificate.Certificate, error) {
	var row certificateRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM certificate WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return certificate.Certificate{}, certificate.ErrNotFound
		}
		return certificate.Certificate{}, errors.Wrap(err, "finding certificate by ID")
	}
	return repo.unrow(row), nil
}

func (repo *certificateRepository) GetCertificateByNumber(ctx context.Context, number string) (certificate.Certificate, error) {
	var row certificateRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM certificate WHERE number = $1`, number); err != nil {
		if err == sql.ErrNoRows {
			return certificate.Certificate{}, certificate.ErrNotFound
		}
		return certificate.Certificate{}, errors.Wrap(err, "finding certificate by number")
	}
	return repo.unrow(row), nil
}

func (repo *certificateRepository) QueryCertificates(ctx context.Context, organizationID int) ([]certificate.Certificate, error) {
	var rows []certificateRow
	query := `SELECT * FROM certificate WHERE organization_id = $1 ORDER BY issued_at DESC`
	if err := repo.db.SelectContext(ctx, &rows, query, organizationID); err != nil {
		return nil, errors.Wrap(err, "querying certificates")
	}
	certs := make([]certificate.Certificate, 0, len(rows))
	for _, row := range rows {
		certs = append(certs, repo.unrow(row))
	}
	return certs, nil
}

func (repo *certificateRepository) SetDocumentPath(ctx context.Context, id, documentPath string) error {
	res, err := repo.db.ExecContext(ctx, `UPDATE certificate SET document_path = $1 WHERE id = $2`, documentPath, id)
	if err != nil {
		return errors.Wrap(err, "setting certificate document path")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return certificate.ErrNotFound
	}
	return nil
}

func (repo *certificateRepository) NextSequence(ctx context.Context, year int) (int, error) {
	query := `
		INSERT INTO certificate_sequence (year, value)
		VALUES ($1, 1)
		ON CONFLICT (year) DO UPDATE SET value = certificate_sequence.value + 1
		RETURNING value`
	var value int
	if err := repo.db.GetContext(ctx, &value, query, year); err != nil {
		return 0, errors.Wrap(err, "incrementing certificate sequence")
	}
	return value, nil
}
