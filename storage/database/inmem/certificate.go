package inmem

import (
	"context"
	"sort"

	"github.com/volatiletech/null/v8"

	"github.com/shieldhq/shield/core/certificate"
)

type certificateRepository struct {
	db *certificateTable
}

var _ certificate.Repository = (*certificateRepository)(nil)

func NewCertificateRepository(db *DB) *certificateRepository {
	return &certificateRepository{db: db.certificate}
}

func (repo *certificateRepository) CreateCertificate(_ context.Context, cert certificate.Certificate) (certificate.Certificate, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, c := range repo.db.table {
		if c.Number == cert.Number {
			return certificate.Certificate{}, certificate.ErrDuplicateNumber
		}
	}
	repo.db.table[cert.ID] = &cert
	return cert, nil
}

func (repo *certificateRepository) GetCertificate(_ context.Context, id string) (certificate.Certificate, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if cert, ok := repo.db.table[id]; ok {
		return *cert, nil
	}
	return certificate.Certificate{}, certificate.ErrNotFound
}

func (repo *certificateRepository) GetCertificateByNumber(_ context.Context, number string) (certificate.Certificate, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, cert := range repo.db.table {
		if cert.Number == number {
			return *cert, nil
		}
	}
	return certificate.Certificate{}, certificate.ErrNotFound
}

func (repo *certificateRepository) QueryCertificates(_ context.Context, organizationID int) ([]certificate.Certificate, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	certs := make([]certificate.Certificate, 0)
	for _, cert := range repo.db.table {
		if cert.OrganizationID == organizationID {
			certs = append(certs, *cert)
		}
	}
	sort.Slice(certs, func(i, j int) bool { return certs[i].IssuedAt.Before(certs[j].IssuedAt) })
	return certs, nil
}

func (repo *certificateRepository) SetDocumentPath(_ context.Context, id, documentPath string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	cert, ok := repo.db.table[id]
	if !ok {
		return certificate.ErrNotFound
	}
	cert.DocumentPath = null.StringFrom(documentPath)
	return nil
}

func (repo *certificateRepository) NextSequence(_ context.Context, year int) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.seqs[year]++
	return repo.db.seqs[year], nil
}
