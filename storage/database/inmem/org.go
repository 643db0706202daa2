package inmem

import (
	"context"
	"sort"

	"github.com/shieldhq/shield/core/org"
)

type orgRepository struct {
	db *orgTable
}

var _ org.Repository = (*orgRepository)(nil)

func NewOrganizationRepository(db *DB) *orgRepository {
	return &orgRepository{db: db.org}
}

func (repo *orgRepository) query() []org.Organization {
	orgs := make([]org.Organization, 0, len(repo.db.table))
	for _, o := range repo.db.table {
		orgs = append(orgs, *o)
	}
	sort.Slice(orgs, func(i, j int) bool { return orgs[i].ID < orgs[j].ID })
	return orgs
}

func (repo *orgRepository) CheckEmailUniqueness(_ context.Context, email string, excluded ...org.Organization) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, o := range repo.query() {
		if o.Email == email && !isExcluded(o, excluded) {
			return org.ErrEmailExists
		}
	}
	return nil
}

func (repo *orgRepository) CreateOrganization(_ context.Context, o org.Organization) (org.Organization, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.seq++
	o.ID = repo.db.seq
	repo.db.table[o.ID] = &o
	return o, nil
}

func (repo *orgRepository) QueryAllOrganizations(_ context.Context) ([]org.Organization, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.query(), nil
}

func (repo *orgRepository) GetOrganizationByID(_ context.Context, id int) (org.Organization, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if o, ok := repo.db.table[id]; ok {
		return *o, nil
	}
	return org.Organization{}, org.ErrNotFound
}

func (repo *orgRepository) GetOrganizationByEmail(_ context.Context, email string) (org.Organization, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, o := range repo.query() {
		if o.Email == email {
			return o, nil
		}
	}
	return org.Organization{}, org.ErrNotFound
}

func (repo *orgRepository) UpdateOrganization(_ context.Context, o org.Organization, isActive *bool) (org.Organization, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	// only save set fields
	orig, ok := repo.db.table[o.ID]
	if !ok {
		return org.Organization{}, org.ErrNotFound
	}
	if o.Name != "" {
		orig.Name = o.Name
	}
	if o.ContactName != "" {
		orig.ContactName = o.ContactName
	}
	if o.Email != "" {
		orig.Email = o.Email
	}
	if o.PasswordHash != nil {
		orig.PasswordHash = o.PasswordHash
	}
	if isActive != nil {
		orig.IsActive = isActive
	}
	if !o.LastLogin.IsZero() {
		orig.LastLogin = o.LastLogin
	}
	orig.UpdatedAt = o.UpdatedAt

	repo.db.table[o.ID] = orig
	return *orig, nil
}

func (repo *orgRepository) DeleteOrganizationsByID(_ context.Context, ids ...int) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	for _, id := range ids {
		delete(repo.db.table, id)
	}
	return nil
}

func isExcluded(o org.Organization, excluded []org.Organization) bool {
	for _, e := range excluded {
		if e.ID == o.ID {
			return true
		}
	}
	return false
}
