package sqlxrepos

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/shieldhq/shield/core/org"
)

type orgRow struct {
	ID           int         `db:"id"`
	Name         string      `db:"name"`
	ContactName  null.String `db:"contact_name"`
	Email        string      `db:"email"`
	IsActive     null.Bool   `db:"is_active"`
	IsAdmin      bool        `db:"is_admin"`
	PasswordHash null.Bytes  `db:"password_hash"`
	CreatedAt    null.Time   `db:"created_at"`
	UpdatedAt    null.Time   `db:"updated_at"`
	LastLogin    null.Time   `db:"last_login"`
}

type orgRepository struct {
	db *sqlx.DB
}

var _ org.Repository = (*orgRepository)(nil)

func NewOrganizationRepository(db *sqlx.DB) *orgRepository {
	return &orgRepository{db: db}
}

func (repo *orgRepository) row(o org.Organization) orgRow {
	return orgRow{
		ID:           o.ID,
		Name:         o.Name,
		ContactName:  null.NewString(o.ContactName, o.ContactName != ""),
		Email:        o.Email,
		IsActive:     null.BoolFromPtr(o.IsActive),
		IsAdmin:      o.IsAdmin,
		PasswordHash: null.BytesFrom(o.PasswordHash),
		CreatedAt:    null.NewTime(o.CreatedAt.UTC(), !o.CreatedAt.IsZero()),
		UpdatedAt:    null.NewTime(o.UpdatedAt.UTC(), !o.UpdatedAt.IsZero()),
		LastLogin:    null.NewTime(o.LastLogin.UTC(), !o.LastLogin.IsZero()),
	}
}

func (repo *orgRepository) unrow(row orgRow) org.Organization {
	return org.Organization{
		ID:           row.ID,
		Name:         row.Name,
		ContactName:  row.ContactName.String,
		Email:        row.Email,
		IsActive:     row.IsActive.Ptr(),
		IsAdmin:      row.IsAdmin,
		PasswordHash: row.PasswordHash.Bytes,
		CreatedAt:    row.CreatedAt.Time,
		UpdatedAt:    row.UpdatedAt.Time,
		LastLogin:    row.LastLogin.Time,
	}
}

// trapNoRowsErr maps psql "no rows" err to org.ErrNotFound
func (repo *orgRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return org.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo *orgRepository) CheckEmailUniqueness(ctx context.Context, email string, excluded ...org.Organization) error {
	query := `SELECT EXISTS (SELECT 1 FROM organization WHERE email = $1`
	args := []interface{}{email}
	if len(excluded) > 0 {
		ids := make([]string, 0, len(excluded))
		for _, o := range excluded {
			ids = append(ids, strconv.Itoa(o.ID))
		}
		query += ` AND id NOT IN (` + strings.Join(ids, ",") + `)`
	}
	query += `)`

	var exists bool
	if err := repo.db.GetContext(ctx, &exists, query, args...); err != nil {
		return errors.Wrap(err, "checking organization uniqueness")
	}
	if exists {
		return org.ErrEmailExists
	}
	return nil
}

func (repo *orgRepository) CreateOrganization(ctx context.Context, o org.Organization) (org.Organization, error) {
	row := repo.row(o)
	query := `
		INSERT INTO organization (name, contact_name, email, is_active, is_admin, password_hash, created_at, updated_at)
		VALUES (:name, :contact_name, :email, :is_active, :is_admin, :password_hash, :created_at, :updated_at)
		RETURNING id`

	stmt, err := repo.db.PrepareNamedContext(ctx, query)
	if err != nil {
		return org.Organization{}, errors.Wrap(err, "inserting organization")
	}
	defer func() { _ = stmt.Close() }()
	if err = stmt.GetContext(ctx, &row.ID, row); err != nil {
		return org.Organization{}, errors.Wrap(err, "inserting organization")
	}
	return repo.unrow(row), nil
}

func (repo *orgRepository) QueryAllOrganizations(ctx context.Context) ([]org.Organization, error) {
	var rows []orgRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM organization ORDER BY id`); err != nil {
		return nil, errors.Wrap(err, "querying organizations")
	}
	orgs := make([]org.Organization, 0, len(rows))
	for _, row := range rows {
		orgs = append(orgs, repo.unrow(row))
	}
	return orgs, nil
}

func (repo *orgRepository) GetOrganizationByID(ctx context.Context, id int) (org.Organization, error) {
	var row orgRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM organization WHERE id = $1`, id); err != nil {
		return org.Organization{}, repo.trapNoRowsErr(err, "finding organization by ID")
	}
	return repo.unrow(row), nil
}

func (repo *orgRepository) GetOrganizationByEmail(ctx context.Context, email string) (org.Organization, error) {
	var row orgRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM organization WHERE email = $1`, email); err != nil {
		return org.Organization{}, repo.trapNoRowsErr(err, "finding organization by email")
	}
	return repo.unrow(row), nil
}

func (repo *orgRepository) UpdateOrganization(ctx context.Context, o org.Organization, isActive *bool) (org.Organization, error) {
	sets := []string{"updated_at = :updated_at"}
	row := repo.row(o)
	if o.Name != "" {
		sets = append(sets, "name = :name")
	}
	if o.ContactName != "" {
		sets = append(sets, "contact_name = :contact_name")
	}
	if o.Email != "" {
		sets = append(sets, "email = :email")
	}
	if o.PasswordHash != nil {
		sets = append(sets, "password_hash = :password_hash")
	}
	if !o.LastLogin.IsZero() {
		sets = append(sets, "last_login = :last_login")
	}
	if isActive != nil {
		row.IsActive = null.BoolFromPtr(isActive)
		sets = append(sets, "is_active = :is_active")
	}

	query := `UPDATE organization SET ` + strings.Join(sets, ", ") + ` WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, query, row)
	if err != nil {
		return org.Organization{}, errors.Wrap(err, "updating organization")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return org.Organization{}, org.ErrNotFound
	}
	return repo.GetOrganizationByID(ctx, o.ID)
}

func (repo *orgRepository) DeleteOrganizationsByID(ctx context.Context, ids ...int) error {
	query, args, err := sqlx.In(`DELETE FROM organization WHERE id IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "deleting organizations")
	}
	if _, err = repo.db.ExecContext(ctx, repo.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "deleting organizations")
	}
	return nil
}
