package org

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/shieldhq/shield/core"
)

// Organization is an account that takes Shield self-assessments.
// Accounts flagged IsAdmin belong to Shield staff and may manage the catalog
// and approve score results.
type Organization struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	ContactName  string    `json:"contact_name"`
	Email        string    `json:"email"`
	IsActive     *bool     `json:"is_active"`
	IsAdmin      bool      `json:"is_admin"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
	LastLogin    time.Time `json:"last_login"` // UTC
}

func (o *Organization) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	o.PasswordHash = hash
	return nil
}

func (o *Organization) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(o.PasswordHash, []byte(pwd))
}

// NewOrganization contains information needed to register a new Organization.
type NewOrganization struct {
	Name            string `json:"name" validate:"required"`
	ContactName     string `json:"contact_name"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (no *NewOrganization) Validate(ctx context.Context, validate Validator, svc *Service) error {
	no.Name = core.CleanString(no.Name)
	no.ContactName = core.CleanString(no.ContactName)
	no.Email = core.CleanString(no.Email, true /* lower */)

	if err := validate.Struct(no); err != nil {
		return err
	}
	return svc.CheckEmailUniqueness(ctx, no.Email)
}

// UpdateOrganization defines what information may be provided to modify an
// existing Organization.
type UpdateOrganization struct {
	Name            string `json:"name"`
	ContactName     string `json:"contact_name"`
	Email           string `json:"email" validate:"omitempty,email"`
	IsActive        *bool  `json:"is_active"`
	Password        string `json:"password" validate:"omitempty,min=8"`
	PasswordConfirm string `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

func (uo *UpdateOrganization) Validate(ctx context.Context, orig Organization, validate Validator, svc *Service) error {
	name := core.CleanString(uo.Name)
	if name != "" {
		uo.Name = name
	} else {
		uo.Name = orig.Name
	}
	uo.ContactName = core.CleanString(uo.ContactName)

	email := core.CleanString(uo.Email, true /* lower */)
	if email != "" {
		uo.Email = email
	} else {
		uo.Email = orig.Email
	}

	if err := validate.Struct(uo); err != nil {
		return err
	}
	return svc.CheckEmailUniqueness(ctx, uo.Email, orig)
}

type ResetPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required,min=8"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp ResetPassword) Validate(validate Validator) error { return validate.Struct(rp) }

// Validator is the subset of validator.Validate the org payloads need.
type Validator interface {
	Struct(s interface{}) error
}
