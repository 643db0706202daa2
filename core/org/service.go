package org

import (
	"context"
	"errors"
	"net/mail"
	"time"

	"github.com/shieldhq/shield/core"
)

var (
	// errors
	ErrNotFound    = errors.New("organization not found")
	ErrEmailExists = errors.New("an organization with this email already exists")
)

type (
	Repository interface {
		CheckEmailUniqueness(ctx context.Context, email string, excluded ...Organization) error
		CreateOrganization(ctx context.Context, o Organization) (Organization, error)
		QueryAllOrganizations(ctx context.Context) ([]Organization, error)
		GetOrganizationByID(ctx context.Context, id int) (Organization, error)
		GetOrganizationByEmail(ctx context.Context, email string) (Organization, error)
		UpdateOrganization(ctx context.Context, o Organization, isActive *bool) (Organization, error)
		DeleteOrganizationsByID(ctx context.Context, ids ...int) error
	}

	Service struct {
		repo    Repository
		mailSvc core.EmailService
		conf    *core.Config
	}
)

func NewService(repo Repository, mailSvc core.EmailService, conf *core.Config) *Service {
	return &Service{repo: repo, mailSvc: mailSvc, conf: conf}
}

func (svc *Service) CheckEmailUniqueness(ctx context.Context, email string, excluded ...Organization) error {
	if err := svc.repo.CheckEmailUniqueness(ctx, email, excluded...); err != nil {
		if err == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, no NewOrganization, isAdmin ...bool) (Organization, error) {
	now := time.Now().UTC()
	active := true
	o := Organization{
		Name:        no.Name,
		ContactName: no.ContactName,
		Email:       no.Email,
		IsActive:    &active,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if len(isAdmin) > 0 {
		o.IsAdmin = isAdmin[0]
	}
	if err := o.SetPassword(no.Password); err != nil {
		return Organization{}, err
	}
	return svc.repo.CreateOrganization(ctx, o)
}

func (svc *Service) QueryAll(ctx context.Context) ([]Organization, error) {
	return svc.repo.QueryAllOrganizations(ctx)
}

func (svc *Service) GetByID(ctx context.Context, id int) (Organization, error) {
	return svc.repo.GetOrganizationByID(ctx, id)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (Organization, error) {
	return svc.repo.GetOrganizationByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *Service) Update(ctx context.Context, id int, uo UpdateOrganization) (Organization, error) {
	o := Organization{
		ID:          id,
		Name:        uo.Name,
		ContactName: uo.ContactName,
		Email:       uo.Email,
		UpdatedAt:   time.Now().UTC(),
	}
	if uo.Password != "" {
		if err := o.SetPassword(uo.Password); err != nil {
			return Organization{}, err
		}
	}
	return svc.repo.UpdateOrganization(ctx, o, uo.IsActive)
}

func (svc *Service) SetLastLogin(ctx context.Context, o Organization) (Organization, error) {
	o.LastLogin = time.Now().UTC()
	o.UpdatedAt = o.LastLogin
	return svc.repo.UpdateOrganization(ctx, o, nil)
}

func (svc *Service) Delete(ctx context.Context, ids ...int) error {
	return svc.repo.DeleteOrganizationsByID(ctx, ids...)
}

// RequestPasswordReset emails a reset link carrying a signed, expiring token.
func (svc *Service) RequestPasswordReset(ctx context.Context, email string) error {
	o, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if o.IsActive != nil && !*o.IsActive {
		return ErrNotFound
	}

	token, err := MakeToken(svc.conf, o)
	if err != nil {
		return err
	}

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: o.Name, Address: o.Email}},
		Subject:      "Password Reset",
		TemplateName: "password-reset",
		TemplateData: struct {
			Name  string
			UID   string
			Token string
		}{o.Name, EncodeUID(o), token},
	})
	return nil
}

// ResetPassword sets a new password after verifying the emailed token.
func (svc *Service) ResetPassword(ctx context.Context, rp ResetPassword) error {
	id, err := decodeUID(rp.UID)
	if err != nil {
		return core.NewValidationError(errors.New("invalid reset link"))
	}
	o, err := svc.GetByID(ctx, id)
	if err != nil {
		return core.NewValidationError(errors.New("invalid reset link"))
	}
	if err := verifyToken(svc.conf, o, rp.Token); err != nil {
		return core.NewValidationError(err)
	}

	if err := o.SetPassword(rp.Password); err != nil {
		return err
	}
	o.UpdatedAt = time.Now().UTC()
	_, err = svc.repo.UpdateOrganization(ctx, o, nil)
	return err
}
