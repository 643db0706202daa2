package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/shieldhq/shield/core"
	"github.com/shieldhq/shield/core/org"
)

// createOrg updates or creates an org.Organization account.
// Admin rights only apply on creation.
func (cli *commandLine) createOrg(name, email, pwd string, isAdmin bool) error {
	ctx := context.Background()
	name = core.CleanString(name)
	email = core.CleanString(email, true /* lower */)

	o, err := cli.orgSvc.GetByEmail(ctx, email)
	if err != nil {
		if errors.Cause(err) != org.ErrNotFound {
			return err
		}
		_, err = cli.orgSvc.Create(ctx, org.NewOrganization{
			Name:     name,
			Email:    email,
			Password: pwd,
		}, isAdmin)
		return err
	}

	active := true
	_, err = cli.orgSvc.Update(ctx, o.ID, org.UpdateOrganization{
		Name:     name,
		Password: pwd,
		IsActive: &active,
	})
	return err
}
