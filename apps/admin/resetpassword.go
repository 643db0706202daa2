package main

import (
	"context"

	"github.com/shieldhq/shield/core/org"
)

func (cli *commandLine) resetPassword(email, pwd string) error {
	ctx := context.Background()
	o, err := cli.orgSvc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	_, err = cli.orgSvc.Update(ctx, o.ID, org.UpdateOrganization{Password: pwd})
	return err
}
