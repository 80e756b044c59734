package main

import (
	"context"
	"fmt"

	"github.com/trezcool/eteeap/core/user"
)

func (cli *commandLine) resetPassword(email, pwd string) error {
	ctx := context.Background()
	usr, err := cli.usrSvc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if _, err := cli.usrSvc.Update(ctx, usr.ID, user.UpdateUser{
		Name:            usr.Name,
		Email:           usr.Email,
		Password:        pwd,
		PasswordConfirm: pwd,
	}); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Password updated for %s\n", usr.Email)
	return nil
}
