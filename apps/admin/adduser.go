package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/eteeap/core/user"
)

// addUser updates or creates an active user. isAdmin grants the admin roles.
func (cli *commandLine) addUser(name, email, pwd string, isAdmin bool) error {
	ctx := context.Background()
	nu := user.NewUser{Name: name, Email: email, Password: pwd, PasswordConfirm: pwd}
	if isAdmin {
		nu.Roles = user.AdminRoles
	}
	nu.Clean()

	usr, err := cli.usrSvc.GetByEmail(ctx, nu.Email)
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return err
		}
		if usr, err = cli.usrSvc.Create(ctx, nu); err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "Created %s (%s)\n", usr.Name, usr.Email)
		return nil
	}

	active := true
	usr, err = cli.usrSvc.Update(ctx, usr.ID, user.UpdateUser{
		Name:            nu.Name,
		Email:           usr.Email,
		IsActive:        &active,
		Roles:           mergeRoles(usr.Roles, nu.Roles),
		Password:        pwd,
		PasswordConfirm: pwd,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Updated %s (%s)\n", usr.Name, usr.Email)
	return nil
}

func mergeRoles(roles, extra []string) []string {
	res := append([]string{}, roles...)
	for _, role := range extra {
		found := false
		for _, r := range res {
			if r == role {
				found = true
				break
			}
		}
		if !found {
			res = append(res, role)
		}
	}
	return res
}
