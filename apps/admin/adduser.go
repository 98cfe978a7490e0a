package main

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/studyplan/core"
	"github.com/trezcool/studyplan/core/user"
)

// addUser creates an active user.User, or reactivates the existing one and resets its password.
func (cli *commandLine) addUser(name, email, pwd string) error {
	ctx := context.Background()
	name = core.CleanString(name)
	email = core.CleanString(email, true /* lower */)
	now := time.Now().UTC()

	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Email: email})
	switch errors.Cause(err) {
	case nil:
		usr.Name = name
		usr.IsActive = true
		usr.UpdatedAt = now
		if err = usr.SetPassword(pwd); err != nil {
			return errors.Wrap(err, "hashing password")
		}
		_, err = cli.usrRepo.UpdateUser(ctx, usr)
		return errors.Wrap(err, "updating user")

	case user.ErrNotFound:
		usr = user.User{
			Name:      name,
			Email:     email,
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err = usr.SetPassword(pwd); err != nil {
			return errors.Wrap(err, "hashing password")
		}
		_, err = cli.usrRepo.CreateUser(ctx, usr)
		return errors.Wrap(err, "creating user")

	default:
		return errors.Wrap(err, "finding user by email")
	}
}
