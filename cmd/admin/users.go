package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"

	"go-gin-auth-backend/internal/domain"
	"go-gin-auth-backend/internal/service"
)

func usersCmd() *cli.Command {
	return &cli.Command{
		Name:    "users",
		Aliases: []string{"u"},
		Usage:   "Inspect or remove user records directly in the configured store",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List users, newest first",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Print JSON instead of a table"},
				},
				Action: func(c *cli.Context) error {
					return withUsers(c, func(s *service.UserService) error {
						users, err := s.List(c.Context)
						if err != nil {
							return err
						}
						return printUsers(c.App.Writer, users, c.Bool("json"))
					})
				},
			},
			{
				Name:      "delete",
				Usage:     "Delete a user by id",
				ArgsUsage: "<id>",
				Action: func(c *cli.Context) error {
					id := c.Args().First()
					if id == "" || c.Args().Len() > 1 {
						return errors.New("usage: users delete <id>")
					}
					return withUsers(c, func(s *service.UserService) error {
						if err := s.Delete(c.Context, id); err != nil {
							if errors.Is(err, service.ErrUserNotFound) {
								return fmt.Errorf("no user with id %q", id)
							}
							return err
						}
						_, err := fmt.Fprintf(c.App.Writer, "deleted %s\n", id)
						return err
					})
				},
			},
		},
	}
}

func withUsers(c *cli.Context, fn func(*service.UserService) error) error {
	env, err := bootstrap(c)
	if err != nil {
		return err
	}
	defer env.Close()
	store, err := env.OpenStore(c.Context)
	if err != nil {
		return err
	}
	return fn(service.NewUserService(store))
}

func printUsers(w io.Writer, users []domain.User, asJSON bool) error {
	if asJSON {
		views := make([]domain.ProfileView, 0, len(users))
		for _, u := range users {
			views = append(views, u.ProfileView())
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(views)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tEMAIL\tNAME\tCREATED\tLAST LOGIN")
	for _, u := range users {
		last := "-"
		if u.LastLogin != nil {
			last = u.LastLogin.Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", u.ID, u.Email, u.Name, u.CreatedAt.Format(time.RFC3339), last)
	}
	return tw.Flush()
}
