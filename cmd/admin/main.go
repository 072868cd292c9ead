package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	_ "go.uber.org/automaxprocs"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"go-gin-auth-backend/internal/app"
)

func main() {
	_ = godotenv.Load()
	cliApp := &cli.App{
		Name:  "auth-admin",
		Usage: "Administer the auth backend user store",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML config file",
				EnvVars: []string{"CONFIG_PATH"},
			},
		},
		Commands: []*cli.Command{
			serveCmd(),
			usersCmd(),
		},
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	if err := cliApp.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "auth-admin:", err)
		os.Exit(1)
	}
}

// bootstrap loads the shared config. Admin commands never sign tokens so
// the JWT secrets are not required.
func bootstrap(c *cli.Context) (*app.Env, error) {
	return app.Bootstrap(c.String("config"), false)
}
