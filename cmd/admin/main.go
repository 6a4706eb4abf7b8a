// Package main provides superuser management utilities for the blog.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"blogsite/internal/bootstrap"
	"blogsite/internal/config"
	"blogsite/internal/models"
	"blogsite/internal/observability"
)

// passwordEnv names the variable create-superuser reads the password from.
const passwordEnv = "SUPERUSER_PASSWORD"

const usage = `Usage:
  admin promote <username>                  - Grant superuser status
  admin demote <username>                   - Revoke superuser status
  admin list-superusers                     - List all superusers
  admin create-superuser <username> <email> - Create a superuser (password from ` + passwordEnv + `)
`

var errUsage = errors.New("invalid usage")

// accounts is the part of the account service the commands need.
type accounts interface {
	SetSuperuser(ctx context.Context, username string, superuser bool) (*models.User, error)
	ListSuperusers(ctx context.Context) ([]models.User, error)
	CreateSuperuser(ctx context.Context, username, email, password string) (*models.User, error)
}

func main() {
	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	rt, err := bootstrap.InitRuntime(cfg, observability.NewLogger(cfg.Env), bootstrap.Options{SkipTracing: true})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}
	ctx := context.Background()

	err = run(ctx, os.Args[1:], os.Stdout, rt.Users(), os.Getenv)
	_ = rt.Close(ctx)
	if errors.Is(err, errUsage) {
		fmt.Print(usage)
		os.Exit(1)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, args []string, out io.Writer, users accounts, getenv func(string) string) error {
	if len(args) == 0 {
		return errUsage
	}

	switch args[0] {
	case "promote", "demote":
		if len(args) != 2 {
			return errUsage
		}
		grant := args[0] == "promote"
		user, err := users.SetSuperuser(ctx, args[1], grant)
		if err != nil {
			return fmt.Errorf("%s %s: %w", args[0], args[1], err)
		}
		if grant {
			fmt.Fprintf(out, "Promoted %s (ID: %d) to superuser\n", user.Username, user.ID)
		} else {
			fmt.Fprintf(out, "Demoted %s (ID: %d) from superuser\n", user.Username, user.ID)
		}
		return nil

	case "list-superusers":
		superusers, err := users.ListSuperusers(ctx)
		if err != nil {
			return fmt.Errorf("list superusers: %w", err)
		}
		if len(superusers) == 0 {
			fmt.Fprintln(out, "No superusers found")
			return nil
		}
		for _, u := range superusers {
			fmt.Fprintf(out, "ID: %d | Username: %s | Email: %s\n", u.ID, u.Username, u.Email)
		}
		return nil

	case "create-superuser":
		if len(args) != 3 {
			return errUsage
		}
		password := getenv(passwordEnv)
		if password == "" {
			return fmt.Errorf("%s must be set", passwordEnv)
		}
		user, err := users.CreateSuperuser(ctx, args[1], args[2], password)
		if err != nil {
			var appErr *models.AppError
			if errors.As(err, &appErr) && len(appErr.Fields) > 0 {
				return fmt.Errorf("create superuser: %s: %v", appErr.Message, appErr.Fields)
			}
			return fmt.Errorf("create superuser: %w", err)
		}
		fmt.Fprintf(out, "Superuser %s created (ID: %d)\n", user.Username, user.ID)
		return nil

	default:
		return errUsage
	}
}
