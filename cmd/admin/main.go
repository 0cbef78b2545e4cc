// Package main provides admin management utilities for photoshare.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"photoshare/internal/bootstrap"
	"photoshare/internal/config"
	"photoshare/internal/models"
)

const usage = `Usage:
  go run ./cmd/admin promote <email>      - Promote user to admin
  go run ./cmd/admin demote <email>       - Demote admin to user
  go run ./cmd/admin list-admins          - List all admins
  go run ./cmd/admin seed-admin           - Ensure SEED_ADMIN_EMAIL is an admin
  go run ./cmd/admin cleanup-orphans      - Remove orphaned records and blobs
`

var errUsage = errors.New("invalid usage")

func main() {
	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()
	rt, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{
		ApplySchema: true,
		// only cleanup-orphans touches the blob store
		SkipBlobs: os.Args[1] != "cleanup-orphans",
	})
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer func() { _ = rt.Close(ctx) }()

	if err := run(ctx, rt, cfg, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Print(usage)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %s\n", models.PublicMessage(err))
		}
		_ = rt.Close(ctx)
		os.Exit(1)
	}
}

func run(ctx context.Context, rt *bootstrap.Runtime, cfg *config.Config, args []string, out io.Writer) error {
	users := rt.Users(cfg)

	switch args[0] {
	case "promote", "demote":
		if len(args) < 2 {
			return errUsage
		}
		role := models.RoleAdmin
		if args[0] == "demote" {
			role = models.RoleUser
		}
		user, err := users.SetRoleByEmail(ctx, args[1], role)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s (ID: %d) is now %s\n", user.Email, user.ID, user.Role)

	case "list-admins":
		admins, err := users.ListAdmins(ctx)
		if err != nil {
			return err
		}
		if len(admins) == 0 {
			fmt.Fprintln(out, "No admins found")
			return nil
		}
		for _, admin := range admins {
			fmt.Fprintf(out, "ID: %d | Name: %s | Email: %s\n", admin.ID, admin.Name, admin.Email)
		}

	case "seed-admin":
		if cfg.SeedAdminEmail == "" || cfg.SeedAdminPassword == "" {
			return errors.New("SEED_ADMIN_EMAIL and SEED_ADMIN_PASSWORD must be set")
		}
		user, created, err := users.SeedAdmin(ctx, "Admin", cfg.SeedAdminEmail, cfg.SeedAdminPassword)
		if err != nil {
			return err
		}
		if created {
			fmt.Fprintf(out, "Created admin %s (ID: %d)\n", user.Email, user.ID)
		} else {
			fmt.Fprintf(out, "Admin %s (ID: %d) already exists\n", user.Email, user.ID)
		}

	case "cleanup-orphans":
		if rt.Blobs == nil {
			return errors.New("blob store is not configured")
		}
		report, err := rt.Reconciler().Run(ctx)
		if err != nil {
			return err
		}
		counts := report.Counts()
		for _, kind := range []string{"photos", "comments", "likes", "recategorized", "blobs"} {
			fmt.Fprintf(out, "%-14s %d\n", kind, counts[kind])
		}
		if report.BlobsSkipped {
			fmt.Fprintln(out, "blob sweep skipped: storage listing unavailable")
		}

	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}
	return nil
}
