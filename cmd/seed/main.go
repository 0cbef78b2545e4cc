// Command seed loads categories and demo content into the photoshare database.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"photoshare/internal/bootstrap"
	"photoshare/internal/config"
	"photoshare/internal/seed"
)

const usage = `Usage:
  go run ./cmd/seed categories [-file categories.yml]
  go run ./cmd/seed demo [-users 10] [-photos 40] [-clean] [-fast]
`

var errUsage = errors.New("invalid usage")

func main() {
	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()
	rt, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{ApplySchema: true, SkipBlobs: true})
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}

	if err := run(ctx, rt, os.Args[1:], os.Stdout); err != nil {
		_ = rt.Close(ctx)
		if errors.Is(err, errUsage) {
			fmt.Print(usage)
			os.Exit(2)
		}
		log.Fatalf("Seeding failed: %v", err)
	}
	_ = rt.Close(ctx)
}

func run(ctx context.Context, rt *bootstrap.Runtime, args []string, out io.Writer) error {
	switch args[0] {
	case "categories":
		fs := flag.NewFlagSet("categories", flag.ContinueOnError)
		fs.SetOutput(out)
		file := fs.String("file", "", "YAML file with a categories list (defaults to the built-in set)")
		if err := fs.Parse(args[1:]); err != nil {
			return errUsage
		}

		defs := seed.DefaultCategories
		if *file != "" {
			loaded, err := seed.LoadCategoryFile(*file)
			if err != nil {
				return err
			}
			defs = loaded
		}

		created, err := rt.Categories().Seed(ctx, defs)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%d categories created\n", created)

	case "demo":
		fs := flag.NewFlagSet("demo", flag.ContinueOnError)
		fs.SetOutput(out)
		opts := seed.Options{}
		fs.IntVar(&opts.NumUsers, "users", 10, "Number of users to create")
		fs.IntVar(&opts.NumPhotos, "photos", 40, "Number of photos to create")
		fs.IntVar(&opts.MaxComments, "comments", 4, "Maximum comments per photo")
		fs.IntVar(&opts.MaxLikes, "likes", 8, "Maximum likes per photo")
		fs.BoolVar(&opts.ShouldClean, "clean", false, "Remove existing users and content first")
		fs.BoolVar(&opts.SkipBcrypt, "fast", false, "Store the demo password unhashed (accounts cannot log in)")
		fs.Int64Var(&opts.Seed, "seed", 0, "Random seed for reproducible data")
		if err := fs.Parse(args[1:]); err != nil {
			return errUsage
		}

		// photos need somewhere to go
		if _, err := rt.Categories().Seed(ctx, seed.DefaultCategories); err != nil {
			return err
		}
		res, err := seed.Demo(ctx, rt.DB, opts)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "created %d users, %d photos, %d comments, %d likes\n",
			res.Users, res.Photos, res.Comments, res.Likes)
		if !opts.SkipBcrypt {
			fmt.Fprintf(out, "all demo users have the password: %s\n", seed.DemoPassword)
		}

	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}
	return nil
}
