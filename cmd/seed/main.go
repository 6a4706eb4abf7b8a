// Command main runs the database seeder for the blog.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"

	"blogsite/internal/bootstrap"
	"blogsite/internal/config"
	"blogsite/internal/observability"
	"blogsite/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 10, "Number of demo users to create")
	postsPerUser := flag.Int("posts", 5, "Number of posts per demo user")
	maxDays := flag.Int("days", 90, "Spread posting dates over this many past days")
	shouldClean := flag.Bool("clean", false, "Remove all users and posts before seeding")
	dryRun := flag.Bool("dry-run", false, "Generate data without writing it")
	fixtures := flag.String("fixtures", "", "YAML fixture file to load instead of fake data")
	randSeed := flag.Int64("seed", 0, "Random seed for reproducible data (0 = random)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := observability.NewLogger(cfg.Env)

	rt, err := bootstrap.InitRuntime(cfg, logger, bootstrap.Options{SkipTracing: true})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}
	ctx := context.Background()
	defer func() { _ = rt.Close(ctx) }()

	if *shouldClean && !*dryRun {
		if err := seed.Clean(ctx, rt.DB); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	if *fixtures != "" {
		fx, err := seed.LoadFixtures(*fixtures)
		if err != nil {
			log.Fatalf("Loading fixtures failed: %v", err)
		}
		result, err := seed.ApplyFixtures(ctx, rt.DB, fx)
		if err != nil {
			log.Fatalf("Applying fixtures failed: %v", err)
		}
		logger.Info("fixtures applied",
			slog.Int("users", result.UsersCreated),
			slog.Int("posts", result.PostsCreated))
		return
	}

	if _, err := seed.Demo(ctx, rt.DB, logger, seed.Options{
		NumUsers:     *numUsers,
		PostsPerUser: *postsPerUser,
		MaxDays:      *maxDays,
		DryRun:       *dryRun,
		Seed:         *randSeed,
	}); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	logger.Info("demo users share one password", slog.String("password", seed.DefaultPassword))
}
