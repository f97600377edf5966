// Command seed fills a development database with demo users and posts.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"

	"snapfeed/internal/config"
	"snapfeed/internal/database"
	"snapfeed/internal/observability"
	"snapfeed/internal/seed"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	defaults := seed.DefaultOptions()
	numUsers := flag.Int("users", defaults.Users, "Number of users to create")
	postsPerUser := flag.Int("posts", defaults.PostsPerUser, "Posts per user")
	likeRatio := flag.Float64("likes", defaults.LikeRatio, "Chance that a user likes a post (0-1)")
	shouldClean := flag.Bool("clean", false, "Delete all existing rows first")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.IsProduction() {
		return errors.New("refusing to seed a production database")
	}
	logger := observability.NewLogger(cfg.Env, cfg.LogLevel)

	db, err := database.Connect(cfg, logger)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() { _ = database.Close(db) }()

	if err := database.Migrate(db); err != nil {
		return err
	}

	if *shouldClean {
		if err := seed.ClearAll(db); err != nil {
			return fmt.Errorf("cleanup failed: %w", err)
		}
	}

	opts := defaults
	opts.Users = *numUsers
	opts.PostsPerUser = *postsPerUser
	opts.LikeRatio = *likeRatio

	f, err := seed.NewFactory(db, opts)
	if err != nil {
		return err
	}
	if _, err := f.Run(logger); err != nil {
		return fmt.Errorf("seeding failed: %w", err)
	}

	log.Printf("All seeded users have the password: %s", seed.DefaultPassword)
	return nil
}
