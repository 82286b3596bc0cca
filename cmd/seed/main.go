// Command seed fills the configured database with demo data.
package main

import (
	"context"
	"flag"
	"log"

	"snapshare/internal/bootstrap"
	"snapshare/internal/config"
	"snapshare/internal/seed"
)

func main() {
	defaults := seed.DefaultOptions()
	numUsers := flag.Int("users", defaults.Users, "Number of users to create")
	numPosts := flag.Int("posts", defaults.Posts, "Number of posts to create")
	follows := flag.Int("follows", defaults.FollowsPerUser, "Follow attempts per user")
	favorites := flag.Int("favorites", defaults.FavoritesPerUser, "Favorite attempts per user")
	comments := flag.Int("comments", defaults.CommentsPerPost, "Maximum comments per post")
	shouldClean := flag.Bool("clean", defaults.Clean, "Clean database before seeding")
	randSeed := flag.Int64("seed", 0, "Random seed (0 for random)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, _, err := bootstrap.InitRuntime(cfg, bootstrap.Options{SkipRedis: true})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	s := seed.NewSeeder(db, cfg.JWTSecret, *randSeed)
	sum, err := s.Run(context.Background(), seed.Options{
		Users:            *numUsers,
		Posts:            *numPosts,
		FollowsPerUser:   *follows,
		FavoritesPerUser: *favorites,
		CommentsPerPost:  *comments,
		Clean:            *shouldClean,
	})
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Seeded %d users, %d posts, %d follows, %d favorites, %d comments (password %q)",
		sum.Users, sum.Posts, sum.Follows, sum.Favorites, sum.Comments, seed.DemoPassword)
}
