// Package seed creates demo users, posts and likes for development
// databases. It is not used by the server itself.
package seed

import (
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"snapfeed/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/samber/lo"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is shared by every seeded account.
const DefaultPassword = "password123"

// Options controls how much data Run creates.
type Options struct {
	Users        int
	PostsPerUser int
	// LikeRatio is the chance, from 0 to 1, that a user likes a given post.
	LikeRatio float64
	MaxDays   int
	// SkipBcrypt stores a cheap hash; only meant for tests.
	SkipBcrypt bool
	Seed       int64
}

// DefaultOptions returns the sizes used by cmd/seed.
func DefaultOptions() Options {
	return Options{Users: 20, PostsPerUser: 5, LikeRatio: 0.3, MaxDays: 60}
}

// Result summarises one Run.
type Result struct {
	Users []*models.User
	Posts []*models.Post
	Likes int
}

// Factory builds and persists domain entities with fake content.
type Factory struct {
	db   *gorm.DB
	opts Options
	fake *gofakeit.Faker
	rnd  *rand.Rand
	hash string
}

// NewFactory creates a Factory bound to db. A zero Seed picks a random one.
func NewFactory(db *gorm.DB, opts Options) (*Factory, error) {
	if opts.Seed == 0 {
		opts.Seed = time.Now().UnixNano()
	}
	if opts.MaxDays <= 0 {
		opts.MaxDays = 60
	}

	cost := bcrypt.DefaultCost
	if opts.SkipBcrypt {
		cost = bcrypt.MinCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), cost)
	if err != nil {
		return nil, fmt.Errorf("hash seed password: %w", err)
	}

	return &Factory{
		db:   db,
		opts: opts,
		fake: gofakeit.New(opts.Seed),
		rnd:  rand.New(rand.NewSource(opts.Seed)),
		hash: string(hash),
	}, nil
}

// CreateUser persists a user with a fake identity. Overrides run before the insert.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	user := &models.User{
		Name:     f.fake.Name(),
		Username: fmt.Sprintf("%s%d", f.fake.Username(), f.fake.Number(100, 999)),
		Email:    f.fake.Email(),
		Password: f.hash,
		Age:      f.fake.Number(18, 80),
	}
	for _, override := range overrides {
		override(user)
	}
	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// BuildPost returns an unsaved text post for user with a backdated timestamp.
func (f *Factory) BuildPost(user *models.User) *models.Post {
	back := time.Duration(f.rnd.Intn(f.opts.MaxDays*24*60)) * time.Minute
	created := time.Now().Add(-back)
	return &models.Post{
		UserID:    user.ID,
		Content:   f.fake.Sentence(f.rnd.Intn(20) + 5),
		CreatedAt: created,
		UpdatedAt: created,
	}
}

// CreatePosts persists posts in a single insert.
func (f *Factory) CreatePosts(posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	return f.db.Create(&posts).Error
}

// Like records that user likes post. Duplicate likes are ignored.
func (f *Factory) Like(user *models.User, post *models.Post) error {
	return f.db.Where(models.Like{UserID: user.ID, PostID: post.ID}).
		FirstOrCreate(&models.Like{}).Error
}

// Run seeds users, their posts, and random likes across all posts.
func (f *Factory) Run(log *slog.Logger) (*Result, error) {
	res := &Result{}
	for i := 0; i < f.opts.Users; i++ {
		user, err := f.CreateUser()
		if err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		res.Users = append(res.Users, user)
	}

	for _, user := range res.Users {
		posts := lo.Times(f.opts.PostsPerUser, func(int) *models.Post { return f.BuildPost(user) })
		if err := f.CreatePosts(posts); err != nil {
			return nil, fmt.Errorf("create posts: %w", err)
		}
		res.Posts = append(res.Posts, posts...)
	}

	for _, user := range res.Users {
		for _, post := range res.Posts {
			if f.rnd.Float64() >= f.opts.LikeRatio {
				continue
			}
			if err := f.Like(user, post); err != nil {
				return nil, fmt.Errorf("create like: %w", err)
			}
			res.Likes++
		}
	}

	if log != nil {
		log.Info("seed complete",
			slog.Int("users", len(res.Users)),
			slog.Int("posts", len(res.Posts)),
			slog.Int("likes", res.Likes))
	}
	return res, nil
}

// ClearAll removes every row, children first.
func ClearAll(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		for _, m := range []any{&models.Like{}, &models.PostImage{}, &models.Post{}, &models.User{}} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(m).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
