package service

import (
	"testing"

	"snapfeed/internal/cache"
	"snapfeed/internal/repository"
	"snapfeed/internal/testutil"
	"snapfeed/internal/upload"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db        *gorm.DB
	uploadDir string
	users     *UserService
	posts     *PostService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	dir := t.TempDir()
	store, err := upload.NewStore(upload.Config{Destination: dir, MaxFiles: 6})
	require.NoError(t, err)

	userRepo := repository.NewUserRepository(db, cache.New(nil))
	postRepo := repository.NewPostRepository(db)
	return &fixture{
		db:        db,
		uploadDir: dir,
		users:     NewUserService(userRepo, store, nil, nil),
		posts:     NewPostService(postRepo, store, nil),
	}
}
