package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"blogserver/internal/auth"
	"blogserver/internal/config"
	"blogserver/internal/db"
	"blogserver/internal/logging"
	"blogserver/internal/model"
	"blogserver/internal/repository"
	"blogserver/internal/upload"
)

// SeedFile is the demo content format. Image paths are relative to the file.
type SeedFile struct {
	Authors []SeedAuthor `json:"authors"`
}

// SeedAuthor is one account with its posts.
type SeedAuthor struct {
	Name     string     `json:"name"`
	Email    string     `json:"email"`
	Password string     `json:"password"`
	Avatar   string     `json:"avatar"`
	Posts    []SeedPost `json:"posts"`
}

// SeedPost is one post with a thumbnail image path.
type SeedPost struct {
	Title       string `json:"title"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Thumbnail   string `json:"thumbnail"`
}

type seeder struct {
	users  repository.UserRepository
	posts  repository.PostRepository
	store  *upload.Store
	logger logging.Logger
	base   string
}

func main() {
	path := flag.String("file", envOr("SEED_FILE", "seed/seed.json"), "seed content file")
	flag.Parse()

	cfg := config.Load()
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	ctx := context.Background()

	data, err := loadSeedFile(*path)
	if err != nil {
		log.Fatalf("read seed file: %v", err)
	}

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := gormDB.AutoMigrate(&model.User{}, &model.Post{}); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	store, err := upload.NewStore(upload.Config{
		Dir:               cfg.UploadDir,
		MaxThumbnailBytes: cfg.MaxThumbnailBytes,
		MaxAvatarBytes:    cfg.MaxAvatarBytes,
	}, logger)
	if err != nil {
		log.Fatalf("upload store: %v", err)
	}

	s := &seeder{
		users:  repository.NewUserRepository(gormDB),
		posts:  repository.NewPostRepository(gormDB),
		store:  store,
		logger: logger,
		base:   filepath.Dir(*path),
	}

	created, skipped := 0, 0
	for _, author := range data.Authors {
		ok, err := s.seedAuthor(ctx, author)
		if err != nil {
			log.Fatalf("seed %s: %v", author.Email, err)
		}
		if ok {
			created++
		} else {
			skipped++
		}
	}
	logger.Info(ctx, "seed completed", "created", created, "skipped", skipped)
}

func loadSeedFile(path string) (*SeedFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var data SeedFile
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &data, nil
}

// seedAuthor creates the author and posts. Existing emails are skipped.
func (s *seeder) seedAuthor(ctx context.Context, a SeedAuthor) (bool, error) {
	a.Email = strings.ToLower(strings.TrimSpace(a.Email))
	existing, err := s.users.FindByEmail(ctx, a.Email)
	if err == nil && existing != nil {
		s.logger.Info(ctx, "author exists, skipping", "email", a.Email)
		return false, nil
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	hash, err := auth.HashPassword(a.Password)
	if err != nil {
		return false, err
	}
	user := &model.User{ID: uuid.New(), Name: a.Name, Email: a.Email, PasswordHash: hash}
	if err := s.users.Create(ctx, user); err != nil {
		return false, fmt.Errorf("create user: %w", err)
	}

	if a.Avatar != "" {
		name, err := s.storeImage(ctx, a.Avatar, upload.KindAvatar)
		if err != nil {
			return false, err
		}
		if err := s.users.UpdateAvatar(ctx, user.ID, name); err != nil {
			return false, err
		}
	}

	for _, p := range a.Posts {
		thumb, err := s.storeImage(ctx, p.Thumbnail, upload.KindThumbnail)
		if err != nil {
			return false, err
		}
		post := &model.Post{
			ID:          uuid.New(),
			Title:       p.Title,
			Category:    p.Category,
			Description: p.Description,
			Thumbnail:   thumb,
			CreatorID:   user.ID,
		}
		err = s.posts.WithTransaction(ctx, func(ctx context.Context, posts repository.PostRepository, users repository.UserRepository) error {
			if err := posts.Create(ctx, post); err != nil {
				return err
			}
			return users.AdjustPostCount(ctx, user.ID, 1)
		})
		if err != nil {
			_ = s.store.Remove(thumb)
			return false, fmt.Errorf("create post %q: %w", p.Title, err)
		}
	}

	s.logger.Info(ctx, "author seeded", "email", a.Email, "posts", len(a.Posts))
	return true, nil
}

func (s *seeder) storeImage(ctx context.Context, path string, kind upload.Kind) (string, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.base, path)
	}
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return s.store.SaveReader(ctx, filepath.Base(path), f, kind)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
