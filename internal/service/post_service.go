package service

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"blogserver/internal/cache"
	apperrors "blogserver/internal/errors"
	"blogserver/internal/logging"
	"blogserver/internal/model"
	"blogserver/internal/repository"
	"blogserver/internal/upload"
)

const minDescriptionLength = 12

// PostInput carries the editable text fields of a post.
type PostInput struct {
	Title       string
	Category    string
	Description string
}

func (in PostInput) trimmed() PostInput {
	return PostInput{
		Title:       strings.TrimSpace(in.Title),
		Category:    strings.TrimSpace(in.Category),
		Description: strings.TrimSpace(in.Description),
	}
}

// PostService handles post operations.
type PostService interface {
	Create(ctx context.Context, creatorID uuid.UUID, in PostInput, thumbnail *multipart.FileHeader) (*model.Post, error)
	List(ctx context.Context) ([]model.Post, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Post, error)
	ListByCategory(ctx context.Context, category string) ([]model.Post, error)
	ListByCreator(ctx context.Context, creatorID uuid.UUID) ([]model.Post, error)
	Update(ctx context.Context, callerID, id uuid.UUID, in PostInput, thumbnail *multipart.FileHeader) (*model.Post, error)
	Delete(ctx context.Context, callerID, id uuid.UUID) error
}

type postService struct {
	repo    repository.PostRepository
	files   FileStore
	cleaner FileCleaner
	cache   *cache.Client
	logger  logging.Logger
}

// NewPostService creates a new post service.
func NewPostService(repo repository.PostRepository, files FileStore, cleaner FileCleaner, cache *cache.Client, logger logging.Logger) PostService {
	return &postService{
		repo:    repo,
		files:   files,
		cleaner: cleaner,
		cache:   cache,
		logger:  logger,
	}
}

// Create stores the thumbnail, then inserts the post and bumps the creator's
// counter in one transaction. The thumbnail is discarded if the transaction fails.
func (s *postService) Create(ctx context.Context, creatorID uuid.UUID, in PostInput, thumbnail *multipart.FileHeader) (*model.Post, error) {
	in = in.trimmed()
	if in.Title == "" || in.Category == "" || in.Description == "" || thumbnail == nil {
		return nil, apperrors.ErrMissingPostFields
	}

	name, err := s.files.Save(ctx, thumbnail, upload.KindThumbnail)
	if err != nil {
		return nil, err
	}

	post := &model.Post{
		ID:          uuid.New(),
		Title:       in.Title,
		Category:    in.Category,
		Description: in.Description,
		Thumbnail:   name,
		CreatorID:   creatorID,
	}

	err = s.repo.WithTransaction(ctx, func(ctx context.Context, posts repository.PostRepository, users repository.UserRepository) error {
		if err := posts.Create(ctx, post); err != nil {
			return fmt.Errorf("create post: %w", err)
		}
		return users.AdjustPostCount(ctx, creatorID, 1)
	})
	if err != nil {
		s.cleaner.Discard(ctx, name)
		return nil, err
	}

	invalidateUser(ctx, s.cache, creatorID)
	s.logger.Info(ctx, "post created", "post_id", post.ID, "creator_id", creatorID)
	return post, nil
}

func (s *postService) List(ctx context.Context) ([]model.Post, error) {
	posts, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return posts, nil
}

func (s *postService) Get(ctx context.Context, id uuid.UUID) (*model.Post, error) {
	var cached model.Post
	if s.cache.GetJSON(ctx, postCacheKey(id), &cached) {
		return &cached, nil
	}

	post, err := s.findPost(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cache.SetJSON(ctx, postCacheKey(id), post)
	return post, nil
}

func (s *postService) ListByCategory(ctx context.Context, category string) ([]model.Post, error) {
	posts, err := s.repo.ListByCategory(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("list posts by category: %w", err)
	}
	return posts, nil
}

func (s *postService) ListByCreator(ctx context.Context, creatorID uuid.UUID) ([]model.Post, error) {
	posts, err := s.repo.ListByCreator(ctx, creatorID)
	if err != nil {
		return nil, fmt.Errorf("list posts by creator: %w", err)
	}
	return posts, nil
}

// Update edits a post owned by callerID. A replacement thumbnail is stored
// before the record changes and the old one is discarded only after it does.
func (s *postService) Update(ctx context.Context, callerID, id uuid.UUID, in PostInput, thumbnail *multipart.FileHeader) (*model.Post, error) {
	post, err := s.findPost(ctx, id)
	if err != nil {
		return nil, err
	}
	if !post.OwnedBy(callerID) {
		return nil, apperrors.ErrPostEditForbidden
	}

	in = in.trimmed()
	if in.Title == "" || in.Category == "" || in.Description == "" {
		return nil, apperrors.ErrMissingFields
	}
	if utf8.RuneCountInString(in.Description) < minDescriptionLength {
		return nil, apperrors.ErrDescriptionTooShort
	}

	previous := post.Thumbnail
	if thumbnail != nil {
		name, err := s.files.Save(ctx, thumbnail, upload.KindThumbnail)
		if err != nil {
			return nil, err
		}
		post.Thumbnail = name
	}

	post.Title = in.Title
	post.Category = in.Category
	post.Description = in.Description

	if err := s.repo.Update(ctx, post); err != nil {
		if post.Thumbnail != previous {
			s.cleaner.Discard(ctx, post.Thumbnail)
		}
		return nil, fmt.Errorf("update post: %w", err)
	}

	if post.Thumbnail != previous {
		s.cleaner.Discard(ctx, previous)
	}
	_ = s.cache.Delete(ctx, postCacheKey(id))
	return post, nil
}

// Delete removes a post owned by callerID and decrements the creator's counter
// in one transaction. The thumbnail is discarded once the record is gone.
func (s *postService) Delete(ctx context.Context, callerID, id uuid.UUID) error {
	post, err := s.findPost(ctx, id)
	if err != nil {
		return err
	}
	if !post.OwnedBy(callerID) {
		return apperrors.ErrPostDeleteForbidden
	}

	err = s.repo.WithTransaction(ctx, func(ctx context.Context, posts repository.PostRepository, users repository.UserRepository) error {
		if err := posts.Delete(ctx, id); err != nil {
			return err
		}
		return users.AdjustPostCount(ctx, post.CreatorID, -1)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrPostNotFound
		}
		return fmt.Errorf("delete post: %w", err)
	}

	s.cleaner.Discard(ctx, post.Thumbnail)
	_ = s.cache.Delete(ctx, postCacheKey(id))
	invalidateUser(ctx, s.cache, post.CreatorID)
	s.logger.Info(ctx, "post deleted", "post_id", id)
	return nil
}

func (s *postService) findPost(ctx context.Context, id uuid.UUID) (*model.Post, error) {
	post, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrPostNotFound
		}
		return nil, fmt.Errorf("find post: %w", err)
	}
	return post, nil
}
