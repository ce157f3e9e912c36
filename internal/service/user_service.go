package service

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"blogserver/internal/auth"
	"blogserver/internal/cache"
	apperrors "blogserver/internal/errors"
	"blogserver/internal/logging"
	"blogserver/internal/model"
	"blogserver/internal/repository"
	"blogserver/internal/upload"
)

// FileStore persists an uploaded image and returns its generated name.
type FileStore interface {
	Save(ctx context.Context, fh *multipart.FileHeader, kind upload.Kind) (string, error)
}

// FileCleaner removes files that are no longer referenced.
type FileCleaner interface {
	Discard(ctx context.Context, name string)
}

// EditUserInput carries the profile edit form.
type EditUserInput struct {
	Name               string
	Email              string
	CurrentPassword    string
	NewPassword        string
	NewConfirmPassword string
}

// UserService exposes profile operations.
type UserService interface {
	GetUser(ctx context.Context, id uuid.UUID) (*model.User, error)
	ListAuthors(ctx context.Context) ([]model.User, error)
	ChangeAvatar(ctx context.Context, id uuid.UUID, fh *multipart.FileHeader) (*model.User, error)
	EditUser(ctx context.Context, id uuid.UUID, in EditUserInput) (*model.User, error)
}

type userService struct {
	repo    repository.UserRepository
	files   FileStore
	cleaner FileCleaner
	cache   *cache.Client
	logger  logging.Logger
}

// NewUserService builds a UserService with repository, upload store and cache.
func NewUserService(repo repository.UserRepository, files FileStore, cleaner FileCleaner, cache *cache.Client, logger logging.Logger) UserService {
	return &userService{repo: repo, files: files, cleaner: cleaner, cache: cache, logger: logger}
}

func (s *userService) GetUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var cached model.User
	if s.cache.GetJSON(ctx, userCacheKey(id), &cached) {
		return &cached, nil
	}

	user, err := s.findUser(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cache.SetJSON(ctx, userCacheKey(id), user)
	return user, nil
}

func (s *userService) ListAuthors(ctx context.Context) ([]model.User, error) {
	var cached []model.User
	if s.cache.GetJSON(ctx, authorsCacheKey, &cached) && cached != nil {
		return cached, nil
	}

	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list authors: %w", err)
	}

	s.cache.SetJSON(ctx, authorsCacheKey, users)
	return users, nil
}

// ChangeAvatar stores the new image before touching the record, so a rejected
// upload leaves the profile unchanged. The previous avatar is discarded afterwards.
func (s *userService) ChangeAvatar(ctx context.Context, id uuid.UUID, fh *multipart.FileHeader) (*model.User, error) {
	if fh == nil {
		return nil, apperrors.ErrFileMissing
	}

	user, err := s.findUser(ctx, id)
	if err != nil {
		return nil, err
	}

	name, err := s.files.Save(ctx, fh, upload.KindAvatar)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateAvatar(ctx, id, name); err != nil {
		s.cleaner.Discard(ctx, name)
		return nil, fmt.Errorf("update avatar: %w", err)
	}

	previous := user.Avatar
	user.Avatar = name
	s.cleaner.Discard(ctx, previous)
	invalidateUser(ctx, s.cache, id)

	s.logger.Info(ctx, "avatar changed", "user_id", id, "file", name)
	return user, nil
}

func (s *userService) EditUser(ctx context.Context, id uuid.UUID, in EditUserInput) (*model.User, error) {
	name := strings.TrimSpace(in.Name)
	email := normalizeEmail(in.Email)
	if name == "" || email == "" || in.CurrentPassword == "" || in.NewPassword == "" {
		return nil, apperrors.ErrMissingFields
	}

	user, err := s.findUser(ctx, id)
	if err != nil {
		return nil, err
	}

	other, err := s.repo.FindByEmail(ctx, email)
	switch {
	case err == nil && other != nil && other.ID != id:
		return nil, apperrors.ErrEmailExists
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("check email: %w", err)
	}

	if !auth.CheckPassword(user.PasswordHash, in.CurrentPassword) {
		return nil, apperrors.ErrInvalidCurrentPassword
	}
	if !longEnough(in.NewPassword) {
		return nil, apperrors.ErrPasswordTooShort
	}
	if in.NewPassword != in.NewConfirmPassword {
		return nil, apperrors.ErrPasswordMismatch
	}

	hashed, err := auth.HashPassword(in.NewPassword)
	if err != nil {
		return nil, err
	}

	user.Name = name
	user.Email = email
	user.PasswordHash = hashed
	if err := s.repo.Update(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.ErrEmailExists
		}
		return nil, fmt.Errorf("update user: %w", err)
	}

	invalidateUser(ctx, s.cache, id)
	return user, nil
}

func (s *userService) findUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}
