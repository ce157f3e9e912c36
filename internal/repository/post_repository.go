package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"blogserver/internal/model"
)

// PostRepository defines post persistence operations.
type PostRepository interface {
	Create(ctx context.Context, post *model.Post) error
	Update(ctx context.Context, post *model.Post) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Post, error)
	// List returns every post, most recently updated first.
	List(ctx context.Context) ([]model.Post, error)
	// ListByCategory returns a category's posts, most recently created first.
	ListByCategory(ctx context.Context, category string) ([]model.Post, error)
	// ListByCreator returns a user's posts, most recently updated first.
	ListByCreator(ctx context.Context, creatorID uuid.UUID) ([]model.Post, error)
	// WithTransaction runs fn with post and user repositories bound to one transaction.
	WithTransaction(ctx context.Context, fn func(ctx context.Context, posts PostRepository, users UserRepository) error) error
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository.
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

// Create creates a new post.
func (r *postRepository) Create(ctx context.Context, post *model.Post) error {
	return r.db.WithContext(ctx).Create(post).Error
}

// Update writes the editable fields of an existing post.
func (r *postRepository) Update(ctx context.Context, post *model.Post) error {
	return r.db.WithContext(ctx).Model(&model.Post{}).
		Where("id = ?", post.ID).
		Updates(map[string]any{
			"title":       post.Title,
			"category":    post.Category,
			"description": post.Description,
			"thumbnail":   post.Thumbnail,
		}).Error
}

// Delete removes a post, returning gorm.ErrRecordNotFound when nothing matched.
func (r *postRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Post{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// FindByID finds a post by ID.
func (r *postRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Post, error) {
	var post model.Post
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&post).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) List(ctx context.Context) ([]model.Post, error) {
	posts := []model.Post{}
	if err := r.db.WithContext(ctx).Order("updated_at DESC").Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

func (r *postRepository) ListByCategory(ctx context.Context, category string) ([]model.Post, error) {
	posts := []model.Post{}
	if err := r.db.WithContext(ctx).
		Where("category = ?", category).
		Order("created_at DESC").
		Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

func (r *postRepository) ListByCreator(ctx context.Context, creatorID uuid.UUID) ([]model.Post, error) {
	posts := []model.Post{}
	if err := r.db.WithContext(ctx).
		Where("creator_id = ?", creatorID).
		Order("updated_at DESC").
		Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

// WithTransaction executes a function within a database transaction.
func (r *postRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context, posts PostRepository, users UserRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &postRepository{db: tx}, &userRepository{db: tx})
	})
}
