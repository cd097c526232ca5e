package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dimasfh/sociagram/internal/domain/post"
)

type gormPostRepo struct {
	db *gorm.DB
}

func NewGormPostRepo(db *gorm.DB) (PostRepository, error) {
	if err := db.AutoMigrate(&post.Post{}, &post.Content{}, &post.Like{}, &post.Save{}, &post.Comment{}); err != nil {
		return nil, err
	}
	return &gormPostRepo{db: db}, nil
}

func (r *gormPostRepo) withRelations(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Contents").
		Preload("Likes").
		Preload("Saves").
		Preload("Comments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") })
}

func (r *gormPostRepo) Create(ctx context.Context, p *post.Post) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *gormPostRepo) GetByID(ctx context.Context, id string) (*post.Post, error) {
	var p post.Post
	err := r.withRelations(ctx).Where("id = ?", id).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *gormPostRepo) List(ctx context.Context, limit, offset int) ([]*post.Post, error) {
	var posts []*post.Post
	err := r.withRelations(ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	return posts, err
}

func (r *gormPostRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&post.Post{}).Count(&n).Error
	return n, err
}

func (r *gormPostRepo) ListByAuthors(ctx context.Context, authorIDs []string, limit, offset int) ([]*post.Post, error) {
	if len(authorIDs) == 0 {
		return nil, nil
	}
	var posts []*post.Post
	err := r.withRelations(ctx).
		Where("posted_by_id IN ?", authorIDs).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	return posts, err
}

func (r *gormPostRepo) CountByAuthors(ctx context.Context, authorIDs []string) (int64, error) {
	if len(authorIDs) == 0 {
		return 0, nil
	}
	var n int64
	err := r.db.WithContext(ctx).Model(&post.Post{}).
		Where("posted_by_id IN ?", authorIDs).
		Count(&n).Error
	return n, err
}

func (r *gormPostRepo) ListByAuthor(ctx context.Context, authorID string) ([]*post.Post, error) {
	var posts []*post.Post
	err := r.withRelations(ctx).
		Where("posted_by_id = ?", authorID).
		Order("created_at DESC").
		Find(&posts).Error
	return posts, err
}

func (r *gormPostRepo) ListSavedBy(ctx context.Context, userID string) ([]*post.Post, error) {
	var posts []*post.Post
	err := r.withRelations(ctx).
		Joins("JOIN user_saved_posts ON user_saved_posts.post_id = posts.id").
		Where("user_saved_posts.user_id = ?", userID).
		Order("user_saved_posts.created_at DESC").
		Find(&posts).Error
	return posts, err
}

func (r *gormPostRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, child := range []any{&post.Content{}, &post.Like{}, &post.Save{}, &post.Comment{}} {
			if err := tx.Where("post_id = ?", id).Delete(child).Error; err != nil {
				return err
			}
		}
		res := tx.Where("id = ?", id).Delete(&post.Post{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrPostNotFound
		}
		return nil
	})
}

func (r *gormPostRepo) Like(ctx context.Context, postID, userID string) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&post.Like{PostID: postID, UserID: userID}).Error
}

func (r *gormPostRepo) Unlike(ctx context.Context, postID, userID string) error {
	return r.db.WithContext(ctx).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Delete(&post.Like{}).Error
}

func (r *gormPostRepo) SavePost(ctx context.Context, postID, userID string) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&post.Save{PostID: postID, UserID: userID}).Error
}

func (r *gormPostRepo) UnsavePost(ctx context.Context, postID, userID string) error {
	return r.db.WithContext(ctx).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Delete(&post.Save{}).Error
}

func (r *gormPostRepo) AddComment(ctx context.Context, c *post.Comment) error {
	return r.db.WithContext(ctx).Create(c).Error
}
