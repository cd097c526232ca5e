package repositories

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/dimasfh/sociagram/internal/domain/user"
)

type gormUserRepo struct {
	db *gorm.DB
}

func NewGormUserRepo(db *gorm.DB) (UserRepository, error) {
	if err := db.AutoMigrate(&user.User{}, &user.Follow{}); err != nil {
		return nil, err
	}
	return &gormUserRepo{db: db}, nil
}

func (r *gormUserRepo) Create(ctx context.Context, u *user.User) error {
	err := r.db.WithContext(ctx).Create(u).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrUserAlreadyExists
	}
	return err
}

func (r *gormUserRepo) GetByID(ctx context.Context, id string) (*user.User, error) {
	return r.getBy(ctx, "id = ?", id)
}

func (r *gormUserRepo) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	return r.getBy(ctx, "username = ?", username)
}

func (r *gormUserRepo) GetBySlug(ctx context.Context, slug string) (*user.User, error) {
	return r.getBy(ctx, "slug = ?", slug)
}

func (r *gormUserRepo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.getBy(ctx, "email = ?", email)
}

func (r *gormUserRepo) getBy(ctx context.Context, query string, arg any) (*user.User, error) {
	var u user.User
	err := r.db.WithContext(ctx).Where(query, arg).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *gormUserRepo) List(ctx context.Context) ([]*user.User, error) {
	var users []*user.User
	err := r.db.WithContext(ctx).Order("username ASC").Find(&users).Error
	return users, err
}

// Search matches the username substring case-insensitively. LOWER on both
// sides keeps the behavior identical across postgres and sqlite.
func (r *gormUserRepo) Search(ctx context.Context, query string, limit int) ([]*user.User, error) {
	var users []*user.User
	err := r.db.WithContext(ctx).
		Where("LOWER(username) LIKE ?", "%"+strings.ToLower(query)+"%").
		Order("username ASC").
		Limit(limit).
		Find(&users).Error
	return users, err
}

func (r *gormUserRepo) Update(ctx context.Context, u *user.User) error {
	res := r.db.WithContext(ctx).Model(&user.User{}).Where("id = ?", u.ID).Select(
		"full_name", "username", "slug", "profile_picture", "profile_bio", "birthday", "address", "password",
	).Updates(u)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *gormUserRepo) SummariesByIDs(ctx context.Context, ids []string) (map[string]user.Summary, error) {
	if len(ids) == 0 {
		return map[string]user.Summary{}, nil
	}
	var users []*user.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	out := make(map[string]user.Summary, len(users))
	for _, u := range users {
		out[u.ID] = u.Summary()
	}
	return out, nil
}

func (r *gormUserRepo) Follow(ctx context.Context, followerID, followeeID string) error {
	edge := user.Follow{FollowerID: followerID, FolloweeID: followeeID}
	return r.db.WithContext(ctx).
		Where(&edge).
		FirstOrCreate(&edge).Error
}

func (r *gormUserRepo) Unfollow(ctx context.Context, followerID, followeeID string) error {
	return r.db.WithContext(ctx).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Delete(&user.Follow{}).Error
}

func (r *gormUserRepo) IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&user.Follow{}).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Count(&count).Error
	return count > 0, err
}

func (r *gormUserRepo) FollowerIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&user.Follow{}).
		Where("followee_id = ?", userID).
		Order("created_at ASC").
		Pluck("follower_id", &ids).Error
	return ids, err
}

func (r *gormUserRepo) FollowingIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&user.Follow{}).
		Where("follower_id = ?", userID).
		Order("created_at ASC").
		Pluck("followee_id", &ids).Error
	return ids, err
}
