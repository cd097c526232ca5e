package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strings"
	"time"

	"github.com/dimasfh/sociagram/internal/app/repositories"
	"github.com/dimasfh/sociagram/internal/domain/post"
	"github.com/dimasfh/sociagram/internal/domain/user"
	"github.com/dimasfh/sociagram/pkg/logger"
	"github.com/dimasfh/sociagram/pkg/storage"
)

type UserService struct {
	users   repositories.UserRepository
	posts   repositories.PostRepository
	storage storage.Service
	log     logger.Log
}

func NewUserService(users repositories.UserRepository, posts repositories.PostRepository, store storage.Service, log logger.Log) *UserService {
	return &UserService{users: users, posts: posts, storage: store, log: log}
}

// Profile is the full profile page payload: the user's public fields plus
// their follow graph and post collections.
type Profile struct {
	ID              string         `json:"_id"`
	FullName        string         `json:"fullname"`
	Username        string         `json:"username"`
	Slug            string         `json:"slug"`
	Email           string         `json:"email"`
	ProfilePicture  string         `json:"profilePicture"`
	ProfileBio      string         `json:"profileBio,omitempty"`
	Birthday        *time.Time     `json:"birthday,omitempty"`
	Address         string         `json:"address,omitempty"`
	Followers       []user.Summary `json:"followers"`
	Followings      []user.Summary `json:"followings"`
	Posts           []post.View    `json:"posts"`
	SavedPosts      []post.View    `json:"savedPosts"`
	TotalPosts      int            `json:"totalPosts"`
	TotalFollowers  int            `json:"totalFollowers"`
	TotalFollowings int            `json:"totalFollowings"`
	IsFollowed      bool           `json:"isFollowed"`
	CreatedAt       time.Time      `json:"createdAt"`
}

func (s *UserService) List(ctx context.Context) ([]user.Summary, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]user.Summary, 0, len(users))
	for _, u := range users {
		out = append(out, u.Summary())
	}
	return out, nil
}

func (s *UserService) Search(ctx context.Context, query string, limit int) ([]user.Summary, error) {
	if strings.TrimSpace(query) == "" {
		return []user.Summary{}, nil
	}
	users, err := s.users.Search(ctx, strings.TrimSpace(query), limit)
	if err != nil {
		return nil, err
	}
	out := make([]user.Summary, 0, len(users))
	for _, u := range users {
		out = append(out, u.Summary())
	}
	return out, nil
}

// Profile assembles the profile page for the user behind slug. requesterID may
// be empty for anonymous viewers; IsFollowed is false in that case.
func (s *UserService) Profile(ctx context.Context, slug, requesterID string) (*Profile, error) {
	u, err := s.users.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	followerIDs, err := s.users.FollowerIDs(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	followingIDs, err := s.users.FollowingIDs(ctx, u.ID)
	if err != nil {
		return nil, err
	}

	followers, err := s.summaries(ctx, followerIDs)
	if err != nil {
		return nil, err
	}
	followings, err := s.summaries(ctx, followingIDs)
	if err != nil {
		return nil, err
	}

	ownPosts, err := s.posts.ListByAuthor(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	savedPosts, err := s.posts.ListSavedBy(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	postViews, err := buildPostViews(ctx, s.users, ownPosts)
	if err != nil {
		return nil, err
	}
	savedViews, err := buildPostViews(ctx, s.users, savedPosts)
	if err != nil {
		return nil, err
	}

	isFollowed := false
	if requesterID != "" && requesterID != u.ID {
		isFollowed, err = s.users.IsFollowing(ctx, requesterID, u.ID)
		if err != nil {
			return nil, err
		}
	}

	return &Profile{
		ID:              u.ID,
		FullName:        u.FullName,
		Username:        u.Username,
		Slug:            u.Slug,
		Email:           u.Email,
		ProfilePicture:  u.ProfilePicture,
		ProfileBio:      u.ProfileBio,
		Birthday:        u.Birthday,
		Address:         u.Address,
		Followers:       followers,
		Followings:      followings,
		Posts:           postViews,
		SavedPosts:      savedViews,
		TotalPosts:      len(postViews),
		TotalFollowers:  len(followers),
		TotalFollowings: len(followings),
		IsFollowed:      isFollowed,
		CreatedAt:       u.CreatedAt,
	}, nil
}

func (s *UserService) Followers(ctx context.Context, slug string) ([]user.Summary, error) {
	u, err := s.users.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	ids, err := s.users.FollowerIDs(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	return s.summaries(ctx, ids)
}

func (s *UserService) Followings(ctx context.Context, slug string) ([]user.Summary, error) {
	u, err := s.users.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	ids, err := s.users.FollowingIDs(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	return s.summaries(ctx, ids)
}

func (s *UserService) Follow(ctx context.Context, requesterID, targetID string) error {
	if requesterID == targetID {
		return ErrForbidden
	}
	if _, err := s.users.GetByID(ctx, targetID); err != nil {
		return err
	}
	following, err := s.users.IsFollowing(ctx, requesterID, targetID)
	if err != nil {
		return err
	}
	if following {
		return ErrAlreadyFollowing
	}
	if err := s.users.Follow(ctx, requesterID, targetID); err != nil {
		return err
	}
	s.log.Infof("user %s followed %s", requesterID, targetID)
	return nil
}

func (s *UserService) Unfollow(ctx context.Context, requesterID, targetID string) error {
	if requesterID == targetID {
		return ErrForbidden
	}
	if _, err := s.users.GetByID(ctx, targetID); err != nil {
		return err
	}
	following, err := s.users.IsFollowing(ctx, requesterID, targetID)
	if err != nil {
		return err
	}
	if !following {
		return ErrNotFollowing
	}
	return s.users.Unfollow(ctx, requesterID, targetID)
}

type EditUserInput struct {
	FullName   string     `json:"fullname"`
	Username   string     `json:"username"`
	ProfileBio string     `json:"profileBio"`
	Birthday   *time.Time `json:"birthday"`
	Address    string     `json:"address"`
}

// Edit updates the requester's own profile fields. Changing the username also
// re-derives the slug.
func (s *UserService) Edit(ctx context.Context, requesterID string, in EditUserInput) (*user.User, error) {
	u, err := s.users.GetByID(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	if v := strings.TrimSpace(in.FullName); v != "" {
		u.FullName = v
	}
	if v := strings.TrimSpace(in.Username); v != "" && v != u.Username {
		if existing, err := s.users.GetByUsername(ctx, v); err == nil && existing.ID != u.ID {
			return nil, repositories.ErrUserAlreadyExists
		} else if err != nil && !errors.Is(err, repositories.ErrUserNotFound) {
			return nil, err
		}
		u.Username = v
		u.Slug = Slugify(v)
	}
	if in.ProfileBio != "" {
		u.ProfileBio = in.ProfileBio
	}
	if in.Birthday != nil {
		u.Birthday = in.Birthday
	}
	if in.Address != "" {
		u.Address = in.Address
	}
	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// EditProfilePicture stores the uploaded image and points the profile at it.
// The previous picture is removed from storage unless it is the default.
func (s *UserService) EditProfilePicture(ctx context.Context, requesterID string, file multipart.File, header *multipart.FileHeader) (*user.User, error) {
	u, err := s.users.GetByID(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	ext := strings.ToLower(strings.TrimPrefix(fileExt(header.Filename), "."))
	if ext != "jpg" && ext != "jpeg" && ext != "png" {
		return nil, ErrUnsupportedMediaType
	}

	key := storage.UniqueKey(header.Filename)
	url, err := s.storage.PutObject(ctx, storage.UploadInput{
		Key:         key,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
		Size:        header.Size,
	})
	if err != nil {
		return nil, fmt.Errorf("store profile picture: %w", err)
	}

	old := u.ProfilePicture
	u.ProfilePicture = url
	if err := s.users.Update(ctx, u); err != nil {
		if delErr := s.storage.DeleteObject(ctx, key); delErr != nil {
			s.log.Warnf("rollback profile picture %s: %v", key, delErr)
		}
		return nil, err
	}
	s.deleteStoredPicture(ctx, old)
	return u, nil
}

// RemoveProfilePicture resets the profile picture to the default.
func (s *UserService) RemoveProfilePicture(ctx context.Context, requesterID string) (*user.User, error) {
	u, err := s.users.GetByID(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	old := u.ProfilePicture
	u.ProfilePicture = user.DefaultProfilePicture
	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}
	s.deleteStoredPicture(ctx, old)
	return u, nil
}

func (s *UserService) deleteStoredPicture(ctx context.Context, url string) {
	if url == "" || url == user.DefaultProfilePicture {
		return
	}
	key := url
	if i := strings.LastIndex(url, "/"); i >= 0 {
		key = url[i+1:]
	}
	if err := s.storage.DeleteObject(ctx, key); err != nil {
		s.log.Warnf("delete old profile picture %s: %v", key, err)
	}
}

func (s *UserService) summaries(ctx context.Context, ids []string) ([]user.Summary, error) {
	byID, err := s.users.SummariesByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]user.Summary, 0, len(ids))
	for _, id := range ids {
		if sum, ok := byID[id]; ok {
			out = append(out, sum)
		}
	}
	return out, nil
}
