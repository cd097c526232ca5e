package services

import (
	"context"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/dimasfh/sociagram/internal/app/repositories"
	"github.com/dimasfh/sociagram/internal/domain/post"
	"github.com/dimasfh/sociagram/internal/domain/user"
	"github.com/dimasfh/sociagram/pkg/cache"
	"github.com/dimasfh/sociagram/pkg/logger"
	"github.com/dimasfh/sociagram/pkg/storage"
)

const (
	// MaxUploadSize caps each uploaded media file.
	MaxUploadSize = 20 << 20

	defaultFeedLimit = 10
)

var allowedMediaExts = map[string]string{
	"jpg":  "image",
	"jpeg": "image",
	"png":  "image",
	"mp4":  "video",
}

type PostService struct {
	posts   repositories.PostRepository
	users   repositories.UserRepository
	storage storage.Service
	cache   *cache.Cache
	log     logger.Log
}

func NewPostService(posts repositories.PostRepository, users repositories.UserRepository, store storage.Service, feedCache *cache.Cache, log logger.Log) *PostService {
	return &PostService{posts: posts, users: users, storage: store, cache: feedCache, log: log}
}

// FeedPage is one page of the paginated feed.
type FeedPage struct {
	Posts      []post.View `json:"posts"`
	MaxPages   int         `json:"maxPages"`
	TotalPosts int64       `json:"totalPosts"`
}

type UploadInput struct {
	Caption string
	Files   []*multipart.FileHeader
}

// Upload stores every media file and creates the post. When any step fails the
// objects stored so far are deleted again.
func (s *PostService) Upload(ctx context.Context, requesterID string, in UploadInput) (*post.View, error) {
	if len(in.Files) == 0 {
		return nil, NewValidationError("contents")
	}

	contentType := ""
	var contents []post.Content
	var storedKeys []string
	rollback := func() {
		for _, key := range storedKeys {
			if err := s.storage.DeleteObject(ctx, key); err != nil {
				s.log.Warnf("rollback stored object %s: %v", key, err)
			}
		}
	}

	for _, header := range in.Files {
		ext := strings.ToLower(strings.TrimPrefix(fileExt(header.Filename), "."))
		kind, ok := allowedMediaExts[ext]
		if !ok {
			rollback()
			return nil, ErrUnsupportedMediaType
		}
		if header.Size > MaxUploadSize {
			rollback()
			return nil, fmt.Errorf("file %s exceeds the 20MB limit", header.Filename)
		}
		if contentType == "" {
			contentType = kind
		}

		file, err := header.Open()
		if err != nil {
			rollback()
			return nil, fmt.Errorf("open upload %s: %w", header.Filename, err)
		}
		key := storage.UniqueKey(header.Filename)
		url, err := s.storage.PutObject(ctx, storage.UploadInput{
			Key:         key,
			ContentType: header.Header.Get("Content-Type"),
			Body:        file,
			Size:        header.Size,
		})
		file.Close()
		if err != nil {
			rollback()
			return nil, fmt.Errorf("store upload %s: %w", header.Filename, err)
		}
		storedKeys = append(storedKeys, key)
		contents = append(contents, post.Content{Key: key, URL: url})
	}

	p := &post.Post{
		ID:          uuid.NewString(),
		ContentType: contentType,
		Caption:     in.Caption,
		PostedByID:  requesterID,
		Contents:    contents,
	}
	if err := s.posts.Create(ctx, p); err != nil {
		rollback()
		return nil, err
	}
	s.invalidateFeed(ctx)
	s.log.Infof("user %s uploaded post %s (%d files)", requesterID, p.ID, len(contents))

	created, err := s.posts.GetByID(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	return s.buildView(ctx, created)
}

// Feed returns the global feed, newest first. Pages are cached when Redis is
// configured; any upload or delete clears the cached pages.
func (s *PostService) Feed(ctx context.Context, limit, page int) (*FeedPage, error) {
	limit, page = normalizePage(limit, page)

	cacheKey := fmt.Sprintf("feed:%d:%d", limit, page)
	var cached FeedPage
	if hit, err := s.cache.Get(ctx, cacheKey, &cached); err != nil {
		s.log.Warnf("feed cache read: %v", err)
	} else if hit {
		return &cached, nil
	}

	posts, err := s.posts.List(ctx, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}
	total, err := s.posts.Count(ctx)
	if err != nil {
		return nil, err
	}
	result, err := s.feedPage(ctx, posts, total, limit)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, cacheKey, result); err != nil {
		s.log.Warnf("feed cache write: %v", err)
	}
	return result, nil
}

// FollowingFeed returns posts authored by accounts the requester follows,
// including the requester's own posts.
func (s *PostService) FollowingFeed(ctx context.Context, requesterID string, limit, page int) (*FeedPage, error) {
	limit, page = normalizePage(limit, page)

	authorIDs, err := s.users.FollowingIDs(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	authorIDs = append(authorIDs, requesterID)

	posts, err := s.posts.ListByAuthors(ctx, authorIDs, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}
	total, err := s.posts.CountByAuthors(ctx, authorIDs)
	if err != nil {
		return nil, err
	}
	return s.feedPage(ctx, posts, total, limit)
}

func (s *PostService) Saved(ctx context.Context, requesterID string) ([]post.View, error) {
	posts, err := s.posts.ListSavedBy(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	return buildPostViews(ctx, s.users, posts)
}

func (s *PostService) Detail(ctx context.Context, postID string) (*post.View, error) {
	p, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	return s.buildView(ctx, p)
}

// Delete removes a post and its stored media. Only the author may delete.
func (s *PostService) Delete(ctx context.Context, requesterID, postID string) error {
	p, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if p.PostedByID != requesterID {
		return ErrForbidden
	}
	if err := s.posts.Delete(ctx, postID); err != nil {
		return err
	}
	for _, c := range p.Contents {
		if err := s.storage.DeleteObject(ctx, c.Key); err != nil {
			s.log.Warnf("delete post object %s: %v", c.Key, err)
		}
	}
	s.invalidateFeed(ctx)
	return nil
}

// LikeToggle likes the post when the requester has not liked it yet and
// unlikes it otherwise. The returned message tells which way it went.
func (s *PostService) LikeToggle(ctx context.Context, requesterID, postID string) (string, error) {
	p, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return "", err
	}
	for _, l := range p.Likes {
		if l.UserID == requesterID {
			if err := s.posts.Unlike(ctx, postID, requesterID); err != nil {
				return "", err
			}
			return "The post has been unliked", nil
		}
	}
	if err := s.posts.Like(ctx, postID, requesterID); err != nil {
		return "", err
	}
	return "The post has been liked", nil
}

// SaveToggle bookmarks the post or removes the bookmark.
func (s *PostService) SaveToggle(ctx context.Context, requesterID, postID string) (string, error) {
	p, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return "", err
	}
	for _, sv := range p.Saves {
		if sv.UserID == requesterID {
			if err := s.posts.UnsavePost(ctx, postID, requesterID); err != nil {
				return "", err
			}
			return "The post has been Unsaved", nil
		}
	}
	if err := s.posts.SavePost(ctx, postID, requesterID); err != nil {
		return "", err
	}
	return "The post has been saved", nil
}

func (s *PostService) AddComment(ctx context.Context, requesterID, postID, comment string) (*post.View, error) {
	if strings.TrimSpace(comment) == "" {
		return nil, NewValidationError("comment")
	}
	c := &post.Comment{PostID: postID, UserID: requesterID, Comment: comment}
	if err := s.posts.AddComment(ctx, c); err != nil {
		return nil, err
	}
	p, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	return s.buildView(ctx, p)
}

func (s *PostService) feedPage(ctx context.Context, posts []*post.Post, total int64, limit int) (*FeedPage, error) {
	views, err := buildPostViews(ctx, s.users, posts)
	if err != nil {
		return nil, err
	}
	maxPages := int((total + int64(limit) - 1) / int64(limit))
	return &FeedPage{
		Posts:      views,
		MaxPages:   maxPages,
		TotalPosts: total,
	}, nil
}

func (s *PostService) buildView(ctx context.Context, p *post.Post) (*post.View, error) {
	views, err := buildPostViews(ctx, s.users, []*post.Post{p})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (s *PostService) invalidateFeed(ctx context.Context) {
	if err := s.cache.DeletePattern(ctx, "feed:*"); err != nil {
		s.log.Warnf("invalidate feed cache: %v", err)
	}
}

// buildPostViews resolves every referenced user in one batch and assembles the
// serialized posts.
func buildPostViews(ctx context.Context, users repositories.UserRepository, posts []*post.Post) ([]post.View, error) {
	idSet := make(map[string]struct{})
	for _, p := range posts {
		idSet[p.PostedByID] = struct{}{}
		for _, l := range p.Likes {
			idSet[l.UserID] = struct{}{}
		}
		for _, sv := range p.Saves {
			idSet[sv.UserID] = struct{}{}
		}
		for _, c := range p.Comments {
			idSet[c.UserID] = struct{}{}
		}
	}
	ids := make([]string, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}
	byID, err := users.SummariesByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	views := make([]post.View, 0, len(posts))
	for _, p := range posts {
		v := post.View{
			ID:            p.ID,
			ContentType:   p.ContentType,
			Caption:       p.Caption,
			Content:       make([]string, 0, len(p.Contents)),
			PostedBy:      byID[p.PostedByID],
			Likes:         make([]user.Summary, 0, len(p.Likes)),
			SavedBy:       make([]user.Summary, 0, len(p.Saves)),
			Comments:      make([]post.CommentView, 0, len(p.Comments)),
			TotalLikes:    len(p.Likes),
			TotalComments: len(p.Comments),
			CreatedAt:     p.CreatedAt,
		}
		for _, c := range p.Contents {
			v.Content = append(v.Content, c.URL)
		}
		for _, l := range p.Likes {
			v.Likes = append(v.Likes, byID[l.UserID])
		}
		for _, sv := range p.Saves {
			v.SavedBy = append(v.SavedBy, byID[sv.UserID])
		}
		for _, c := range p.Comments {
			v.Comments = append(v.Comments, post.CommentView{
				User:      byID[c.UserID],
				Comment:   c.Comment,
				CreatedAt: c.CreatedAt,
			})
		}
		views = append(views, v)
	}
	return views, nil
}

func normalizePage(limit, page int) (int, int) {
	if limit <= 0 {
		limit = defaultFeedLimit
	}
	if page <= 0 {
		page = 1
	}
	return limit, page
}

func fileExt(name string) string {
	return filepath.Ext(name)
}
