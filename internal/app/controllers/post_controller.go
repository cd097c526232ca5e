package controllers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/dimasfh/sociagram/internal/app/services"
	"github.com/dimasfh/sociagram/internal/platform/middleware"
)

type PostController struct {
	service *services.PostService
}

func NewPostController(s *services.PostService) *PostController {
	return &PostController{service: s}
}

// Feed returns the paginated global feed.
// @Summary Paginated feed
// @Tags Posts
// @Produce json
// @Param limit query int false "Page size"
// @Param page query int false "Page number"
// @Router /api/post [get]
func (c *PostController) Feed(w http.ResponseWriter, r *http.Request) {
	limit, page := pagination(r)
	feed, err := c.service.Feed(r.Context(), limit, page)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, feed)
}

// FollowingFeed returns posts by accounts the requester follows.
// @Summary Feed of followed accounts
// @Tags Posts
// @Produce json
// @Router /api/post/postfollowing [get]
func (c *PostController) FollowingFeed(w http.ResponseWriter, r *http.Request) {
	limit, page := pagination(r)
	feed, err := c.service.FollowingFeed(r.Context(), middleware.RequesterID(r.Context()), limit, page)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, feed)
}

// Saved returns the requester's bookmarked posts.
// @Summary Saved posts
// @Tags Posts
// @Produce json
// @Router /api/post/saved [get]
func (c *PostController) Saved(w http.ResponseWriter, r *http.Request) {
	posts, err := c.service.Saved(r.Context(), middleware.RequesterID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

// Upload stores the multipart media files and creates the post.
// @Summary Upload a post
// @Tags Posts
// @Accept multipart/form-data
// @Produce json
// @Router /api/post [post]
func (c *PostController) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(services.MaxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	in := services.UploadInput{
		Caption: r.FormValue("caption"),
	}
	if r.MultipartForm != nil {
		in.Files = r.MultipartForm.File["contents"]
	}

	view, err := c.service.Upload(r.Context(), middleware.RequesterID(r.Context()), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

// Detail returns one post with references populated.
// @Summary Get a post
// @Tags Posts
// @Produce json
// @Router /api/post/{postId} [get]
func (c *PostController) Detail(w http.ResponseWriter, r *http.Request, postID string) {
	view, err := c.service.Detail(r.Context(), postID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Delete removes the requester's own post.
// @Summary Delete a post
// @Tags Posts
// @Produce json
// @Router /api/post/{postId} [delete]
func (c *PostController) Delete(w http.ResponseWriter, r *http.Request, postID string) {
	if err := c.service.Delete(r.Context(), middleware.RequesterID(r.Context()), postID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "The post has been deleted"})
}

// LikeToggle likes or unlikes the post for the requester.
// @Summary Like or unlike a post
// @Tags Posts
// @Produce json
// @Router /api/post/{postId}/likeandunlike [patch]
func (c *PostController) LikeToggle(w http.ResponseWriter, r *http.Request, postID string) {
	msg, err := c.service.LikeToggle(r.Context(), middleware.RequesterID(r.Context()), postID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: msg})
}

// SaveToggle bookmarks or unbookmarks the post.
// @Summary Save or unsave a post
// @Tags Posts
// @Produce json
// @Router /api/post/{postId}/saveandunsave [patch]
func (c *PostController) SaveToggle(w http.ResponseWriter, r *http.Request, postID string) {
	msg, err := c.service.SaveToggle(r.Context(), middleware.RequesterID(r.Context()), postID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: msg})
}

// AddComment appends a comment and returns the updated post.
// @Summary Comment on a post
// @Tags Posts
// @Accept json
// @Produce json
// @Router /api/post/{postId}/addcomment [patch]
func (c *PostController) AddComment(w http.ResponseWriter, r *http.Request, postID string) {
	var in struct {
		Comment string `json:"comment"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	view, err := c.service.AddComment(r.Context(), middleware.RequesterID(r.Context()), postID, in.Comment)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func pagination(r *http.Request) (limit, page int) {
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	return limit, page
}
