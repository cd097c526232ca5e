package controllers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/dimasfh/sociagram/internal/app/services"
	"github.com/dimasfh/sociagram/internal/platform/middleware"
)

type UserController struct {
	service *services.UserService
}

func NewUserController(s *services.UserService) *UserController {
	return &UserController{service: s}
}

// List returns every registered user as a summary.
// @Summary List users
// @Tags Users
// @Produce json
// @Router /api/user [get]
func (c *UserController) List(w http.ResponseWriter, r *http.Request) {
	users, err := c.service.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// Search finds users by username substring.
// @Summary Search users
// @Tags Users
// @Produce json
// @Param search query string true "Username fragment"
// @Router /api/user/find [get]
func (c *UserController) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("search")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	users, err := c.service.Search(r.Context(), query, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// Profile returns the full profile page for a slug.
// @Summary Get a profile
// @Tags Users
// @Produce json
// @Param slug path string true "Profile slug"
// @Router /api/user/{slug} [get]
func (c *UserController) Profile(w http.ResponseWriter, r *http.Request, slug string) {
	profile, err := c.service.Profile(r.Context(), slug, middleware.RequesterID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// Followers lists who follows the profile.
// @Summary List followers
// @Tags Users
// @Produce json
// @Router /api/user/{slug}/followers [get]
func (c *UserController) Followers(w http.ResponseWriter, r *http.Request, slug string) {
	followers, err := c.service.Followers(r.Context(), slug)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, followers)
}

// Followings lists who the profile follows.
// @Summary List followings
// @Tags Users
// @Produce json
// @Router /api/user/{slug}/followings [get]
func (c *UserController) Followings(w http.ResponseWriter, r *http.Request, slug string) {
	followings, err := c.service.Followings(r.Context(), slug)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, followings)
}

// Follow makes the requester follow the target user.
// @Summary Follow a user
// @Tags Users
// @Produce json
// @Router /api/user/{userId}/follow [patch]
func (c *UserController) Follow(w http.ResponseWriter, r *http.Request, targetID string) {
	if err := c.service.Follow(r.Context(), middleware.RequesterID(r.Context()), targetID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "User Followed"})
}

// Unfollow removes the follow edge.
// @Summary Unfollow a user
// @Tags Users
// @Produce json
// @Router /api/user/{userId}/unfollow [patch]
func (c *UserController) Unfollow(w http.ResponseWriter, r *http.Request, targetID string) {
	if err := c.service.Unfollow(r.Context(), middleware.RequesterID(r.Context()), targetID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Unfollowed Succesfully"})
}

// Edit updates the requester's profile fields.
// @Summary Edit own profile
// @Tags Users
// @Accept json
// @Produce json
// @Router /api/user/edit [put]
func (c *UserController) Edit(w http.ResponseWriter, r *http.Request) {
	var in services.EditUserInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	u, err := c.service.Edit(r.Context(), middleware.RequesterID(r.Context()), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// EditProfilePicture replaces the requester's profile picture.
// @Summary Change profile picture
// @Tags Users
// @Accept multipart/form-data
// @Produce json
// @Router /api/user/edit/profilePicture [put]
func (c *UserController) EditProfilePicture(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(services.MaxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	file, header, err := r.FormFile("contents")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	defer file.Close()

	u, err := c.service.EditProfilePicture(r.Context(), middleware.RequesterID(r.Context()), file, header)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// RemoveProfilePicture resets the picture to the default.
// @Summary Remove profile picture
// @Tags Users
// @Produce json
// @Router /api/user/edit/profilePicture [delete]
func (c *UserController) RemoveProfilePicture(w http.ResponseWriter, r *http.Request) {
	u, err := c.service.RemoveProfilePicture(r.Context(), middleware.RequesterID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}
