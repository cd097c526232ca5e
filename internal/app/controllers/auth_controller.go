package controllers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/dimasfh/sociagram/internal/app/services"
)

const refreshCookieName = "refreshToken"

type AuthController struct {
	service    *services.AuthService
	refreshTTL time.Duration
}

func NewAuthController(s *services.AuthService, refreshTTL time.Duration) *AuthController {
	return &AuthController{service: s, refreshTTL: refreshTTL}
}

type authResponse struct {
	AccessToken string `json:"accessToken"`
	User        any    `json:"user"`
}

// Register creates the account and signs the user in.
// @Summary Register a new account
// @Tags Auth
// @Accept json
// @Produce json
// @Router /api/auth/register [post]
func (c *AuthController) Register(w http.ResponseWriter, r *http.Request) {
	var in services.RegisterInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	result, err := c.service.Register(r.Context(), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	c.setRefreshCookie(w, result.RefreshToken)
	writeJSON(w, http.StatusCreated, authResponse{AccessToken: result.AccessToken, User: result.User})
}

// Login exchanges credentials for a token pair.
// @Summary Log in
// @Tags Auth
// @Accept json
// @Produce json
// @Router /api/auth/login [post]
func (c *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	var in services.LoginInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	result, err := c.service.Login(r.Context(), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	c.setRefreshCookie(w, result.RefreshToken)
	writeJSON(w, http.StatusOK, authResponse{AccessToken: result.AccessToken, User: result.User})
}

// Refresh rotates the refresh token from the cookie and returns a new access
// token.
// @Summary Refresh the access token
// @Tags Auth
// @Produce json
// @Router /api/auth/refresh [get]
func (c *AuthController) Refresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(refreshCookieName)
	if err != nil {
		writeError(w, http.StatusUnauthorized, services.ErrInvalidToken)
		return
	}
	result, err := c.service.Refresh(r.Context(), cookie.Value)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	c.setRefreshCookie(w, result.RefreshToken)
	writeJSON(w, http.StatusOK, authResponse{AccessToken: result.AccessToken, User: result.User})
}

// Logout revokes the refresh token and clears the cookie.
// @Summary Log out
// @Tags Auth
// @Produce json
// @Router /api/auth/logout [post]
func (c *AuthController) Logout(w http.ResponseWriter, r *http.Request) {
	token := ""
	if cookie, err := r.Cookie(refreshCookieName); err == nil {
		token = cookie.Value
	}
	if err := c.service.Logout(r.Context(), token); err != nil {
		writeServiceError(w, err)
		return
	}
	c.clearRefreshCookie(w)
	writeJSON(w, http.StatusOK, messageResponse{Message: "logged out"})
}

func (c *AuthController) setRefreshCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    token,
		Path:     "/api/auth",
		Expires:  time.Now().Add(c.refreshTTL),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (c *AuthController) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/api/auth",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
