package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"buzzline/internal/entity"
	"buzzline/internal/usecase"

	"go.uber.org/zap"
)

type AuthHandler struct {
	authUc usecase.AuthUsecase
	log    *zap.SugaredLogger
}

func NewAuthHandler(authUc usecase.AuthUsecase, log *zap.SugaredLogger) *AuthHandler {
	return &AuthHandler{
		authUc: authUc,
		log:    log,
	}
}

// POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req entity.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Message: "invalid request body"})
		return
	}

	if req.Email == "" || req.Password == "" || req.Username == "" || req.Fullname == "" {
		writeJSON(w, http.StatusBadRequest, Response{Message: "email, username, password, and fullname are required"})
		return
	}
	if len(req.Password) < 6 {
		writeJSON(w, http.StatusBadRequest, Response{Message: "password must be at least 6 characters"})
		return
	}
	if len(req.Username) < 3 {
		writeJSON(w, http.StatusBadRequest, Response{Message: "username must be at least 3 characters"})
		return
	}

	authResponse, err := h.authUc.Register(r.Context(), req)
	if err != nil {
		statusCode := http.StatusInternalServerError
		message := "internal server error"

		switch {
		case errors.Is(err, usecase.ErrEmailAlreadyTaken):
			statusCode = http.StatusConflict
			message = err.Error()
		case errors.Is(err, usecase.ErrUsernameAlreadyTaken):
			statusCode = http.StatusConflict
			message = err.Error()
		default:
			h.log.Errorw("register failed", "error", err)
		}

		writeJSON(w, statusCode, Response{Message: message})
		return
	}

	h.setRefreshTokenCookie(w, authResponse.RefreshToken)
	authResponse.RefreshToken = ""

	writeJSON(w, http.StatusCreated, Response{Message: "registration successful", Data: authResponse})
}

// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req entity.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Message: "invalid request body"})
		return
	}
	if req.Email == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, Response{Message: "email and password are required"})
		return
	}

	authResponse, err := h.authUc.Login(r.Context(), req)
	if err != nil {
		statusCode := http.StatusInternalServerError
		message := "internal server error"

		switch {
		case errors.Is(err, usecase.ErrInvalidCredentials):
			statusCode = http.StatusUnauthorized
			message = err.Error()
		case errors.Is(err, usecase.ErrUserBanned):
			statusCode = http.StatusForbidden
			message = err.Error()
		default:
			h.log.Errorw("login failed", "error", err)
		}

		writeJSON(w, statusCode, Response{Message: message})
		return
	}

	h.setRefreshTokenCookie(w, authResponse.RefreshToken)
	authResponse.RefreshToken = ""

	writeJSON(w, http.StatusOK, Response{Message: "login successful", Data: authResponse})
}

// POST /auth/refresh
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	refreshToken := h.refreshTokenFromRequest(r)
	if refreshToken == "" {
		writeJSON(w, http.StatusBadRequest, Response{Message: "refresh token is required"})
		return
	}

	authResponse, err := h.authUc.RefreshToken(r.Context(), refreshToken)
	if err != nil {
		message := "invalid or expired refresh token"
		switch {
		case errors.Is(err, usecase.ErrInvalidRefreshToken),
			errors.Is(err, usecase.ErrExpiredRefreshToken),
			errors.Is(err, usecase.ErrRevokedRefreshToken):
			message = err.Error()
		default:
			h.log.Errorw("refresh token failed", "error", err)
		}

		h.clearRefreshTokenCookie(w)
		writeJSON(w, http.StatusUnauthorized, Response{Message: message})
		return
	}

	h.setRefreshTokenCookie(w, authResponse.RefreshToken)
	authResponse.RefreshToken = ""

	writeJSON(w, http.StatusOK, Response{Message: "token refreshed successfully", Data: authResponse})
}

// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if refreshToken := h.refreshTokenFromRequest(r); refreshToken != "" {
		if err := h.authUc.Logout(r.Context(), refreshToken); err != nil {
			h.log.Errorw("logout failed", "error", err)
		}
	}

	h.clearRefreshTokenCookie(w)
	writeJSON(w, http.StatusOK, Response{Message: "logout successful"})
}

// POST /auth/logout-all
func (h *AuthHandler) LogoutAllDevices(w http.ResponseWriter, r *http.Request) {
	userId := currentUserId(r)
	if userId == "" {
		writeJSON(w, http.StatusUnauthorized, Response{Message: "unauthorized"})
		return
	}

	if err := h.authUc.LogoutAllDevices(r.Context(), userId); err != nil {
		h.log.Errorw("logout all devices failed", "userId", userId, "error", err)
		writeJSON(w, http.StatusInternalServerError, Response{Message: "internal server error"})
		return
	}

	h.clearRefreshTokenCookie(w)
	writeJSON(w, http.StatusOK, Response{Message: "logged out from all devices successfully"})
}

// refreshTokenFromRequest prefers the HttpOnly cookie and falls back to the
// request body.
func (h *AuthHandler) refreshTokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie("refresh_token"); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	var req entity.RefreshTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
		return req.RefreshToken
	}
	return ""
}

func (h *AuthHandler) setRefreshTokenCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     "refresh_token",
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   false,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   30 * 24 * 60 * 60,
	})
}

func (h *AuthHandler) clearRefreshTokenCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     "refresh_token",
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   false,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
	})
}
