package handlers

import (
	"errors"
	"net/http"

	"github.com/nkiryanov/comictracker/internal/apperrors"
	"github.com/nkiryanov/comictracker/internal/handlers/render"
	"github.com/nkiryanov/comictracker/internal/logger"
)

const (
	msgRegistered        = "Registered successfully"
	msgRegisterFailed    = "Registration failed"
	msgInvalidCreds      = "Invalid credentials"
	msgNoRefreshToken    = "No refresh token"
	msgInvalidRefresh    = "Invalid refresh token"
	msgLoggedOut         = "Logged out"
	msgResetLinkSent     = "If that email exists, a reset link was sent."
	msgResetEmailFailed  = "Error sending email. Try again later."
	msgWeakPassword      = "Password must be at least 6 characters."
	msgInvalidResetToken = "Invalid or expired token."
	msgPasswordReset     = "Password has been reset successfully."
	msgInternalError     = "Internal server error"
)

type messageResponse struct {
	Message string `json:"message"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// Every failure is the same 400, so nobody can learn which emails are registered
func handleRegister(authService authService, logger logger.Logger) http.Handler {
	type request struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	type response struct {
		Msg string `json:"msg"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.Decode[request](r)
		if err != nil {
			render.ServiceError(w, msgRegisterFailed, http.StatusBadRequest)
			return
		}

		_, err = authService.Register(r.Context(), data.Email, data.Password)

		switch {
		case err == nil:
			render.JSONWithStatus(w, response{Msg: msgRegistered}, http.StatusCreated)
		case errors.Is(err, apperrors.ErrInvalidInput), errors.Is(err, apperrors.ErrUserAlreadyExists):
			render.ServiceError(w, msgRegisterFailed, http.StatusBadRequest)
		default:
			logger.Error("registration failed", "error", err)
			render.ServiceError(w, msgInternalError, http.StatusInternalServerError)
		}
	})
}

func handleLogin(authService authService, logger logger.Logger) http.Handler {
	type request struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		pair, err := authService.Login(r.Context(), data.Email, data.Password)

		switch {
		case err == nil:
			// Cookie is a header, so it goes before the body
			authService.SetRefreshCookie(w, pair.Refresh)
			render.JSON(w, tokenResponse{Token: pair.Access.Value})
		case errors.Is(err, apperrors.ErrInvalidCredentials):
			render.ServiceError(w, msgInvalidCreds, http.StatusUnauthorized)
		default:
			logger.Error("login failed", "error", err)
			render.ServiceError(w, msgInternalError, http.StatusInternalServerError)
		}
	})
}

func handleTokenRefresh(authService authService, logger logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		refresh, err := authService.ReadRefreshCookie(r)
		if err != nil {
			render.ServiceError(w, msgNoRefreshToken, http.StatusUnauthorized)
			return
		}

		access, err := authService.Refresh(r.Context(), refresh)

		switch {
		case err == nil:
			render.JSON(w, tokenResponse{Token: access.Value})
		case errors.Is(err, apperrors.ErrRefreshTokenInvalid):
			logger.Debug("refresh token rejected", "error", err)
			render.ServiceError(w, msgInvalidRefresh, http.StatusForbidden)
		default:
			logger.Error("token refresh failed", "error", err)
			render.ServiceError(w, msgInternalError, http.StatusInternalServerError)
		}
	})
}

// Only the client copy of the refresh token is dropped, the token itself stays valid until it expires
func handleLogout(authService authService) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authService.ClearRefreshCookie(w)
		render.JSON(w, messageResponse{Message: msgLoggedOut})
	})
}

// Known and unknown emails get the same response
func handleForgotPassword(resetService resetService, logger logger.Logger) http.Handler {
	type request struct {
		Email string `json:"email"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		err = resetService.RequestReset(r.Context(), data.Email)

		switch {
		case err == nil:
			render.JSON(w, messageResponse{Message: msgResetLinkSent})
		case errors.Is(err, apperrors.ErrSendEmail):
			logger.Error("reset email not sent", "error", err)
			render.ServiceError(w, msgResetEmailFailed, http.StatusInternalServerError)
		default:
			logger.Error("reset request failed", "error", err)
			render.ServiceError(w, msgInternalError, http.StatusInternalServerError)
		}
	})
}

func handleResetPassword(resetService resetService, logger logger.Logger) http.Handler {
	type request struct {
		Password string `json:"password"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		err = resetService.ResetPassword(r.Context(), r.PathValue("token"), data.Password)

		switch {
		case err == nil:
			render.JSON(w, messageResponse{Message: msgPasswordReset})
		case errors.Is(err, apperrors.ErrWeakPassword):
			render.ServiceError(w, msgWeakPassword, http.StatusBadRequest)
		case errors.Is(err, apperrors.ErrResetTokenInvalid):
			render.ServiceError(w, msgInvalidResetToken, http.StatusBadRequest)
		default:
			logger.Error("password reset failed", "error", err)
			render.ServiceError(w, msgInternalError, http.StatusInternalServerError)
		}
	})
}
