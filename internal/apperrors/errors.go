package apperrors

import (
	"errors"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrWeakPassword      = errors.New("password is too weak")
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrUserNotFound      = errors.New("user not found")

	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrTokenInvalid = errors.New("token is invalid")
	ErrTokenExpired = errors.New("token is expired")

	ErrNoAccessToken       = errors.New("access token not provided")
	ErrAccessTokenInvalid  = errors.New("access token is invalid or expired")
	ErrNoRefreshToken      = errors.New("refresh token not provided")
	ErrRefreshTokenInvalid = errors.New("refresh token is invalid or expired")

	ErrResetTokenInvalid = errors.New("reset token is invalid or expired")
	ErrSendEmail         = errors.New("email could not be sent")

	ErrComicNotFound = errors.New("comic not found")
)
