package domain

import "errors"

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials or unauthorized account")
	ErrEmailTaken         = errors.New("an account with this email already exists")
	ErrContentNotFound    = errors.New("content not found")
	ErrSessionNotFound    = errors.New("session not found")
	ErrDownloadBlocked    = errors.New("downloads are disabled for protected content")
	ErrFileRequired       = errors.New("please select a file")
	ErrUnsupportedMedia   = errors.New("file type does not match media kind")
	ErrInvalidInput       = errors.New("invalid input")
	ErrSessionClosed      = errors.New("session closed before verification completed")
)
