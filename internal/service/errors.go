package service

import "errors"

var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrRequestTimeout = errors.New("request timeout")
	ErrTransport      = errors.New("arangodb unreachable")
	ErrUnknownAlias   = errors.New("unknown connection alias")

	// Auth-related errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenInvalid       = errors.New("token is invalid")
	ErrTokenExpired       = errors.New("token has expired")

	ErrHistoryDisabled = errors.New("request history is not configured")
)
