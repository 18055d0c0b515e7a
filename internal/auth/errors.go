package auth

import "errors"

var (
	// ErrInvalidCredentials covers both an unknown username and a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken is returned for malformed tokens and failed signature checks.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned for well-formed tokens whose exp is not in the future.
	ErrExpiredToken = errors.New("token expired")
	// ErrPasswordTooLong is returned by hashers that cap the password length.
	ErrPasswordTooLong = errors.New("password too long")
)
