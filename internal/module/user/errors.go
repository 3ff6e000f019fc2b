package user

import "errors"

// Module errors.
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailAlreadyExists = errors.New("email already registered")
	ErrPasswordTooShort   = errors.New("password must be at least 8 characters")
	ErrWrongPassword      = errors.New("current password is incorrect")
)
