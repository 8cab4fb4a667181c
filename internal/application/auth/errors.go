package auth

import "errors"

var (
	ErrEmailPasswordRequired = errors.New("Email and password are required")
	ErrInvalidEmail          = errors.New("Invalid Email")
	ErrIncorrectPassword     = errors.New("Incorrect Password")
	ErrAccountInactive       = errors.New("Account is inactive")
	ErrNotAuthenticated      = errors.New("Not authenticated")
)
