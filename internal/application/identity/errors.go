package identity

import "errors"

var (
	ErrUserNotFound   = errors.New("User not found")
	ErrUnknownOrgRole = errors.New("User has an unrecognized organization role")
	ErrInvalidModule  = errors.New("Invalid module")
	ErrInvalidAction  = errors.New("Invalid action")
	ErrGrantNotFound  = errors.New("Permission grant not found")
)
