package workspaces

import "errors"

var (
	ErrWorkspaceNotFound   = errors.New("Workspace not found")
	ErrNameRequired        = errors.New("Workspace name is required")
	ErrInvalidKey          = errors.New("Workspace key must be 2-10 uppercase letters or digits, starting with a letter")
	ErrKeyTaken            = errors.New("Workspace key already in use")
	ErrNoUpdateFields      = errors.New("No update fields provided")
	ErrNoValidUpdateFields = errors.New("No valid fields to update")
)
