package campaign

import "errors"

// Sentinel errors for the campaign service layer.
var (
	ErrNotFound          = errors.New("campaign not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrMissingList       = errors.New("campaign has no contact list")
	ErrMissingTemplates  = errors.New("campaign has no templates")
	ErrNotEditable       = errors.New("only draft campaigns can be edited")
	ErrValidation        = errors.New("validation failed")
)
