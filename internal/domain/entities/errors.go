package entities

import "errors"

// Sentinel errors returned by repositories. Handlers translate these into
// NOT_FOUND / VALIDATION error events without inspecting driver errors.
var (
	ErrVoiceNotFound        = errors.New("voice profile not found")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrMessageNotFound      = errors.New("message not found")
	ErrInvalidRole          = errors.New("message role must be user or assistant")
	ErrEmptyContent         = errors.New("message content must not be empty")
)
