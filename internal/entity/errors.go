package entity

import "errors"

var (
	ErrLeadNotFound         = errors.New("lead not found")
	ErrEmailAlreadyExists   = errors.New("lead email already exists for this user")
	ErrStaleConversation    = errors.New("conversation changed since it was read")
	ErrNotificationNotFound = errors.New("notification not found")
)
