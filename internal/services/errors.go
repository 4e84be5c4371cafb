package services

import "errors"

// Errors returned by incident operations
var (
	ErrIncidentNotFound     = errors.New("incident not found")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrConcurrentTransition = errors.New("incident status changed concurrently")
	ErrNotPrimary           = errors.New("incident is not a primary report")
	ErrNoDiseaseLabel       = errors.New("incident has no disease label")
	ErrNoRecipients         = errors.New("at least one recipient is required")
	ErrInvalidStatus        = errors.New("unknown incident status")
)
