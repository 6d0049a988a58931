package service

import "errors"

var (
	ErrUnauthorized          = errors.New("operator is not authorized")
	ErrCommandNotWhitelisted = errors.New("command is not whitelisted")
	ErrCommandSpawnFailed    = errors.New("command failed to start")
	ErrInvalidSchedule       = errors.New("schedule time must be a valid HH:MM")
	ErrTaskOwnershipMismatch = errors.New("task belongs to another operator")
	ErrUnknownPin            = errors.New("pin is not configured")
)
