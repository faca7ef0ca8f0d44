package util

import "errors"

var (
	ErrGoalNotFound       = errors.New("learning goal not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidSubject     = errors.New("invalid subject")
	ErrInvalidMastery     = errors.New("mastery level must be between 1 and 4")
	ErrClassroomNotOpened = errors.New("classroom session not opened")
)
