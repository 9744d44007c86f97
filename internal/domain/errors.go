package domain

import "errors"

var (
	ErrTitleEmpty   = errors.New("title must not be empty")
	ErrTitleTooLong = errors.New("title too long")

	ErrConnectionClosed = errors.New("connection closed")
	ErrMailboxFull      = errors.New("connection mailbox full")
	ErrCapacityReached  = errors.New("connection capacity reached")
)
