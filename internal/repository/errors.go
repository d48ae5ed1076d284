package repository

import "errors"

// Common repository errors
var (
	// ErrRoomNotFound is returned when a room is not found
	ErrRoomNotFound = errors.New("room not found")

	// ErrCardNotFound is returned when a card is not found
	ErrCardNotFound = errors.New("card not found")

	// ErrColumnNotFound is returned when a column is not found
	ErrColumnNotFound = errors.New("column not found")
)
