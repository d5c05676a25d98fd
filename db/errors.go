package db

import "fmt"

var (
	ErrNotFound       = fmt.Errorf("not found")
	ErrInvalidData    = fmt.Errorf("invalid data provided")
	ErrDuplicateKey   = fmt.Errorf("duplicate key")
	ErrTerminalStatus = fmt.Errorf("order status is terminal")
)
