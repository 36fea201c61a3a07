package shared

import "fmt"

var (
	// Configuration errors
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrUnknownService  = fmt.Errorf("unknown service")

	// Storage errors
	ErrStorage     = fmt.Errorf("storage failure")
	ErrRunNotFound = fmt.Errorf("sync run not found")
)
