package handlers

import "fmt"

// MissingFieldError is a client error: the request lacked a required key.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return e.Field + " is required"
}

// InvalidBodyError is a client error: the body was not a JSON object.
type InvalidBodyError struct {
	Err error
}

func (e *InvalidBodyError) Error() string {
	return "request body must be a JSON object"
}

func (e *InvalidBodyError) Unwrap() error { return e.Err }

// InferenceError covers every failure after validation: reshaping, running
// the model, or converting its output.
type InferenceError struct {
	Stage string
	Err   error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *InferenceError) Unwrap() error { return e.Err }
