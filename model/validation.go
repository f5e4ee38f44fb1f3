package model

// ValidationError is a local precondition failure: blank field, duplicate
// name, no file selected. It is raised before any network call and shown
// inline to the user.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidationError(msg string) *ValidationError {
	return &ValidationError{Message: msg}
}
