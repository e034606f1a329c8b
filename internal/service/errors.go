package service

// Category classifies operation failures: validation (bad input, no retry),
// authentication (wrong credentials / locked / unconfirmed), integrity
// (data requires administrator action) and infrastructure (persistence or
// collaborator faults; detail goes to the error tracker, caller gets a
// generic message).
type Category int

const (
	CategoryValidation Category = iota
	CategoryAuthentication
	CategoryIntegrity
	CategoryInfrastructure
)

type Error struct {
	Category Category
	Message  string
	Err      error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

func validationError(message string) *Error {
	return &Error{Category: CategoryValidation, Message: message}
}

func authenticationError(message string) *Error {
	return &Error{Category: CategoryAuthentication, Message: message}
}

func integrityError(message string) *Error {
	return &Error{Category: CategoryIntegrity, Message: message}
}
