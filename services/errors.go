package services

import "errors"

// Error kinds. Every error returned by the abstract services wraps one of these,
// so callers can classify with errors.Is.
var (
	ErrValidation        = errors.New("validation failed")
	ErrForbidden         = errors.New("forbidden")
	ErrNotFound          = errors.New("not found")
	ErrDuplicateReview   = errors.New("review already submitted for this abstract")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// ServiceError carries a user-facing message and the kind it belongs to.
type ServiceError struct {
	Kind    error
	Message string
}

func (e *ServiceError) Error() string { return e.Message }

func (e *ServiceError) Unwrap() error { return e.Kind }

func newError(kind error, message string) *ServiceError {
	return &ServiceError{Kind: kind, Message: message}
}

func validationError(message string) error {
	return newError(ErrValidation, message)
}

var (
	ErrSubmissionWindowClosed = newError(ErrValidation, "submission window is closed")
	ErrTrackUnavailable       = newError(ErrValidation, "track is unknown or disabled")
	ErrSubmissionCapReached   = newError(ErrValidation, "submission limit reached for this user")
	ErrInvalidScore           = newError(ErrValidation, "scores must be integers between 0 and 10; originality, methodology and relevance are required")
	ErrInvalidRecommendation  = newError(ErrValidation, "recommendation must be one of accept, reject, revise")
	ErrInvalidDecision        = newError(ErrValidation, "decision must be either 'accepted' or 'rejected'")
	ErrFileRejected           = newError(ErrValidation, "file does not meet the upload constraints")

	ErrAbstractNotFound = newError(ErrNotFound, "abstract not found")
	ErrNotAssigned      = newError(ErrForbidden, "reviewer is not assigned to this abstract")
	ErrNotOwner         = newError(ErrForbidden, "only the submitting author may perform this action")
	ErrAdminOnly        = newError(ErrForbidden, "administrator role required")

	ErrAbstractNotUnderReview = newError(ErrInvalidTransition, "abstract is not under review")
	ErrFinalStageLocked       = newError(ErrInvalidTransition, "final submission is only allowed once the abstract is accepted")
	ErrAbstractRejected       = newError(ErrInvalidTransition, "abstract was rejected")
	ErrAbstractClosed         = newError(ErrInvalidTransition, "abstract no longer accepts initial files")

	// errDuplicateCode is internal: the store hit the unique index on the display code.
	errDuplicateCode = errors.New("duplicate abstract code")
)
