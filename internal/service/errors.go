package service

import "fmt"

// ErrResourceNotFound is returned when the requested entity does not exist
// or has expired.
type ErrResourceNotFound struct {
	Resource string
	ID       string
}

func (e *ErrResourceNotFound) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

func NewErrCampaignNotFound(id string) *ErrResourceNotFound {
	return &ErrResourceNotFound{Resource: "campaign", ID: id}
}

func NewErrSessionNotFound(id string) *ErrResourceNotFound {
	return &ErrResourceNotFound{Resource: "session", ID: id}
}

func NewErrPropertyNotFound(id string) *ErrResourceNotFound {
	return &ErrResourceNotFound{Resource: "property", ID: id}
}

// ErrInvalidRequest is returned when the caller's input fails validation.
type ErrInvalidRequest struct {
	Message string
}

func (e *ErrInvalidRequest) Error() string {
	return e.Message
}

func NewErrInvalidRequest(format string, args ...any) *ErrInvalidRequest {
	return &ErrInvalidRequest{Message: fmt.Sprintf(format, args...)}
}
