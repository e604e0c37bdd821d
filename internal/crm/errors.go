package crm

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is returned for every failed CRM call. StatusCode is 0 when the
// request never produced a response.
type Error struct {
	Collection string
	Operation  string
	StatusCode int
	Body       string
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode == 0 && e.Err != nil {
		return fmt.Sprintf("crm %s %s: %v", e.Operation, e.Collection, e.Err)
	}
	return fmt.Sprintf("crm %s %s: status %d: %s", e.Operation, e.Collection, e.StatusCode, e.Body)
}

func (e *Error) Unwrap() error { return e.Err }

// IsNotFound reports whether err is a CRM 404.
func IsNotFound(err error) bool {
	var crmErr *Error
	return errors.As(err, &crmErr) && crmErr.StatusCode == http.StatusNotFound
}
