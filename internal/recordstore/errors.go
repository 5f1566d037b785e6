package recordstore

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

var (
	// ErrNotFound matches any 404 response from the store.
	ErrNotFound = errors.New("record not found")
	// ErrUnreachable wraps transport failures: the store could not be contacted.
	ErrUnreachable = errors.New("record store unreachable")
)

// codeNotUnique is the field error code the store uses for unique index violations.
const codeNotUnique = "validation_not_unique"

// FieldError is a field-level validation failure reported by the store.
type FieldError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ResponseError is a non-2xx response from the store.
type ResponseError struct {
	Status  int
	Message string
	Data    map[string]FieldError
}

// Error includes field detail, sorted by field name.
func (e *ResponseError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if len(e.Data) == 0 {
		return fmt.Sprintf("record store: %s (status %d)", msg, e.Status)
	}

	fields := make([]string, 0, len(e.Data))
	for f := range e.Data {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	details := make([]string, 0, len(fields))
	for _, f := range fields {
		details = append(details, fmt.Sprintf("%s: %s", f, e.Data[f].Message))
	}
	return fmt.Sprintf("record store: %s (status %d): %s", msg, e.Status, strings.Join(details, ", "))
}

// Is lets errors.Is(err, ErrNotFound) match 404 responses.
func (e *ResponseError) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

// IsNotUnique reports whether err is a rejected write caused by a unique index.
func IsNotUnique(err error) bool {
	var re *ResponseError
	if !errors.As(err, &re) {
		return false
	}
	for _, fe := range re.Data {
		if fe.Code == codeNotUnique {
			return true
		}
	}
	return false
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var re *ResponseError
	if errors.As(err, &re) {
		return re.Status
	}
	return 0
}
