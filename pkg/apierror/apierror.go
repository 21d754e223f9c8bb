package apierror

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Kind is the closed set of failure classes surfaced to callers.
type Kind string

const (
	KindUnknown            Kind = "UNKNOWN"
	KindNetwork            Kind = "NETWORK_ERROR"
	KindInvalidCredentials Kind = "INVALID_CREDENTIALS"
	KindAccountNotFound    Kind = "ACCOUNT_NOT_FOUND"
	KindAccountLocked      Kind = "ACCOUNT_LOCKED"
	KindUnauthorized       Kind = "UNAUTHORIZED"
	KindSessionExpired     Kind = "SESSION_EXPIRED"
	KindValidation         Kind = "VALIDATION_ERROR"
	KindNotFound           Kind = "NOT_FOUND"
	KindConflict           Kind = "CONFLICT"
	KindRateLimited        Kind = "RATE_LIMITED"
	KindServer             Kind = "SERVER_ERROR"
)

type APIError struct {
	Kind       Kind                `json:"-"`
	Code       string              `json:"code"`
	Message    string              `json:"message"`
	Details    string              `json:"details,omitempty"`
	Fields     map[string][]string `json:"fields,omitempty"`
	HTTPStatus int                 `json:"-"`
	Err        error               `json:"-"`
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}

	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Details != "" {
		msg = fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	if len(e.Fields) > 0 {
		msg += " [" + e.fieldSummary() + "]"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

func (e *APIError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches any *APIError target of the same Kind, so sentinel-style checks
// like errors.Is(err, &apierror.APIError{Kind: apierror.KindConflict}) work.
func (e *APIError) Is(target error) bool {
	var other *APIError
	if !errors.As(target, &other) || other == nil {
		return false
	}
	return e.Kind == other.Kind
}

// FieldError returns the first message reported for field, if any.
func (e *APIError) FieldError(field string) string {
	if e == nil || len(e.Fields[field]) == 0 {
		return ""
	}
	return e.Fields[field][0]
}

func (e *APIError) fieldSummary() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e.Fields[k], "; "))
	}
	return strings.Join(parts, ", ")
}

func New(code string, message string, details string, status int) *APIError {
	return &APIError{Kind: KindFromStatus(status), Code: code, Message: message, Details: details, HTTPStatus: status}
}

func Validation(message string, fields map[string][]string) *APIError {
	return &APIError{
		Kind:       KindValidation,
		Code:       string(KindValidation),
		Message:    message,
		Fields:     fields,
		HTTPStatus: http.StatusBadRequest,
	}
}

func Network(err error) *APIError {
	return &APIError{
		Kind:    KindNetwork,
		Code:    string(KindNetwork),
		Message: "no response from server",
		Err:     err,
	}
}

func SessionExpired(message string, err error) *APIError {
	return &APIError{
		Kind:       KindSessionExpired,
		Code:       string(KindSessionExpired),
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
		Err:        err,
	}
}

// KindFromStatus maps a status to a Kind without endpoint context.
func KindFromStatus(status int) Kind {
	switch {
	case status == http.StatusBadRequest:
		return KindValidation
	case status == http.StatusUnauthorized:
		return KindUnauthorized
	case status == http.StatusForbidden:
		return KindAccountLocked
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusConflict:
		return KindConflict
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status >= http.StatusInternalServerError:
		return KindServer
	default:
		return KindUnknown
	}
}

// KindOf reports the Kind of the first *APIError in err's chain.
func KindOf(err error) Kind {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr != nil {
		return apiErr.Kind
	}
	return KindUnknown
}

func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
