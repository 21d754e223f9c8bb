package model

// ErrorResponse is the DRF-style error body: a "detail" message plus
// optional per-field message lists at the top level.
type ErrorResponse map[string]any

func NewErrorResponse(detail string, code string, fields map[string][]string) ErrorResponse {
	body := ErrorResponse{"detail": detail}
	if code != "" {
		body["code"] = code
	}
	for field, messages := range fields {
		body[field] = messages
	}
	return body
}
