package apiclient

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"

	"jewelflow/pkg/apierror"
)

// detailKeys are the body keys read as the top-level message, in order.
var detailKeys = []string{"detail", "message", "error"}

// classify turns a non-2xx response into the closed error taxonomy. The
// token endpoint gets login-specific kinds; everything else maps by status.
func classify(path string, status int, body []byte) *apierror.APIError {
	detail, code, fields := parseErrorBody(body)

	kind := apierror.KindFromStatus(status)
	if path == PathToken {
		switch status {
		case http.StatusUnauthorized:
			kind = apierror.KindInvalidCredentials
		case http.StatusNotFound:
			kind = apierror.KindAccountNotFound
		}
	}
	if kind == apierror.KindUnknown && len(fields) > 0 && status >= 400 && status < 500 {
		kind = apierror.KindValidation
	}

	if detail == "" {
		detail = defaultMessage(kind, status)
	}
	if code == "" {
		code = string(kind)
	}

	apiErr := &apierror.APIError{
		Kind:       kind,
		Code:       code,
		Message:    detail,
		HTTPStatus: status,
	}
	if len(fields) > 0 {
		apiErr.Fields = fields
	}
	return apiErr
}

func parseErrorBody(body []byte) (string, string, map[string][]string) {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return "", "", nil
	}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		if len(trimmed) > 200 {
			trimmed = trimmed[:200]
		}
		if strings.HasPrefix(trimmed, "<") {
			return "", "", nil
		}
		return trimmed, "", nil
	}

	var detail string
	for _, key := range detailKeys {
		if s, ok := raw[key].(string); ok && s != "" {
			detail = s
			break
		}
	}
	code, _ := raw["code"].(string)

	fields := map[string][]string{}
	for key, value := range raw {
		if key == "code" || isDetailKey(key) {
			continue
		}
		if messages := toMessages(value); len(messages) > 0 {
			fields[key] = messages
		}
	}
	if len(fields) == 0 {
		fields = nil
	}

	if detail == "" && len(fields) > 0 {
		detail = firstFieldMessage(fields)
	}

	return detail, code, fields
}

func isDetailKey(key string) bool {
	for _, k := range detailKeys {
		if k == key {
			return true
		}
	}
	return false
}

func toMessages(value any) []string {
	switch v := value.(type) {
	case string:
		return []string{v}
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func firstFieldMessage(fields map[string][]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys[0] + ": " + fields[keys[0]][0]
}

func defaultMessage(kind apierror.Kind, status int) string {
	switch kind {
	case apierror.KindInvalidCredentials:
		return "invalid email or password"
	case apierror.KindAccountNotFound:
		return "no account found for this email"
	case apierror.KindAccountLocked:
		return "account is locked"
	case apierror.KindRateLimited:
		return "too many requests, try again later"
	case apierror.KindServer:
		return "server error"
	}

	if text := http.StatusText(status); text != "" {
		return strings.ToLower(text)
	}
	return "unexpected response"
}
