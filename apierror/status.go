package apierror

import (
	"encoding/json"
	"net/http"
)

// FromStatus returns the taxonomy code the API uses for an HTTP status. It
// is only a hint for responses whose body could not be decoded; the code of
// such a failure stays PARSE_ERROR.
func FromStatus(status int) Code {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity, http.StatusMethodNotAllowed:
		return ValidationError
	case http.StatusUnauthorized:
		return AuthenticationError
	case http.StatusPaymentRequired:
		return PlanLimitExceeded
	case http.StatusForbidden:
		return AuthorizationError
	case http.StatusNotFound, http.StatusGone:
		return ResourceNotFound
	case http.StatusConflict:
		return ResourceConflict
	case http.StatusTooManyRequests:
		return RateLimitExceeded
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return ExternalServiceError
	case http.StatusRequestTimeout:
		return TimeoutError
	default:
		return UnexpectedError
	}
}

// ParseFailure describes a non-success response whose body was not an error
// envelope. It is carried in the Details of a PARSE_ERROR.
type ParseFailure struct {
	Status       int    `json:"status"`
	StatusText   string `json:"statusText"`
	InferredCode Code   `json:"inferredCode"`
}

// NewParseFailure builds the PARSE_ERROR for an undecodable response with
// the given status line, e.g. "502 Bad Gateway".
func NewParseFailure(status int, statusLine string, cause error) *Error {
	if statusLine == "" {
		statusLine = http.StatusText(status)
	}

	e := Wrap(cause, ParseError, statusLine).WithStatus(status)

	return e.WithDetails(ParseFailure{
		Status:       status,
		StatusText:   http.StatusText(status),
		InferredCode: FromStatus(status),
	})
}

// ParseFailureDetails decodes the details of a PARSE_ERROR built by
// NewParseFailure.
func (e *Error) ParseFailureDetails() (ParseFailure, bool) {
	var out ParseFailure

	if e == nil || e.Code != ParseError || len(e.Details) == 0 {
		return out, false
	}

	if err := json.Unmarshal(e.Details, &out); err != nil {
		return out, false
	}

	return out, true
}
