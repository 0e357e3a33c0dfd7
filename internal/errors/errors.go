package errors

import (
	"errors"
	"net/http"
)

var (
	// ErrInvalidInput is returned when a request is missing or has malformed fields.
	ErrInvalidInput = errors.New("invalid input")
	// ErrWeakPassword is returned when a password does not satisfy the password policy.
	ErrWeakPassword = errors.New("password must be at least 8 characters and contain an uppercase letter, a digit and one of @$!%*?&")
	// ErrInvalidCredentials is returned when email or password is incorrect.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrUnauthorized is returned when no bearer token was presented.
	ErrUnauthorized = errors.New("missing or malformed bearer token")
	// ErrInvalidToken is returned when a token fails signature, format or expiry checks.
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrForbidden is returned when the caller does not own the target resource.
	ErrForbidden = errors.New("forbidden")
	// ErrUserNotFound is returned when a user is not found.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserAlreadyExists is returned when a username or email is already taken.
	ErrUserAlreadyExists = errors.New("username or email already in use")
	// ErrArticleNotFound is returned when an article is not found.
	ErrArticleNotFound = errors.New("article not found")
	// ErrArticleExists is returned when the owner already has an article with that title.
	ErrArticleExists = errors.New("article already exists")
	// ErrUpstreamNotFound is returned when Wikipedia has no page for a title.
	ErrUpstreamNotFound = errors.New("article not found on wikipedia")
	// ErrUpstream is returned when Wikipedia could not be reached or answered garbage.
	ErrUpstream = errors.New("wikipedia request failed")
)

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error: e.Message,
		Code:  e.Code,
	}
}

var mappings = []struct {
	target error
	status int
	code   string
}{
	{ErrInvalidInput, http.StatusBadRequest, "INVALID_INPUT"},
	{ErrWeakPassword, http.StatusBadRequest, "WEAK_PASSWORD"},
	{ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
	{ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED"},
	{ErrInvalidToken, http.StatusForbidden, "INVALID_TOKEN"},
	{ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
	{ErrUserNotFound, http.StatusNotFound, "USER_NOT_FOUND"},
	{ErrArticleNotFound, http.StatusNotFound, "ARTICLE_NOT_FOUND"},
	{ErrUserAlreadyExists, http.StatusConflict, "USER_ALREADY_EXISTS"},
	{ErrArticleExists, http.StatusConflict, "ARTICLE_EXISTS"},
	{ErrUpstreamNotFound, http.StatusBadRequest, "UPSTREAM_NOT_FOUND"},
	{ErrUpstream, http.StatusBadGateway, "UPSTREAM_ERROR"},
}

// MapErrorToHTTP maps domain errors to HTTP errors. Wrapped errors keep the
// status of the sentinel they wrap and expose the full message; anything
// unknown becomes a generic 500 so store details never reach the client.
func MapErrorToHTTP(err error) *HTTPError {
	for _, m := range mappings {
		if errors.Is(err, m.target) {
			return NewHTTPError(m.status, err.Error(), m.code)
		}
	}
	return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
}

// IsInternal reports whether err maps to a 500.
func IsInternal(err error) bool {
	return MapErrorToHTTP(err).StatusCode == http.StatusInternalServerError
}
