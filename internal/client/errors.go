package client

import "errors"

var ErrNotAuthenticated = errors.New("not signed in")

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// Canned messages per client, keyed by HTTP status. Statuses without an
// entry use the server's message.
var (
	authMessages = map[int]string{
		401: "Invalid email or password",
		403: "Access forbidden",
		404: "Service not found",
		500: "Internal server error",
	}
	requestMessages = map[int]string{
		401: "Unauthorized access. Please login again.",
		403: "Access forbidden. You do not have permission.",
		404: "Request not found.",
		500: "Internal server error. Please try again later.",
	}
	companyMessages = map[int]string{
		401: "Unauthorized access. Please login again.",
		403: "Access forbidden. You do not have permission.",
		404: "Company not found.",
		409: "Company already exists.",
		500: "Internal server error. Please try again later.",
	}
	userMessages = map[int]string{
		401: "Unauthorized access. Please login again.",
		403: "Access forbidden. You do not have permission.",
		404: "Resource not found.",
		409: "Resource already exists.",
		500: "Internal server error. Please try again later.",
	}
	notificationMessages = map[int]string{
		401: "Unauthorized access. Please login again.",
		404: "Notification not found.",
		500: "Internal server error. Please try again later.",
	}
)
