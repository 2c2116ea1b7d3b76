package http

import "github.com/gofiber/fiber/v2"

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`    // Error code: bad_request, not_found, internal_error, etc.
	Message   string `json:"message"` // Human-readable message
	RequestID string `json:"request_id,omitempty"`
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code string, message string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: reqID,
	})
}

// errBadRequest returns a 400 error.
func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusBadRequest, "bad_request", msg)
}

// errNotFound returns a 404 error.
func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusNotFound, "not_found", msg)
}

// errTooManyRequests returns a 429 error.
func errTooManyRequests(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusTooManyRequests, "rate_limited", msg)
}

// ErrorHandler renders errors that escape handlers, including recovered panics,
// as APIError JSON.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	switch code {
	case fiber.StatusNotFound:
		return errNotFound(c, err.Error())
	case fiber.StatusInternalServerError:
		return newError(c, code, "internal_error", "internal server error")
	case fiber.StatusRequestTimeout:
		return newError(c, code, "timeout", err.Error())
	default:
		return newError(c, code, "error", err.Error())
	}
}
