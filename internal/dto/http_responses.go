package dto

import (
	"net/http"

	"github.com/wb-go/wbf/ginext"
)

const (
	FieldBadFormat     = "FIELD_BADFORMAT"
	FieldIncorrect     = "FIELD_INCORRECT"
	ServiceUnavailable = "SERVICE_UNAVAILABLE"
	InternalError      = "Service is currently unavailable. Please try again later."

	EventNotFound        = "EVENT_NOT_FOUND"
	RegistrationNotFound = "REGISTRATION_NOT_FOUND"
	Unauthorized         = "UNAUTHORIZED"
)

type Response struct {
	Status string `json:"status"`
	Error  *Error `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

type Error struct {
	Code string `json:"code"`
	Desc string `json:"desc"`
}

// ActionResult is what every mutating action hands back to its caller.
// Errors carries field-keyed validation messages for form actions.
type ActionResult struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
	Data    any               `json:"data,omitempty"`
}

func Ok(message string) ActionResult {
	return ActionResult{Success: true, Message: message}
}

func Fail(message string) ActionResult {
	return ActionResult{Success: false, Message: message}
}

func Invalid(fields map[string]string) ActionResult {
	return ActionResult{Success: false, Message: "Error: Please check your input.", Errors: fields}
}

func BadResponseError(c *ginext.Context, code, desc string) {
	c.JSON(http.StatusBadRequest, Response{
		Status: "error",
		Error: &Error{
			Code: code,
			Desc: desc,
		},
	})
}

func NotFoundError(c *ginext.Context, code, desc string) {
	c.JSON(http.StatusNotFound, Response{
		Status: "error",
		Error: &Error{
			Code: code,
			Desc: desc,
		},
	})
}

func UnauthorizedError(c *ginext.Context, desc string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
		Status: "error",
		Error: &Error{
			Code: Unauthorized,
			Desc: desc,
		},
	})
}

func InternalServerError(c *ginext.Context) {
	c.JSON(http.StatusInternalServerError, Response{
		Status: "error",
		Error: &Error{
			Code: ServiceUnavailable,
			Desc: InternalError,
		},
	})
}

func FieldBadFormatError(c *ginext.Context, fieldName string) {
	BadResponseError(c, FieldBadFormat, "Field '"+fieldName+"' has bad format")
}

func EventNotFoundError(c *ginext.Context) {
	NotFoundError(c, EventNotFound, "Event not found")
}

func RegistrationNotFoundError(c *ginext.Context) {
	NotFoundError(c, RegistrationNotFound, "Registration not found")
}

func SuccessResponse(c *ginext.Context, data any) {
	c.JSON(http.StatusOK, Response{
		Status: "ok",
		Data:   data,
	})
}

// ActionResponse writes an action result. Failures are reported with 422 so
// clients can branch on status while still reading the message body.
func ActionResponse(c *ginext.Context, res ActionResult) {
	code := http.StatusOK
	if !res.Success {
		code = http.StatusUnprocessableEntity
	}
	c.JSON(code, res)
}

func ActionCreatedResponse(c *ginext.Context, res ActionResult) {
	if !res.Success {
		ActionResponse(c, res)
		return
	}
	c.JSON(http.StatusCreated, res)
}
