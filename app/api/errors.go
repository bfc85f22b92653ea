package api

import (
	"errors"
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandler is the single place failures become wire responses. Typed
// errors keep their status; everything else is reported as an internal
// error without leaking the cause to the client.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var apiError Error
	if errors.As(err, &apiError) {
		return c.Status(apiError.Code).JSON(apiError)
	}

	var valError ValidationError
	if errors.As(err, &valError) {
		return c.Status(valError.Status).JSON(valError)
	}

	var fiberError *fiber.Error
	if errors.As(err, &fiberError) {
		apiError = NewError(fiberError.Code, fiberError.Message)
		return c.Status(apiError.Code).JSON(apiError)
	}

	log.Printf("[ERROR] request failed: %s %s: %s", c.Method(), c.Path(), err)
	apiError = NewError(fiber.StatusInternalServerError, "internal server error")
	return c.Status(apiError.Code).JSON(apiError)
}

type Error struct {
	Code    int    `json:"code"`
	Message string `json:"error"`
}

type ValidationError struct {
	Status int               `json:"status"`
	Errors map[string]string `json:"errors"`
}

func (e ValidationError) Error() string {
	return "validation failed"
}

func NewValidationError(errors map[string]string) ValidationError {
	return ValidationError{
		Status: fiber.StatusUnprocessableEntity,
		Errors: errors,
	}
}

// Error implements the error interface
func (e Error) Error() string {
	return e.Message
}

func NewError(code int, err string) Error {
	return Error{
		Code:    code,
		Message: err,
	}
}

func ErrBadRequest() Error {
	return Error{
		Code:    fiber.StatusBadRequest,
		Message: "invalid JSON request",
	}
}

func ErrInvalidID() Error {
	return Error{
		Code:    fiber.StatusBadRequest,
		Message: "invalid id given",
	}
}

func ErrNotFound[T any](arg T, resource string) Error {
	return Error{
		Code:    fiber.StatusNotFound,
		Message: fmt.Sprintf("%s with %v not found", resource, arg),
	}
}
