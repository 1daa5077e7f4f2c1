package api

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"supportbot/types"
)

// DetailError is the 500 body shape for internal failures.
type DetailError struct {
	Detail string `json:"detail"`
}

// ErrorHandler maps pipeline failures onto HTTP responses. Retrieval,
// generation and persistence failures all become a 500 with the failure
// detail in the body; validation failures keep their 422 shape.
func ErrorHandler(c *fiber.Ctx, err error) error {
	if apiError, ok := err.(Error); ok {
		return c.Status(apiError.Code).JSON(apiError)
	}
	if valError, ok := err.(types.ValidationError); ok {
		return c.Status(valError.Status).JSON(valError)
	}

	var (
		retrievalErr   types.RetrievalError
		generationErr  types.GenerationError
		persistenceErr types.PersistenceError
	)
	if errors.As(err, &retrievalErr) || errors.As(err, &generationErr) || errors.As(err, &persistenceErr) {
		curTime := time.Now()
		fmt.Printf("%s Request failed: %s\n", &curTime, err.Error())
		return c.Status(fiber.StatusInternalServerError).JSON(DetailError{Detail: err.Error()})
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(NewError(fiberErr.Code, fiberErr.Message))
	}

	return c.Status(fiber.StatusInternalServerError).JSON(DetailError{Detail: err.Error()})
}

type Error struct {
	Code    int    `json:"code"`
	Message string `json:"error"`
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
