package types

import (
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
)

type Validater interface {
	Validate() map[string]string
}

// ChatRequest is the boundary input for the chat endpoints. SessionID is
// optional: when empty a new session is minted.
type ChatRequest struct {
	Input     string `json:"input" validate:"required"`
	SessionID string `json:"session_id"`
}

// ChatResponse is the boundary output for the chat endpoints.
type ChatResponse struct {
	SessionID        string            `json:"session_id"`
	Response         string            `json:"response"`
	SimilarityScores []SimilarityScore `json:"similarity_scores"`
	Sources          []string          `json:"sources"`
}

func Validate(v Validater) map[string]string {
	return v.Validate()
}

func (params *ChatRequest) Validate() map[string]string {
	validate := validator.New()
	if err := validate.Struct(params); err != nil {
		errs := err.(validator.ValidationErrors)
		errors := make(map[string]string)
		for _, e := range errs {
			errors[e.Field()] = fmt.Sprintf("failed on '%s' tag", e.Tag())
		}
		return errors
	}
	return nil
}

func NewValidationError(errors map[string]string) ValidationError {
	return ValidationError{
		Status: http.StatusUnprocessableEntity,
		Errors: errors,
	}
}

type ValidationError struct {
	Status int               `json:"status"`
	Errors map[string]string `json:"errors"`
}

func (e ValidationError) Error() string {
	return "validation failed"
}
