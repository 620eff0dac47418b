// Package apierr is the error model shared by every feature package.
// Handlers translate any error to an HTTP status and JSON body through it.
package apierr

import (
	"errors"
	"fmt"
	"log"
	"net/http"
)

type Code string

const (
	CodeValidation   Code = "VALIDATION"
	CodeConflict     Code = "CONFLICT"      // 資産が貸出不可など
	CodeInvalidState Code = "INVALID_STATE" // 状態遷移が許されない
	CodeForbidden    Code = "FORBIDDEN"
	CodeNotFound     Code = "NOT_FOUND"
	CodeDuplicate    Code = "DUPLICATE" // 返却済みなど（冪等性シグナル）
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeInternal     Code = "INTERNAL"
)

type APIError struct {
	Code       Code
	Message    string
	Entity     string
	ID         string
	Transition string
	State      string
	Err        error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

// On attaches the entity and id the error refers to.
func (e *APIError) On(entity, id string) *APIError {
	e.Entity, e.ID = entity, id
	return e
}

func ErrInvalid(msg string) *APIError  { return &APIError{Code: CodeValidation, Message: msg} }
func ErrConflict(msg string) *APIError { return &APIError{Code: CodeConflict, Message: msg} }
func ErrForbidden(action string) *APIError {
	return &APIError{Code: CodeForbidden, Message: "not allowed to " + action, Transition: action}
}
func ErrUnauthorized(msg string) *APIError { return &APIError{Code: CodeUnauthorized, Message: msg} }

func ErrNotFound(entity, id string) *APIError {
	return &APIError{Code: CodeNotFound, Message: entity + " not found", Entity: entity, ID: id}
}

func ErrDuplicate(entity, id, msg string) *APIError {
	return &APIError{Code: CodeDuplicate, Message: msg, Entity: entity, ID: id}
}

// ErrInvalidState reports a transition attempted from a state that does not allow it.
func ErrInvalidState(entity, id, transition, state string) *APIError {
	return &APIError{
		Code:       CodeInvalidState,
		Message:    fmt.Sprintf("cannot %s %s in state %s", transition, entity, state),
		Entity:     entity,
		ID:         id,
		Transition: transition,
		State:      state,
	}
}

func ErrInternal(msg string, err error) *APIError {
	return &APIError{Code: CodeInternal, Message: msg, Err: err}
}

func CodeOf(err error) Code {
	var api *APIError
	if errors.As(err, &api) {
		return api.Code
	}
	return CodeInternal
}

func Is(err error, code Code) bool {
	var api *APIError
	return errors.As(err, &api) && api.Code == code
}

// -------------- HTTP mapping --------------

func ToHTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeInvalidState, CodeDuplicate:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

type ErrorDTO struct {
	Error ErrorBodyDTO `json:"error"`
}

type ErrorBodyDTO struct {
	Code       Code   `json:"code"`
	Message    string `json:"message"`
	Entity     string `json:"entity,omitempty"`
	ID         string `json:"id,omitempty"`
	Transition string `json:"transition,omitempty"`
	State      string `json:"state,omitempty"`
}

func Body(code Code, msg string) ErrorDTO {
	return ErrorDTO{Error: ErrorBodyDTO{Code: code, Message: msg}}
}

// FromErr builds the response body. Internal details are logged, not returned.
func FromErr(err error) ErrorDTO {
	var api *APIError
	if !errors.As(err, &api) || api.Code == CodeInternal {
		log.Printf("[ERROR] %v", err)
		return Body(CodeInternal, "internal error")
	}
	return ErrorDTO{Error: ErrorBodyDTO{
		Code:       api.Code,
		Message:    api.Message,
		Entity:     api.Entity,
		ID:         api.ID,
		Transition: api.Transition,
		State:      api.State,
	}}
}
