package analysis

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind names one leaf of the error taxonomy. Values are stable and are persisted.
type ErrorKind string

const (
	KindEmptyCode          ErrorKind = "empty_code"
	KindNoTargetLanguages  ErrorKind = "no_target_languages"
	KindInvalidLanguage    ErrorKind = "invalid_language"
	KindSourceEqualsTarget ErrorKind = "source_equals_target"

	KindNetwork      ErrorKind = "network"
	KindTimeout      ErrorKind = "timeout"
	KindServerError  ErrorKind = "server_error"
	KindUnauthorized ErrorKind = "unauthorized"

	KindMissingTranslation ErrorKind = "missing_translation"
	KindMalformedField     ErrorKind = "malformed_field"

	KindAllTranslationsFailed ErrorKind = "all_translations_failed"

	KindCancelled         ErrorKind = "cancelled"
	KindAlreadyInProgress ErrorKind = "already_in_progress"
	KindInternal          ErrorKind = "internal"
)

var (
	// ErrCancelled is the terminal error of a cancelled submission.
	ErrCancelled = errors.New("analysis cancelled")
	// ErrAlreadyInProgress is returned by a controller that already runs a submission.
	ErrAlreadyInProgress = errors.New("analysis already in progress")
	// ErrNotFound is returned by a Repository for an unknown submission id.
	ErrNotFound = errors.New("submission not found")
)

// ValidationError is fatal and never retried.
type ValidationError struct {
	Kind     ErrorKind
	Language string // offending language for InvalidLanguage / SourceEqualsTarget
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case KindEmptyCode:
		return "source code is empty"
	case KindNoTargetLanguages:
		return "at least one target language is required"
	case KindInvalidLanguage:
		return fmt.Sprintf("unsupported language: %q", e.Language)
	case KindSourceEqualsTarget:
		return fmt.Sprintf("target languages must not contain the source language %s", e.Language)
	default:
		return "invalid request: " + string(e.Kind)
	}
}

// TransportError covers every way a dispatch can fail to produce a body.
type TransportError struct {
	Kind   ErrorKind
	Status int // HTTP status for KindServerError / KindUnauthorized, 0 otherwise
	Err    error
}

func (e *TransportError) Error() string {
	msg := "engine " + string(e.Kind)
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TransportError) Unwrap() error { return e.Err }

// Transient reports whether another attempt could succeed.
func (e *TransportError) Transient() bool {
	switch e.Kind {
	case KindNetwork, KindTimeout:
		return true
	case KindServerError:
		return e.Status >= 500 && e.Status <= 599
	default:
		return false
	}
}

// AsTransportError coerces any dispatch failure into a TransportError so the retry
// policy always has a kind to look at.
func AsTransportError(err error) *TransportError {
	if err == nil {
		return nil
	}
	var te *TransportError
	if errors.As(err, &te) {
		return te
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &TransportError{Kind: KindTimeout, Err: err}
	}
	return &TransportError{Kind: KindNetwork, Err: err}
}

// StatusError classifies a non-2xx engine reply: 401/403 are Unauthorized, every
// other status is a ServerError carrying that status.
func StatusError(status int, err error) *TransportError {
	if status == 401 || status == 403 {
		return &TransportError{Kind: KindUnauthorized, Status: status, Err: err}
	}
	return &TransportError{Kind: KindServerError, Status: status, Err: err}
}

// NormalizationError is isolated to one target language.
type NormalizationError struct {
	Kind  ErrorKind `json:"kind"`
	Field string    `json:"field,omitempty"`
}

func (e *NormalizationError) Error() string {
	if e.Kind == KindMalformedField {
		return fmt.Sprintf("malformed field %q", e.Field)
	}
	return "translation missing from engine response"
}

func MissingTranslation() *NormalizationError {
	return &NormalizationError{Kind: KindMissingTranslation}
}

func MalformedField(field string) *NormalizationError {
	return &NormalizationError{Kind: KindMalformedField, Field: field}
}

// AggregateError fails the whole outcome: no requested language produced a translation.
type AggregateError struct {
	Kind     ErrorKind
	Failures map[Language]*NormalizationError
}

func (e *AggregateError) Error() string {
	return fmt.Sprintf("all %d requested translations failed", len(e.Failures))
}

// KindOf returns the taxonomy kind of any error produced by this package.
func KindOf(err error) ErrorKind {
	var (
		ve *ValidationError
		te *TransportError
		ne *NormalizationError
		ae *AggregateError
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrCancelled):
		return KindCancelled
	case errors.Is(err, ErrAlreadyInProgress):
		return KindAlreadyInProgress
	case errors.As(err, &ve):
		return ve.Kind
	case errors.As(err, &te):
		return te.Kind
	case errors.As(err, &ne):
		return ne.Kind
	case errors.As(err, &ae):
		return ae.Kind
	default:
		return KindInternal
	}
}

// Category groups failures by what the user should do about them.
type Category string

const (
	CategoryFixInput    Category = "fix_input"
	CategoryRetry       Category = "retry"
	CategoryUnavailable Category = "unavailable"
	CategoryCancelled   Category = "cancelled"
	CategoryBusy        Category = "busy"
)

// Advise maps a terminal error to a category and one actionable sentence.
func Advise(err error) (Category, string) {
	var (
		ve *ValidationError
		te *TransportError
		ae *AggregateError
	)
	switch {
	case errors.Is(err, ErrCancelled):
		return CategoryCancelled, "The analysis was cancelled."
	case errors.Is(err, ErrAlreadyInProgress):
		return CategoryBusy, "An analysis is already running; wait for it to finish."
	case errors.As(err, &ve):
		return CategoryFixInput, "Fix your input: " + ve.Error() + "."
	case errors.As(err, &te):
		if te.Transient() {
			return CategoryRetry, "The analysis engine did not respond in time. Please try again."
		}
		return CategoryUnavailable, "The analysis service is unavailable."
	case errors.As(err, &ae):
		return CategoryRetry, "The engine returned no usable translation. Please try again."
	default:
		return CategoryUnavailable, "The analysis service is unavailable."
	}
}
