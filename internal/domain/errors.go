package domain

import (
	"errors"
	"fmt"
)

// Kind 错误分类，HTTP 层据此映射状态码
type Kind string

const (
	KindNotFound     Kind = "not_found"
	KindForeignCamp  Kind = "foreign_camp"
	KindNoCapacity   Kind = "no_capacity"
	KindDuplicateKey Kind = "duplicate_key"
	KindValidation   Kind = "validation"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
)

// Error is a classified failure returned by services.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrNoCapacity) works
// regardless of the message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrForeignCamp  = &Error{Kind: KindForeignCamp}
	ErrNoCapacity   = &Error{Kind: KindNoCapacity}
	ErrDuplicateKey = &Error{Kind: KindDuplicateKey}
	ErrValidation   = &Error{Kind: KindValidation}
	ErrUnauthorized = &Error{Kind: KindUnauthorized}
	ErrForbidden    = &Error{Kind: KindForbidden}
)

func newError(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) error { return newError(KindNotFound, format, args...) }

func ForeignCamp(format string, args ...any) error {
	return newError(KindForeignCamp, format, args...)
}

func NoCapacity(format string, args ...any) error {
	return newError(KindNoCapacity, format, args...)
}

func DuplicateKey(format string, args ...any) error {
	return newError(KindDuplicateKey, format, args...)
}

func Validation(format string, args ...any) error {
	return newError(KindValidation, format, args...)
}

func Unauthorized(format string, args ...any) error {
	return newError(KindUnauthorized, format, args...)
}

func Forbidden(format string, args ...any) error {
	return newError(KindForbidden, format, args...)
}

// KindOf returns the kind of a classified error, or "" for anything else.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
