// Package moderr carries the error categories handlers branch on. Callers
// match on the kind, never on message text.
package moderr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindAuthorization
	KindNotFound
	KindTransient
	KindPersistence
)

// GenericCode tags the catch-all failure message so operators can
// cross-reference it in the docs.
const GenericCode = "ERR-MOD-1"

type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

func Wrap(kind Kind, msg string, err error) error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf walks the chain and returns the first tagged kind, or KindUnknown.
func KindOf(err error) Kind {
	var tagged *Error
	if errors.As(err, &tagged) {
		return tagged.Kind
	}
	return KindUnknown
}

func IsValidation(err error) bool    { return KindOf(err) == KindValidation }
func IsAuthorization(err error) bool { return KindOf(err) == KindAuthorization }
func IsNotFound(err error) bool      { return KindOf(err) == KindNotFound }
func IsTransient(err error) bool     { return KindOf(err) == KindTransient }
func IsPersistence(err error) bool   { return KindOf(err) == KindPersistence }
