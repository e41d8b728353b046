package ast

import (
	"errors"
	"fmt"
)

// ErrUnknownStatementKind is matched by every UnknownStatementKindError.
var ErrUnknownStatementKind = errors.New("unknown statement kind")

// UnknownStatementKindError reports a node outside of the closed variant set.
// It is an internal invariant violation, never a problem with user input.
type UnknownStatementKindError struct {
	Pos  Position
	Type string
}

func (e *UnknownStatementKindError) Error() string {
	return fmt.Sprintf("%s: unknown statement kind %s", e.Pos, e.Type)
}

func (e *UnknownStatementKindError) Is(target error) bool {
	return target == ErrUnknownStatementKind
}

func unknownKind(s Statement) error {
	e := &UnknownStatementKindError{Type: TypeName(s)}
	if s != nil {
		e.Pos = s.Pos()
	}
	return e
}
