package ir

import "fmt"

// Error is returned when Parse fails, e.g. on unmatched brackets.
type Error struct {
	Msg string
	Pos Position
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s at line %d col %d (offset %d)", e.Msg, e.Pos.Line, e.Pos.Column, e.Pos.Offset)
}
