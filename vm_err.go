package main

import (
	"fmt"
	"text/scanner"
)

// Err is an evaluation error tagged with the source position of the word
// being evaluated.
type Err struct {
	Pos scanner.Position
	Err error
}

func (e Err) Error() string {
	if e.Pos.Line == 0 {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename, e.Pos.Line, e.Pos.Column, e.Err)
}

func (e Err) Unwrap() error { return e.Err }
