package main

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrConfiguration     = errors.New("invalid configuration")
	ErrSourceLoad        = errors.New("audio source cannot be loaded")
	ErrCompile           = errors.New("compilation failed")
	ErrLink              = errors.New("link failed")
	ErrNotInitialized    = errors.New("not initialized")
	ErrResourceExhausted = errors.New("resource exhausted")
)

// ConfigurationError reports a rejected setting. It is the caller's fault
// and never retried internally.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrConfiguration, e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

func configErrorf(field, format string, args ...any) error {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

type SourceLoadError struct {
	Source string
	Err    error
}

func (e *SourceLoadError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", ErrSourceLoad, e.Source)
	}
	return fmt.Sprintf("%s: %s: %s", ErrSourceLoad, e.Source, e.Err)
}

func (e *SourceLoadError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrSourceLoad}
	}
	return []error{ErrSourceLoad, e.Err}
}

type CompileStage string

const (
	StageVertex   CompileStage = "vertex"
	StageFragment CompileStage = "fragment"
	StageLink     CompileStage = "link"
	StageSketch   CompileStage = "sketch"
)

// CompileError carries the backend diagnostic text of a failed compile or
// link. Link failures unwrap to ErrLink, everything else to ErrCompile.
type CompileError struct {
	Stage CompileStage
	Log   []string
}

func (e *CompileError) Error() string {
	prefix := ErrCompile
	if e.Stage == StageLink {
		prefix = ErrLink
	}
	return fmt.Sprintf("%s (%s): %s", prefix, e.Stage, strings.Join(e.Log, "; "))
}

func (e *CompileError) Unwrap() error {
	if e.Stage == StageLink {
		return ErrLink
	}
	return ErrCompile
}

func notInitialized(op string) error {
	return fmt.Errorf("%s: %w", op, ErrNotInitialized)
}
