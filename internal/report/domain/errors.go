package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound       = errors.New("not_found")
	ErrInvalidID      = errors.New("invalid_id")
	ErrInvalidSection = errors.New("invalid_section")
	ErrConflict       = errors.New("conflict")
	ErrRender         = errors.New("render_failed")
	ErrRenderBusy     = errors.New("render_in_progress")
)

// ValidationError names the first offending field of a request.
type ValidationError struct {
	Field string
	Code  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Code)
}

// TransactionError wraps a failed write. The transaction was rolled back.
type TransactionError struct {
	Op  string
	Err error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransactionError) Unwrap() error { return e.Err }

func (e *TransactionError) Is(target error) bool {
	return target == ErrConflict
}

// AssetError reports an asset that was replaced by a placeholder. It never
// aborts a render.
type AssetError struct {
	Asset string
	Err   error
}

func (e *AssetError) Error() string {
	return fmt.Sprintf("asset %s: %v", e.Asset, e.Err)
}

func (e *AssetError) Unwrap() error { return e.Err }

// RenderError is fatal for a render and records the stage it failed in.
type RenderError struct {
	Stage string
	Err   error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render failed at %s: %v", e.Stage, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

func (e *RenderError) Is(target error) bool {
	return target == ErrRender
}
