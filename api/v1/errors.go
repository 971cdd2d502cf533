package v1

import "errors"

var (
	ErrStartCtx     = errors.New("start request missing in context")
	ErrActionCtx    = errors.New("action missing in context")
	ErrSourceJSON   = errors.New("magnetOrUrl is required")
	ErrActionJSON   = errors.New("action must be pause or resume")
	ErrTitleParam   = errors.New("title query parameter is required")
	ErrContentType  = errors.New("Content-Type must be application/json")
)
