package studio

import "errors"

var (
	ErrNoCredits            = errors.New("studio: no credits left")
	ErrGenerationInProgress = errors.New("studio: a generation is already in progress")
	ErrNoSession            = errors.New("studio: no generation to refine")
)
