package validation

import "errors"

var (
	ErrMissingFile      = errors.New("file is required")
	ErrMissingField     = errors.New("required form field missing")
	ErrInvalidWordCount = errors.New("word_count must be a non-negative integer")
	ErrFileTooLarge     = errors.New("upload exceeds size limit")
	ErrInvalidLanguage  = errors.New("unsupported target language")
	ErrMalformedForm    = errors.New("malformed multipart form")
)
