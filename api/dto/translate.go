package dto

import "errors"

var ErrJobNotFound = errors.New("job not found")

type TranslateRequest struct {
	OriginalFilename string
	Speed            string
	Mode             string
	WordCount        int
	TargetLanguage   string
}

type JobResponse struct {
	ID               string  `json:"id"`
	TraceID          string  `json:"trace_id,omitempty"`
	OriginalFilename string  `json:"original_filename,omitempty"`
	Speed            string  `json:"translation_speed,omitempty"`
	Mode             string  `json:"translation_mode,omitempty"`
	WordCount        int     `json:"word_count,omitempty"`
	TargetLanguage   string  `json:"target_language,omitempty"`
	Model            string  `json:"model,omitempty"`
	Status           string  `json:"status"`
	ErrorMessage     string  `json:"error_message,omitempty"`
	CreatedAt        string  `json:"created_at,omitempty"`
	CompletedAt      *string `json:"completed_at,omitempty"`
}

type QuoteResponse struct {
	WordCount int    `json:"word_count"`
	Speed     string `json:"translation_speed"`
	Price     string `json:"price"`
	Currency  string `json:"currency"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

type ReadinessCheck struct {
	Name    string `json:"name"`
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

type ReadinessResponse struct {
	Status string           `json:"status"`
	Checks []ReadinessCheck `json:"checks"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Detail  string `json:"detail,omitempty"`
	Code    string `json:"code,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}
