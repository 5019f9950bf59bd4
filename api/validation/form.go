package validation

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"babelBridge/api/dto"
)

// FormRules carries the settings the translate form is checked against.
type FormRules struct {
	MaxUploadBytes  int64
	DefaultLanguage string
	AllowLanguage   func(string) bool
}

// TranslateForm is a parsed POST /translate body.
type TranslateForm struct {
	Request *dto.TranslateRequest
	File    multipart.File
	Header  *multipart.FileHeader
}

// ParseTranslateForm parses and validates the multipart body. On success the
// caller owns Form.File and must close it.
func ParseTranslateForm(w http.ResponseWriter, r *http.Request, rules FormRules) (*TranslateForm, error) {
	// Leave headroom for the text fields on top of the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, rules.MaxUploadBytes+1<<20)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, ErrFileTooLarge
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedForm, err)
	}

	speed, err := requiredField(r, "translation_speed")
	if err != nil {
		return nil, err
	}
	mode, err := requiredField(r, "translation_mode")
	if err != nil {
		return nil, err
	}
	rawCount, err := requiredField(r, "word_count")
	if err != nil {
		return nil, err
	}
	wordCount, err := ParseWordCount(rawCount)
	if err != nil {
		return nil, err
	}

	language := strings.TrimSpace(r.FormValue("target_language"))
	if language == "" {
		language = rules.DefaultLanguage
	} else if rules.AllowLanguage != nil && !rules.AllowLanguage(language) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidLanguage, language)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, ErrMissingFile
	}
	if header.Size > rules.MaxUploadBytes {
		file.Close()
		return nil, ErrFileTooLarge
	}

	return &TranslateForm{
		Request: &dto.TranslateRequest{
			OriginalFilename: header.Filename,
			Speed:            speed,
			Mode:             mode,
			WordCount:        wordCount,
			TargetLanguage:   language,
		},
		File:   file,
		Header: header,
	}, nil
}

func ParseWordCount(raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return 0, ErrInvalidWordCount
	}
	return n, nil
}

func requiredField(r *http.Request, name string) (string, error) {
	values, ok := r.MultipartForm.Value[name]
	if !ok || len(values) == 0 {
		return "", fmt.Errorf("%w: %s", ErrMissingField, name)
	}
	return values[0], nil
}
