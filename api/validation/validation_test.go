package validation

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildForm(t *testing.T, fields map[string]string, filename string, content []byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	if filename != "" {
		part, err := writer.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/translate", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func validFields() map[string]string {
	return map[string]string{
		"translation_speed": "fast",
		"translation_mode":  "literary",
		"word_count":        "50000",
	}
}

func testRules() FormRules {
	return FormRules{
		MaxUploadBytes:  1024,
		DefaultLanguage: "zh-hans",
		AllowLanguage:   func(l string) bool { return l == "zh-hans" || l == "ja" },
	}
}

func TestParseTranslateForm_Valid(t *testing.T) {
	req := buildForm(t, validFields(), "novel.epub", []byte("PK\x03\x04"))

	form, err := ParseTranslateForm(httptest.NewRecorder(), req, testRules())
	require.NoError(t, err)
	defer form.File.Close()

	assert.Equal(t, "novel.epub", form.Request.OriginalFilename)
	assert.Equal(t, "fast", form.Request.Speed)
	assert.Equal(t, "literary", form.Request.Mode)
	assert.Equal(t, 50000, form.Request.WordCount)
	assert.Equal(t, "zh-hans", form.Request.TargetLanguage)
}

func TestParseTranslateForm_UnknownSpeedAndModeAccepted(t *testing.T) {
	fields := validFields()
	fields["translation_speed"] = "ludicrous"
	fields["translation_mode"] = "poetic"
	req := buildForm(t, fields, "novel.epub", []byte("x"))

	form, err := ParseTranslateForm(httptest.NewRecorder(), req, testRules())
	require.NoError(t, err)
	defer form.File.Close()

	assert.Equal(t, "ludicrous", form.Request.Speed)
	assert.Equal(t, "poetic", form.Request.Mode)
}

func TestParseTranslateForm_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(map[string]string)
		file    string
		content []byte
		want    error
	}{
		{name: "missing speed", mutate: func(f map[string]string) { delete(f, "translation_speed") }, file: "a.epub", want: ErrMissingField},
		{name: "missing mode", mutate: func(f map[string]string) { delete(f, "translation_mode") }, file: "a.epub", want: ErrMissingField},
		{name: "missing word count", mutate: func(f map[string]string) { delete(f, "word_count") }, file: "a.epub", want: ErrMissingField},
		{name: "non-integer word count", mutate: func(f map[string]string) { f["word_count"] = "lots" }, file: "a.epub", want: ErrInvalidWordCount},
		{name: "negative word count", mutate: func(f map[string]string) { f["word_count"] = "-5" }, file: "a.epub", want: ErrInvalidWordCount},
		{name: "bad language", mutate: func(f map[string]string) { f["target_language"] = "tlh" }, file: "a.epub", want: ErrInvalidLanguage},
		{name: "missing file", mutate: func(map[string]string) {}, want: ErrMissingFile},
		{name: "file too large", mutate: func(map[string]string) {}, file: "a.epub", content: bytes.Repeat([]byte("x"), 2048), want: ErrFileTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := validFields()
			tt.mutate(fields)
			req := buildForm(t, fields, tt.file, tt.content)

			_, err := ParseTranslateForm(httptest.NewRecorder(), req, testRules())
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParseTranslateForm_AllowedLanguage(t *testing.T) {
	fields := validFields()
	fields["target_language"] = "ja"
	req := buildForm(t, fields, "novel.epub", []byte("x"))

	form, err := ParseTranslateForm(httptest.NewRecorder(), req, testRules())
	require.NoError(t, err)
	defer form.File.Close()
	assert.Equal(t, "ja", form.Request.TargetLanguage)
}

func TestParseTranslateForm_NotMultipart(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/translate", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")

	_, err := ParseTranslateForm(httptest.NewRecorder(), req, testRules())
	assert.ErrorIs(t, err, ErrMalformedForm)
}

func TestDetectFileType(t *testing.T) {
	epub := append([]byte("PK\x03\x04"), make([]byte, 26)...)
	epub = append(epub, []byte("mimetypeapplication/epub+zip")...)

	tests := []struct {
		name    string
		content []byte
		want    FileType
	}{
		{"epub", epub, FileTypeEPUB},
		{"plain zip", append([]byte("PK\x03\x04"), make([]byte, 60)...), FileTypeZIP},
		{"text", []byte("hello"), FileTypeUnknown},
		{"empty", nil, FileTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := bytes.NewReader(tt.content)
			got, err := DetectFileType(r)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			pos, _ := r.Seek(0, 1)
			assert.Equal(t, int64(0), pos)
		})
	}
}
