package handlers

import (
	"context"
	"io"
	"mime"
	"net/http"
	"os"
	"strings"

	"go.uber.org/zap"

	"babelBridge/api/dto"
	"babelBridge/api/middleware"
	"babelBridge/api/pricing"
	"babelBridge/api/service"
	"babelBridge/api/validation"
)

type TranslationService interface {
	Translate(ctx context.Context, traceID string, req *dto.TranslateRequest, file io.Reader) (*service.TranslateResult, error)
	GetJob(ctx context.Context, jobID string) (*dto.JobResponse, error)
}

type TranslateHandler struct {
	service TranslationService
	rules   validation.FormRules
	logger  *zap.Logger
}

func NewTranslateHandler(service TranslationService, rules validation.FormRules, logger *zap.Logger) *TranslateHandler {
	return &TranslateHandler{
		service: service,
		rules:   rules,
		logger:  logger,
	}
}

// Translate handles POST /translate.
func (h *TranslateHandler) Translate(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetTraceID(r.Context())

	form, err := validation.ParseTranslateForm(w, r, h.rules)
	if err != nil {
		writeError(w, h.logger, traceID, err)
		return
	}
	// Temp files are removed after the upload handle is closed.
	defer func() {
		if r.MultipartForm != nil {
			r.MultipartForm.RemoveAll()
		}
	}()
	defer form.File.Close()

	if fileType, err := validation.DetectFileType(form.File); err == nil && fileType != validation.FileTypeEPUB {
		h.logger.Warn("Upload does not look like an EPUB",
			zap.String("trace_id", traceID),
			zap.String("filename", form.Header.Filename),
			zap.String("detected", string(fileType)),
		)
	}

	result, err := h.service.Translate(r.Context(), traceID, form.Request, form.File)
	if err != nil {
		writeError(w, h.logger, traceID, err)
		return
	}
	defer result.Cleanup()

	h.sendFile(w, r, traceID, result)
}

func (h *TranslateHandler) sendFile(w http.ResponseWriter, r *http.Request, traceID string, result *service.TranslateResult) {
	f, err := os.Open(result.OutputPath)
	if err != nil {
		writeError(w, h.logger, traceID, err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		writeError(w, h.logger, traceID, err)
		return
	}

	w.Header().Set("Content-Type", result.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": result.DownloadFilename,
	}))
	w.Header().Set("X-Job-ID", result.JobID)

	h.logger.Info("Sending translated file",
		zap.String("trace_id", traceID),
		zap.String("job_id", result.JobID),
		zap.String("filename", result.DownloadFilename),
		zap.Int64("size", info.Size()),
	)

	http.ServeContent(w, r, result.DownloadFilename, info.ModTime(), f)
}

// Job handles GET /jobs/{id}.
func (h *TranslateHandler) Job(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetTraceID(r.Context())

	jobID := strings.TrimSpace(r.PathValue("id"))
	if jobID == "" {
		writeError(w, h.logger, traceID, dto.ErrJobNotFound)
		return
	}

	resp, err := h.service.GetJob(r.Context(), jobID)
	if err != nil {
		writeError(w, h.logger, traceID, err)
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

// Quote handles GET /quote.
func (h *TranslateHandler) Quote(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetTraceID(r.Context())
	q := r.URL.Query()

	wordCount, err := validation.ParseWordCount(q.Get("word_count"))
	if err != nil {
		writeError(w, h.logger, traceID, err)
		return
	}
	speed := q.Get("translation_speed")

	cents, err := pricing.Cents(wordCount, speed)
	if err != nil {
		writeError(w, h.logger, traceID, validation.ErrInvalidWordCount)
		return
	}

	respondJSON(w, http.StatusOK, dto.QuoteResponse{
		WordCount: wordCount,
		Speed:     speed,
		Price:     pricing.Format(cents),
		Currency:  pricing.Currency,
	})
}
