package translator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
)

const (
	SpeedFast = "fast"

	OutputSuffix  = "_translated.epub"
	OutputPattern = "*.epub_translated.epub"
	ContentType   = "application/epub+zip"

	maxStderrDetail = 4096
)

var ErrOutputNotFound = errors.New("no such file: translated output not found")

// ToolError is returned when the translation command exits non-zero.
type ToolError struct {
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ToolError) Error() string {
	stderr := strings.TrimSpace(e.Stderr)
	if len(stderr) > maxStderrDetail {
		cut := len(stderr) - maxStderrDetail
		for cut < len(stderr) && !utf8.RuneStart(stderr[cut]) {
			cut++
		}
		stderr = stderr[cut:]
	}
	return fmt.Sprintf("Translation failed: %s", stderr)
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

type Options struct {
	Command       string
	BaseArgs      []string
	Provider      string
	FastModel     string
	StandardModel string
	APIKeyEnv     string
	APIKey        string
}

// Invocation describes one run of the external tool against a staged book.
type Invocation struct {
	BookPath string
	Speed    string
	Language string
}

type Result struct {
	OutputPath string
	Model      string
	Args       []string
	ExitCode   int
	Duration   time.Duration
}

type Translator struct {
	opts     Options
	runner   CommandRunner
	logger   *zap.Logger
	lookPath func(string) (string, error)
}

func NewTranslator(opts Options, logger *zap.Logger) *Translator {
	return NewTranslatorWithRunner(opts, &ExecRunner{}, logger)
}

func NewTranslatorWithRunner(opts Options, runner CommandRunner, logger *zap.Logger) *Translator {
	if opts.APIKeyEnv == "" {
		opts.APIKeyEnv = "OPENAI_API_KEY"
	}
	return &Translator{
		opts:     opts,
		runner:   runner,
		logger:   logger,
		lookPath: exec.LookPath,
	}
}

// ModelFor picks the model tier. Only the exact value "fast" selects the fast tier.
func (t *Translator) ModelFor(speed string) string {
	if speed == SpeedFast {
		return t.opts.FastModel
	}
	return t.opts.StandardModel
}

func (t *Translator) BuildArgs(inv Invocation) []string {
	args := make([]string, 0, len(t.opts.BaseArgs)+9)
	args = append(args, t.opts.BaseArgs...)
	args = append(args,
		"--book_name", inv.BookPath,
		"--model", t.opts.Provider,
		"--model_list", t.ModelFor(inv.Speed),
		"--language", inv.Language,
	)
	if inv.Speed == SpeedFast {
		args = append(args, "--test")
	}
	return args
}

func (t *Translator) Run(ctx context.Context, inv Invocation) (Result, error) {
	args := t.BuildArgs(inv)
	model := t.ModelFor(inv.Speed)

	t.logger.Info("Starting translation",
		zap.String("book", inv.BookPath),
		zap.String("model", model),
		zap.String("language", inv.Language),
		zap.Bool("test_mode", inv.Speed == SpeedFast),
	)

	start := time.Now()
	res, err := t.runner.Run(ctx, t.environ(), t.opts.Command, args...)
	elapsed := time.Since(start)

	result := Result{
		Model:    model,
		Args:     args,
		ExitCode: res.ExitCode,
		Duration: elapsed,
	}

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			t.logger.Warn("Translation interrupted",
				zap.String("book", inv.BookPath),
				zap.Duration("duration", elapsed),
				zap.Error(ctxErr),
			)
			return result, fmt.Errorf("run translator: %w", ctxErr)
		}
		t.logger.Error("Translation command failed",
			zap.String("book", inv.BookPath),
			zap.Int("exit_code", res.ExitCode),
			zap.String("stderr", res.Stderr),
			zap.Duration("duration", elapsed),
		)
		return result, &ToolError{ExitCode: res.ExitCode, Stderr: res.Stderr, Err: err}
	}

	output, err := FindOutput(inv.BookPath)
	if err != nil {
		t.logger.Error("Translated output missing",
			zap.String("book", inv.BookPath),
			zap.String("stdout", res.Stdout),
		)
		return result, err
	}
	result.OutputPath = output

	t.logger.Info("Translation completed",
		zap.String("output", output),
		zap.Duration("duration", elapsed),
	)

	return result, nil
}

// Check reports whether the configured command can be resolved.
func (t *Translator) Check() (string, error) {
	path, err := t.lookPath(t.opts.Command)
	if err != nil {
		return "", fmt.Errorf("translator command %q not found: %w", t.opts.Command, err)
	}
	return path, nil
}

func (t *Translator) environ() []string {
	env := os.Environ()
	return append(env, t.opts.APIKeyEnv+"="+t.opts.APIKey)
}

// FindOutput returns the first file matching OutputPattern in the book's
// directory. The predicted name next to the book wins when it matches too.
func FindOutput(bookPath string) (string, error) {
	predicted := bookPath + OutputSuffix
	if ok, _ := filepath.Match(OutputPattern, filepath.Base(predicted)); ok {
		if info, err := os.Stat(predicted); err == nil && !info.IsDir() {
			return predicted, nil
		}
	}

	matches, err := filepath.Glob(filepath.Join(filepath.Dir(bookPath), OutputPattern))
	if err != nil {
		return "", fmt.Errorf("glob output: %w", err)
	}
	if len(matches) == 0 {
		return "", ErrOutputNotFound
	}
	sort.Strings(matches)
	return matches[0], nil
}

// OutputFilename derives the download name from the uploaded file's stem.
func OutputFilename(original string) string {
	base := filepath.Base(original)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" || stem == "." || stem == string(filepath.Separator) {
		stem = "book"
	}
	return stem + "_translated.epub"
}
