package translator

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeRunner struct {
	calls int
	run   func(ctx context.Context, env []string, name string, args ...string) (CommandResult, error)
}

func (f *fakeRunner) Run(ctx context.Context, env []string, name string, args ...string) (CommandResult, error) {
	f.calls++
	if f.run == nil {
		return CommandResult{}, nil
	}
	return f.run(ctx, env, name, args...)
}

func testOptions() Options {
	return Options{
		Command:       "python3",
		BaseArgs:      []string{"-m", "bbook_maker.make_book"},
		Provider:      "openai",
		FastModel:     "gpt-3.5-turbo",
		StandardModel: "gpt-4",
		APIKey:        "sk-test",
	}
}

func argValue(args []string, flag string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}

func hasArg(args []string, flag string) bool {
	for _, a := range args {
		if a == flag {
			return true
		}
	}
	return false
}

func stageBook(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("PK\x03\x04book"), 0o644))
	return path
}

func TestBuildArgs_FastAddsTestFlagAndFastModel(t *testing.T) {
	tr := NewTranslatorWithRunner(testOptions(), &fakeRunner{}, zaptest.NewLogger(t))

	args := tr.BuildArgs(Invocation{BookPath: "/up/1/novel.epub", Speed: "fast", Language: "zh-hans"})

	assert.Equal(t, []string{
		"-m", "bbook_maker.make_book",
		"--book_name", "/up/1/novel.epub",
		"--model", "openai",
		"--model_list", "gpt-3.5-turbo",
		"--language", "zh-hans",
		"--test",
	}, args)
}

func TestBuildArgs_NonFastSpeeds(t *testing.T) {
	tr := NewTranslatorWithRunner(testOptions(), &fakeRunner{}, zaptest.NewLogger(t))

	for _, speed := range []string{"standard", "", "FAST", "快速", "slow"} {
		t.Run(speed, func(t *testing.T) {
			args := tr.BuildArgs(Invocation{BookPath: "novel.epub", Speed: speed, Language: "zh-hans"})
			assert.False(t, hasArg(args, "--test"))
			assert.Equal(t, "gpt-4", argValue(args, "--model_list"))
		})
	}
}

func TestRun_PassesAPIKeyAndReturnsPredictedOutput(t *testing.T) {
	book := stageBook(t, "novel.epub")

	var gotEnv []string
	var gotName string
	runner := &fakeRunner{
		run: func(ctx context.Context, env []string, name string, args ...string) (CommandResult, error) {
			gotEnv = env
			gotName = name
			require.NoError(t, os.WriteFile(argValue(args, "--book_name")+OutputSuffix, []byte("out"), 0o644))
			return CommandResult{Stdout: "done"}, nil
		},
	}

	tr := NewTranslatorWithRunner(testOptions(), runner, zaptest.NewLogger(t))
	res, err := tr.Run(context.Background(), Invocation{BookPath: book, Speed: "standard", Language: "zh-hans"})
	require.NoError(t, err)

	assert.Equal(t, "python3", gotName)
	assert.Contains(t, gotEnv, "OPENAI_API_KEY=sk-test")
	assert.Equal(t, book+OutputSuffix, res.OutputPath)
	assert.Equal(t, "gpt-4", res.Model)
}

func TestRun_NonZeroExitSkipsOutputLookup(t *testing.T) {
	book := stageBook(t, "novel.epub")
	// A stale artifact must not be returned when the tool fails.
	require.NoError(t, os.WriteFile(book+OutputSuffix, []byte("stale"), 0o644))

	runner := &fakeRunner{
		run: func(ctx context.Context, env []string, name string, args ...string) (CommandResult, error) {
			return CommandResult{Stderr: "rate limit exceeded", ExitCode: 1}, errors.New("exit status 1")
		},
	}

	tr := NewTranslatorWithRunner(testOptions(), runner, zaptest.NewLogger(t))
	res, err := tr.Run(context.Background(), Invocation{BookPath: book, Speed: "fast", Language: "zh-hans"})
	require.Error(t, err)

	var toolErr *ToolError
	require.True(t, errors.As(err, &toolErr))
	assert.Equal(t, 1, toolErr.ExitCode)
	assert.Contains(t, err.Error(), "rate limit exceeded")
	assert.Empty(t, res.OutputPath)
}

func TestRun_MissingOutput(t *testing.T) {
	book := stageBook(t, "novel.epub")
	tr := NewTranslatorWithRunner(testOptions(), &fakeRunner{}, zaptest.NewLogger(t))

	_, err := tr.Run(context.Background(), Invocation{BookPath: book, Speed: "standard", Language: "zh-hans"})
	assert.ErrorIs(t, err, ErrOutputNotFound)
}

func TestRun_CancelledContext(t *testing.T) {
	book := stageBook(t, "novel.epub")
	ctx, cancel := context.WithCancel(context.Background())

	runner := &fakeRunner{
		run: func(ctx context.Context, env []string, name string, args ...string) (CommandResult, error) {
			cancel()
			return CommandResult{ExitCode: -1}, errors.New("signal: killed")
		},
	}

	tr := NewTranslatorWithRunner(testOptions(), runner, zaptest.NewLogger(t))
	_, err := tr.Run(ctx, Invocation{BookPath: book, Speed: "standard", Language: "zh-hans"})
	assert.ErrorIs(t, err, context.Canceled)

	var toolErr *ToolError
	assert.False(t, errors.As(err, &toolErr))
}

func TestFindOutput_GlobFallbackFirstMatch(t *testing.T) {
	dir := t.TempDir()
	book := filepath.Join(dir, "novel.epub")
	for _, name := range []string{"b.epub_translated.epub", "a.epub_translated.epub", "novel_bilingual.epub"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}

	out, err := FindOutput(book)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "a.epub_translated.epub"), out)
}

func TestRun_PredictedNameMustMatchPattern(t *testing.T) {
	book := stageBook(t, "novel.txt")

	runner := &fakeRunner{
		run: func(ctx context.Context, env []string, name string, args ...string) (CommandResult, error) {
			require.NoError(t, os.WriteFile(argValue(args, "--book_name")+OutputSuffix, []byte("out"), 0o644))
			return CommandResult{}, nil
		},
	}

	tr := NewTranslatorWithRunner(testOptions(), runner, zaptest.NewLogger(t))
	_, err := tr.Run(context.Background(), Invocation{BookPath: book, Speed: "fast", Language: "zh-hans"})
	assert.ErrorIs(t, err, ErrOutputNotFound)
}

func TestFindOutput_NonEpubBookFallsBackToPattern(t *testing.T) {
	dir := t.TempDir()
	book := filepath.Join(dir, "novel.txt")
	require.NoError(t, os.WriteFile(book+OutputSuffix, nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "novel.epub_translated.epub"), nil, 0o644))

	out, err := FindOutput(book)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "novel.epub_translated.epub"), out)
}

func TestToolError_TruncatesOnRuneBoundary(t *testing.T) {
	// Three-byte runes put the cut in the middle of one.
	stderr := "x" + strings.Repeat("错", maxStderrDetail)
	msg := (&ToolError{ExitCode: 1, Stderr: stderr}).Error()

	detail := strings.TrimPrefix(msg, "Translation failed: ")
	assert.True(t, utf8.ValidString(detail))
	assert.LessOrEqual(t, len(detail), maxStderrDetail)
	assert.True(t, strings.HasPrefix(detail, "错"))
	assert.NotContains(t, detail, "\uFFFD")
}

func TestOutputFilename(t *testing.T) {
	cases := map[string]string{
		"novel.epub":          "novel_translated.epub",
		"my.great.book.epub":  "my.great.book_translated.epub",
		"noext":               "noext_translated.epub",
		"../../etc/book.epub": "book_translated.epub",
	}
	for in, want := range cases {
		assert.Equal(t, want, OutputFilename(in), in)
	}
}

func TestCheck(t *testing.T) {
	tr := NewTranslatorWithRunner(testOptions(), &fakeRunner{}, zaptest.NewLogger(t))
	tr.lookPath = func(string) (string, error) { return "", exec.ErrNotFound }

	_, err := tr.Check()
	assert.ErrorIs(t, err, exec.ErrNotFound)

	tr.lookPath = func(name string) (string, error) { return "/usr/bin/" + name, nil }
	path, err := tr.Check()
	require.NoError(t, err)
	assert.Equal(t, "/usr/bin/python3", path)
}

func TestExecRunner_CapturesExitCodeAndStderr(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	res, err := (&ExecRunner{}).Run(context.Background(), os.Environ(), "sh", "-c", "echo partial; echo 'rate limit exceeded' >&2; exit 3")
	require.Error(t, err)
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, "partial\n", res.Stdout)
	assert.Equal(t, "rate limit exceeded\n", res.Stderr)
}

func TestExecRunner_EnvIsPassed(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	res, err := (&ExecRunner{}).Run(context.Background(), []string{"OPENAI_API_KEY=sk-env"}, "sh", "-c", "printf %s \"$OPENAI_API_KEY\"")
	require.NoError(t, err)
	assert.Equal(t, "sk-env", res.Stdout)
}

func TestExecRunner_CancelKillsChildProcesses(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("process groups are unix only")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := (&ExecRunner{}).Run(ctx, os.Environ(), "sh", "-c", "sleep 10; echo done")
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}
