package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monorepo-rocks/monorepo-rocks/apps/findgrep/src/go/command"
	"github.com/monorepo-rocks/monorepo-rocks/apps/findgrep/src/go/config"
	"github.com/monorepo-rocks/monorepo-rocks/apps/findgrep/src/go/transient"
)

type result struct {
	stdout string
	stderr string
	err    error
}

func (r result) code() int {
	var exitErr *ExitError
	if errors.As(r.err, &exitErr) {
		return exitErr.Code
	}
	if r.err != nil {
		return -1
	}
	return 0
}

func execute(t *testing.T, dir string, args ...string) result {
	t.Helper()

	var stdout, stderr bytes.Buffer
	app := &App{Dir: dir, Stdio: command.Stdio{Out: &stdout, Err: &stderr}}
	err := app.Execute(context.Background(), args)
	return result{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

const defaultCmd = "find . ! -path */cdk.out/* ! -path */node_modules/* ! -path */.git/* " +
	"! -path */.venv/* ! -path */cover/* ! -path */.serverless/* -type f " +
	"! -name *~ ! -name .#* ! -name #*# ! -name *.d.ts ! -name *.js " +
	"! -name package-lock.json ! -name yarn.lock ! -name Pipfile.lock " +
	"! -name test_*.py ! -name *_test.go " +
	"-exec grep --color=always -I -n -H"

func TestPrintCmd(t *testing.T) {
	r := execute(t, t.TempDir(), "--print-cmd", "foo")
	require.NoError(t, r.err)
	assert.Equal(t, defaultCmd+" -e foo {} +\n", r.stdout)
}

func TestPrintCmdWithFlags(t *testing.T) {
	r := execute(t, t.TempDir(), "--print-cmd", "--only-go", "-B", "2", "-A", "3", "-G", "two words")
	require.NoError(t, r.err)

	assert.Contains(t, r.stdout, "-name *.go -exec grep")
	assert.Contains(t, r.stdout, "-H -B 2 -A 3 -e \"two words\" {} +")
	assert.NotContains(t, r.stdout, ".git")
}

func TestPrintCmdGzip(t *testing.T) {
	r := execute(t, t.TempDir(), "--print-cmd", "-z", "foo")
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, "! -name *_test.go -name *.gz -exec zgrep --color=always -I -n -H -e foo {} +")

	r = execute(t, t.TempDir(), "--print-cmd", "--gzip", "--only-go", "foo")
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, "-name *.go.gz -exec zgrep")
	assert.NotContains(t, r.stdout, "-name *.gz")
}

func TestPrintCmdWithoutTerms(t *testing.T) {
	r := execute(t, t.TempDir(), "--print-cmd")
	require.NoError(t, r.err)
	assert.Equal(t, defaultCmd+" {} +\n", r.stdout)
}

func TestNoSearchTerms(t *testing.T) {
	r := execute(t, t.TempDir())
	require.Error(t, r.err)
	assert.Equal(t, ExitFailure, r.code())
	assert.EqualError(t, r.err, "no search patterns given")
	assert.Empty(t, r.stdout)
}

func TestUsageErrors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"unknown flag", []string{"--frobnicate", "foo"}, "unknown flag"},
		{"bad int", []string{"-A", "three", "foo"}, "invalid argument"},
		{"mutex", []string{"-g", "-p", "foo"}, "none of the others can be"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := execute(t, t.TempDir(), append([]string{"--print-cmd"}, tt.args...)...)
			require.Error(t, r.err)
			assert.Equal(t, ExitUsage, r.code())
			assert.Contains(t, r.err.Error(), tt.wantErr)
			assert.Empty(t, r.stdout, "nothing is assembled")
		})
	}
}

func TestHelp(t *testing.T) {
	r := execute(t, t.TempDir(), "--help")
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, "--no-exclude-git")
	assert.Contains(t, r.stdout, "--print-elisp-transient")
	assert.Contains(t, r.stdout, "Don't add '! -path */.git/*' to find")
}

func TestOverrideFiles(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "project")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	writeFile(t, filepath.Join(root, config.FileName), `
find:
  exclude-git:
    disabled: true
grep:
  count:
    alias: k
    target: -c
`)
	writeFile(t, filepath.Join(dir, config.FileName), `
grep:
  count:
    help: Print match counts
`)

	r := execute(t, dir, "--print-cmd", "-k", "foo")
	require.NoError(t, r.err)
	assert.NotContains(t, r.stdout, ".git")
	assert.Contains(t, r.stdout, "-H -c -e foo {} +")

	r = execute(t, dir, "--no-exclude-git", "foo")
	assert.Equal(t, ExitUsage, r.code(), "disabled options have no flag")

	r = execute(t, dir, "--help")
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, "Print match counts")
}

func TestAllowedValuesOverride(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, config.FileName), `
grep:
  binary-files:
    target: --binary-files=
    type: str
    allowed-values: [binary, text, without-match]
`)

	r := execute(t, dir, "--print-cmd", "--binary-files", "text", "foo")
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, "--binary-files=text -e foo")

	r = execute(t, dir, "--print-cmd", "--binary-files", "maybe", "foo")
	require.Error(t, r.err)
	assert.Equal(t, ExitUsage, r.code())
	assert.Contains(t, r.err.Error(), "must be one of binary, text, without-match")
	assert.Empty(t, r.stdout)
}

func TestInvalidOverride(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, config.FileName), `
grep:
  broken:
    alias: y
`)

	r := execute(t, dir, "--print-cmd", "foo")
	require.Error(t, r.err)
	assert.Equal(t, ExitFailure, r.code())
	assert.Contains(t, r.err.Error(), "invalid configuration")
}

func TestCollidingOverride(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, config.FileName), `
grep:
  watch-files:
    alias: W
    target: -x
`)

	r := execute(t, dir, "--print-cmd", "foo")
	require.Error(t, r.err)
	assert.Equal(t, ExitFailure, r.code())
	assert.Contains(t, r.err.Error(), "already used by --watch")
}

func TestPrintTransient(t *testing.T) {
	r := execute(t, t.TempDir(), "--print-elisp-transient")
	require.NoError(t, r.err)
	assert.True(t, strings.HasPrefix(r.stdout, transient.Header+`(["Exclude paths"`))
	assert.Contains(t, r.stdout, `("g" "Only go" ("-g" "--only-go") :class findgrep--switch-mutex :mutex-group select)`)
}

func TestPrintConfig(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, config.FileName), `
find:
  exclude-cdk:
    disabled: true
`)

	r := execute(t, dir, "--print-config")
	require.NoError(t, r.err)
	assert.True(t, strings.HasPrefix(r.stdout, "find:\n"))
	assert.NotContains(t, r.stdout, "exclude-cdk")
	assert.Contains(t, r.stdout, "exclude-node-modules:")
	assert.Contains(t, r.stdout, "max-count:")
}

func TestVerboseLogsCommand(t *testing.T) {
	r := execute(t, t.TempDir(), "--verbose", "--print-cmd", "foo")
	require.NoError(t, r.err)
	assert.Contains(t, r.stderr, "assembled command")

	r = execute(t, t.TempDir(), "--print-cmd", "foo")
	require.NoError(t, r.err)
	assert.Empty(t, r.stderr)
}

func TestEarlyLevel(t *testing.T) {
	assert.Equal(t, zerolog.WarnLevel, earlyLevel(nil))
	assert.Equal(t, zerolog.DebugLevel, earlyLevel([]string{"-g", "--verbose", "foo"}))
	assert.Equal(t, zerolog.InfoLevel, earlyLevel([]string{"--log-level", "info", "--unknown"}))
	assert.Equal(t, zerolog.ErrorLevel, earlyLevel([]string{"--verbose", "--log-level=error"}))
	assert.Equal(t, zerolog.WarnLevel, earlyLevel([]string{"--", "--verbose"}))
	assert.Equal(t, zerolog.WarnLevel, earlyLevel([]string{"--verbose=maybe", "--log-level"}), "malformed flags fall back")
}

func TestExitError(t *testing.T) {
	inner := errors.New("boom")
	err := &ExitError{Code: 3, Err: inner}
	assert.Equal(t, "boom", err.Error())
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, "exit status 7", (&ExitError{Code: 7}).Error())
}

func requireTools(t *testing.T) {
	t.Helper()
	for _, tool := range []string{command.FindExecutable, command.GrepExecutable} {
		if _, err := exec.LookPath(tool); err != nil {
			t.Skipf("%s not available", tool)
		}
	}
}

func TestSearch(t *testing.T) {
	requireTools(t)

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "notes.txt"), "first line\nthe needle is here\n")
	writeFile(t, filepath.Join(dir, "skip.js"), "needle in javascript\n")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "node_modules"), 0o755))
	writeFile(t, filepath.Join(dir, "node_modules", "dep.txt"), "needle in a dependency\n")

	r := execute(t, dir, "needle")
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, "notes.txt")
	assert.Contains(t, r.stdout, "needle")
	assert.NotContains(t, r.stdout, "javascript")
	assert.NotContains(t, r.stdout, "dependency")

	r = execute(t, dir, "--no-exclude-js", "needle")
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, "javascript")
}

func TestSearchMirrorsExitCode(t *testing.T) {
	requireTools(t)

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "notes.txt"), "nothing to see\n")

	r := execute(t, dir, "needle")
	require.Error(t, r.err)
	assert.NotZero(t, r.code())
	assert.Empty(t, r.stdout)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
