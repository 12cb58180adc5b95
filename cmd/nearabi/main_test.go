package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nearabi/nearabi/abi"
	"github.com/nearabi/nearabi/internal/config"
)

const greeterSource = `from near_sdk_py import call, view


@view
def get_greeting() -> str:
    """Return the greeting."""
    return "hello"


@call
def set_greeting(message: str) -> None:
    pass
`

const pyproject = `[project]
name = "greeter"
version = "1.2.0"
authors = [{ name = "Alice" }]
`

type result struct {
	code   int
	stdout string
	stderr string
}

func runCLI(t *testing.T, args ...string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), append(args, "--log-level", "error"), &stdout, &stderr)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func newProject(t *testing.T, files map[string]string) string {
	t.Helper()
	t.Setenv(config.RegistryURLEnv, "")
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func TestGenerateToStdout(t *testing.T) {
	dir := newProject(t, map[string]string{"pyproject.toml": pyproject, "contract.py": greeterSource})

	res := runCLI(t, "generate", dir)
	require.Equal(t, 0, res.code, res.stderr)

	doc, err := abi.Decode([]byte(res.stdout))
	require.NoError(t, err)
	assert.Equal(t, abi.SchemaVersion, doc.SchemaVersion)
	assert.Equal(t, "greeter", doc.Metadata.Name)
	assert.Equal(t, "1.2.0", doc.Metadata.Version)
	assert.Equal(t, []string{"contract.py"}, doc.Metadata.Sources)
	assert.Equal(t, []string{"get_greeting", "set_greeting"}, doc.FunctionNames())
	assert.Contains(t, res.stderr, "get_greeting")
}

func TestGenerateToFileAsYAML(t *testing.T) {
	dir := newProject(t, map[string]string{"pyproject.toml": pyproject, "contract.py": greeterSource})
	out := filepath.Join(dir, "build", "abi.yaml")

	res := runCLI(t, "generate", dir, "-o", out, "--format", "yaml")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Empty(t, res.stdout)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "schema_version: 0.4.0"), string(data))
	assert.Contains(t, res.stderr, "Wrote")
}

func TestGenerateUsesConfigOutput(t *testing.T) {
	dir := newProject(t, map[string]string{
		"nearabi.ini": "[generate]\noutput = out/abi.json\n",
		"contract.py": greeterSource,
	})

	res := runCLI(t, "generate", dir)
	require.Equal(t, 0, res.code, res.stderr)
	_, err := os.Stat(filepath.Join(dir, "out", "abi.json"))
	assert.NoError(t, err)
}

func TestGenerateReportsFailures(t *testing.T) {
	dir := newProject(t, map[string]string{"contract.py": greeterSource + `

@view
def broken(x) -> int:
    return 1
`})

	res := runCLI(t, "generate", dir)
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "broken")

	doc, err := abi.Decode([]byte(res.stdout))
	require.NoError(t, err)
	assert.Equal(t, []string{"get_greeting", "set_greeting"}, doc.FunctionNames())
}

func TestGenerateRejectsBadFormat(t *testing.T) {
	dir := newProject(t, map[string]string{"contract.py": greeterSource})
	res := runCLI(t, "generate", dir, "--format", "toml")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "unknown output format")
}

func TestRecordAndHistory(t *testing.T) {
	dir := newProject(t, map[string]string{"pyproject.toml": pyproject, "contract.py": greeterSource})
	t.Chdir(dir)

	res := runCLI(t, "generate", ".", "-o", "abi.json", "--record")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stderr, "Recorded greeter 1.2.0")

	res = runCLI(t, "generate", ".", "-o", "abi.json", "--record")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stderr, "already recorded")

	res = runCLI(t, "history", "list")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stderr, "greeter")
	assert.Contains(t, res.stderr, "1.2.0")

	res = runCLI(t, "history", "show", "greeter")
	require.Equal(t, 0, res.code, res.stderr)
	written, err := os.ReadFile("abi.json")
	require.NoError(t, err)
	assert.JSONEq(t, string(written), res.stdout)

	res = runCLI(t, "history", "show", "unknown")
	assert.Equal(t, 1, res.code)
}

func TestValidateCommand(t *testing.T) {
	dir := newProject(t, map[string]string{"contract.py": greeterSource})
	out := filepath.Join(dir, "abi.json")
	require.Equal(t, 0, runCLI(t, "generate", dir, "-o", out).code)

	res := runCLI(t, "validate", out)
	assert.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stderr, "is valid")

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"schema_version": "0.4.0", "body": {}}`), 0o644))
	res = runCLI(t, "validate", bad)
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "not a valid ABI")
}

func TestPublishRequiresBucket(t *testing.T) {
	dir := newProject(t, map[string]string{"pyproject.toml": pyproject, "contract.py": greeterSource})
	out := filepath.Join(dir, "abi.json")
	require.Equal(t, 0, runCLI(t, "generate", dir, "-o", out).code)

	res := runCLI(t, "publish", out)
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "no publish bucket configured")
}

func TestInitAndVersion(t *testing.T) {
	dir := newProject(t, nil)

	res := runCLI(t, "init", dir)
	require.Equal(t, 0, res.code, res.stderr)
	ok, err := config.Exists(dir)
	require.NoError(t, err)
	assert.True(t, ok)

	res = runCLI(t, "init", dir)
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "already exists")

	res = runCLI(t, "version")
	assert.Equal(t, 0, res.code)
	assert.Equal(t, "nearabi dev\n", res.stdout)
}
