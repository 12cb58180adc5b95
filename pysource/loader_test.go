package pysource

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/nearabi/nearabi/abi"
	"github.com/nearabi/nearabi/inspect"
	"github.com/nearabi/nearabi/schema"
)

func generate(t *testing.T, res *LoadResult) *abi.Result {
	t.Helper()
	out, err := abi.NewGenerator(zaptest.NewLogger(t)).Generate(res.Units, abi.Metadata{Name: "test"})
	require.NoError(t, err)
	return out
}

func TestLoadBasicContract(t *testing.T) {
	res, err := NewLoader(zaptest.NewLogger(t), ScanOptions{}).Load(context.Background(), "testdata/basic")
	require.NoError(t, err)
	require.Len(t, res.Units, 1)
	assert.Equal(t, "contract.py", res.Units[0].ID)

	out := generate(t, res)
	assert.Empty(t, out.Failures)
	assert.Equal(t, 1, out.Skipped)
	assert.Equal(t, []string{"new", "get_greeting", "set_greeting"}, out.Document.FunctionNames())

	newFn, ok := out.Document.Function("new")
	require.True(t, ok)
	assert.Equal(t, inspect.KindCall, newFn.Kind)
	assert.Equal(t, []inspect.Modifier{inspect.ModifierInit}, newFn.Modifiers)
	assert.Nil(t, newFn.Result)

	get, _ := out.Document.Function("get_greeting")
	require.NotNil(t, get.Doc)
	assert.Equal(t, "Return the stored greeting.\n\n    Indented detail stays indented.", *get.Doc)

	set, _ := out.Document.Function("set_greeting")
	require.NotNil(t, set.Params)
	require.Len(t, set.Params.Args, 2)
	assert.Equal(t, "lang", set.Params.Args[1].Name)
}

func TestLoadComplexContract(t *testing.T) {
	res, err := NewLoader(zaptest.NewLogger(t), ScanOptions{}).Load(context.Background(), "testdata/complex/contract.py")
	require.NoError(t, err)
	require.Len(t, res.Units, 1)

	out := generate(t, res)
	require.Empty(t, out.Failures)
	assert.ElementsMatch(t, []string{
		"get_profile", "tree", "update", "deposit", "derived", "status", "get_owner", "version",
	}, out.Document.FunctionNames())

	defs := out.Document.Body.RootSchema.Definitions
	for _, name := range []string{"AccountId", "Balance", "Color", "Derived", "Node", "Point", "Priority", "Profile", "Settings", "Status"} {
		_, ok := defs.Get(name)
		assert.True(t, ok, "missing definition %s", name)
	}

	settings, _ := defs.Get("Settings")
	assert.Equal(t, []string{"theme"}, settings.Required)
	_, hasSecret := settings.Properties.Get("_secret")
	assert.False(t, hasSecret)
	_, hasVersion := settings.Properties.Get("VERSION")
	assert.False(t, hasVersion)

	profile, _ := defs.Get("Profile")
	assert.Empty(t, profile.Required)

	derived, _ := defs.Get("Derived")
	assert.Equal(t, []string{"id", "label"}, derived.Required)

	color, _ := defs.Get("Color")
	assert.Equal(t, []any{"red", "green"}, color.Enum)

	owner, _ := out.Document.Function("get_owner")
	assert.Nil(t, owner.Params)
}

func TestLoadMultiFileProject(t *testing.T) {
	opts := ScanOptions{Recursive: true, RespectGitignore: true}
	res, err := NewLoader(zaptest.NewLogger(t), opts).Load(context.Background(), "testdata/multi")
	require.NoError(t, err)

	assert.Equal(t, []string{"main.py", "models/__init__.py", "models/account.py"}, res.Files)
	require.Len(t, res.Units, 2)
	assert.Equal(t, "main.py", res.Units[0].ID)
	assert.Equal(t, "models/account.py", res.Units[1].ID)

	out := generate(t, res)
	require.Empty(t, out.Failures)
	assert.Equal(t, []string{"new", "get_account", "get_account_detail"}, out.Document.FunctionNames())

	account, ok := out.Document.Body.RootSchema.Definitions.Get("Account")
	require.True(t, ok)
	assert.Equal(t, []string{"account_id", "balance"}, account.Required)
}

func TestLoadSkipsBrokenFiles(t *testing.T) {
	res, err := NewLoader(zaptest.NewLogger(t), ScanOptions{}).Load(context.Background(), "testdata/broken")
	require.NoError(t, err)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "bad.py", res.Errors[0].File)
	require.Len(t, res.Units, 1)
	assert.Equal(t, "ok.py", res.Units[0].ID)
}

func TestLoadCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewLoader(nil, ScanOptions{}).Load(ctx, "testdata/basic")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCachedLoader(t *testing.T) {
	root := writeTree(t, map[string]string{
		"contract.py": "from near_sdk_py import view\n\n@view\ndef a() -> int:\n    return 1\n",
	})
	cl, err := NewCachedLoader(zaptest.NewLogger(t), ScanOptions{}, 4)
	require.NoError(t, err)

	first, err := cl.Load(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, 1, cl.Len())

	second, err := cl.Load(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, first.Units[0].Callables[0].Name, second.Units[0].Callables[0].Name)

	path := filepath.Join(root, "contract.py")
	require.NoError(t, os.WriteFile(path, []byte("from near_sdk_py import view\n\n@view\ndef renamed() -> int:\n    return 1\n"), 0o644))
	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, later, later))

	third, err := cl.Load(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, "renamed", third.Units[0].Callables[0].Name)
}

func TestCollisionAcrossFiles(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a.py": "from dataclasses import dataclass\nfrom near_sdk_py import view\n\n@dataclass\nclass Item:\n    x: int\n\n@view\ndef a() -> Item:\n    pass\n",
		"b.py": "from dataclasses import dataclass\nfrom near_sdk_py import view\n\n@dataclass\nclass Item:\n    y: str\n\n@view\ndef b() -> Item:\n    pass\n",
	})
	res, err := NewLoader(nil, ScanOptions{}).Load(context.Background(), root)
	require.NoError(t, err)

	_, err = abi.NewGenerator(nil).Generate(res.Units, abi.Metadata{})
	assert.ErrorIs(t, err, schema.ErrTypeNameCollision)
}
