package pysource

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseSource(t *testing.T, path, src string) *Module {
	t.Helper()
	p, err := NewParser()
	require.NoError(t, err)
	t.Cleanup(p.Close)
	mod, err := p.Parse(path, []byte(src))
	require.NoError(t, err)
	return mod
}

func TestParseFunctions(t *testing.T) {
	mod := parseSource(t, "contract.py", `
from near_sdk_py import call as near_call, view
import near_sdk_py as near


@view
def get(key: str, limit: int = 10, *args, **kwargs) -> Optional[str]:
    """Fetch a value."""
    return None


@near_call(serialization="borsh", gas=5)
def put(key: str, value: "Item", flag=True) -> None:
    pass


def plain(x):
    return x
`)

	assert.Equal(t, "contract", mod.Name)
	assert.Equal(t, "near_sdk_py.call", mod.Imports["near_call"])
	assert.Equal(t, "near_sdk_py.view", mod.Imports["view"])
	assert.Equal(t, "near_sdk_py", mod.Imports["near"])

	require.Len(t, mod.Functions, 3)

	get := mod.Functions[0]
	assert.Equal(t, "get", get.Name)
	assert.Equal(t, 7, get.Line)
	assert.Equal(t, "Optional[str]", get.Returns)
	require.NotNil(t, get.Doc)
	assert.Equal(t, "Fetch a value.", *get.Doc)
	require.Len(t, get.Decorators, 1)
	assert.Equal(t, "view", get.Decorators[0].Name)
	assert.Equal(t, []RawParam{
		{Name: "key", Annotation: "str"},
		{Name: "limit", Annotation: "int", HasDefault: true},
		{Name: "args", Variadic: true},
		{Name: "kwargs", Variadic: true},
	}, get.Params)

	put := mod.Functions[1]
	require.Len(t, put.Decorators, 1)
	assert.Equal(t, "near_call", put.Decorators[0].Name)
	assert.Equal(t, map[string]string{"serialization": "borsh", "gas": "5"}, put.Decorators[0].Args)
	assert.Equal(t, `"Item"`, put.Params[1].Annotation)
	assert.Equal(t, RawParam{Name: "flag", HasDefault: true}, put.Params[2])
	assert.Nil(t, put.Doc)

	assert.Empty(t, mod.Functions[2].Decorators)
}

func TestParseClasses(t *testing.T) {
	mod := parseSource(t, "pkg/models.py", `
@dataclass(frozen=True)
class Item(Base, metaclass=Meta):
    """An item.

    Second line.
    """
    name: str
    count: int = 0
    label = "x"
    kind = auto()

    def method(self, n: int) -> int:
        return n


class Level(IntEnum):
    LOW = 1
    HIGH = -2
`)

	assert.Equal(t, "pkg.models", mod.Name)
	require.Len(t, mod.Classes, 2)

	item := mod.Classes[0]
	assert.Equal(t, "Item", item.Name)
	assert.Equal(t, []string{"Base"}, item.Bases)
	assert.Equal(t, map[string]string{"metaclass": "Meta"}, item.Keywords)
	require.Len(t, item.Decorators, 1)
	assert.Equal(t, "dataclass", item.Decorators[0].Name)
	assert.Equal(t, "An item.\n\nSecond line.", item.Doc)

	require.Len(t, item.Fields, 4)
	assert.Equal(t, ClassField{Name: "name", Annotation: "str", Line: 8}, item.Fields[0])
	assert.Equal(t, "int", item.Fields[1].Annotation)
	assert.True(t, item.Fields[1].HasValue)
	assert.Equal(t, int64(0), item.Fields[1].Value)
	assert.Equal(t, "x", item.Fields[2].Value)
	assert.True(t, item.Fields[3].Auto)

	require.Len(t, mod.Functions, 1)
	assert.Equal(t, "Item", mod.Functions[0].Class)
	assert.Equal(t, "self", mod.Functions[0].Params[0].Name)

	level := mod.Classes[1]
	assert.Equal(t, int64(-2), level.Fields[1].Value)
}

func TestParseRelativeAndGuardedImports(t *testing.T) {
	mod := parseSource(t, "pkg/__init__.py", `
from . import models
from .models import Item as Thing
from typing import TYPE_CHECKING

if TYPE_CHECKING:
    from ..other import Other
`)

	assert.Equal(t, "pkg", mod.Name)
	assert.Equal(t, ".models", mod.Imports["models"])
	assert.Equal(t, ".models.Item", mod.Imports["Thing"])
	assert.Equal(t, "..other.Other", mod.Imports["Other"])
}

func TestParseSyntaxError(t *testing.T) {
	p, err := NewParser()
	require.NoError(t, err)
	defer p.Close()

	_, err = p.Parse("bad.py", []byte("def broken(x: int -> int:\n    return x\n"))
	require.Error(t, err)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "bad.py", perr.File)
	assert.Equal(t, 1, perr.Line)
}

func TestCleanDoc(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"single line", "  Hello.  ", "Hello.  "},
		{"leading blank", "\n    First.\n    Second.\n    ", "First.\nSecond."},
		{"nested indent", "Top.\n\n      a\n        b\n", "Top.\n\na\n  b"},
		{"tabs", "Top.\n\tTabbed.", "Top.\nTabbed."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanDoc(tt.in))
		})
	}
}

func TestModuleName(t *testing.T) {
	assert.Equal(t, "contract", ModuleName("contract.py"))
	assert.Equal(t, "models.account", ModuleName("models/account.py"))
	assert.Equal(t, "models", ModuleName("models/__init__.py"))
}
