package pysource

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nearabi/nearabi/typehint"
)

func TestResolveNames(t *testing.T) {
	mod := parseSource(t, "contract.py", `
import typing as t
from typing import Dict, List, Optional
from near_sdk_py import AccountId
from near_sdk_py.types import Balance
`)
	ix := NewIndex([]*Module{mod})

	tests := []struct {
		in   string
		want string
	}{
		{"int", "int"},
		{"List[str]", "List[str]"},
		{"t.Dict[str, int]", "Dict[str, int]"},
		{"typing.Optional[AccountId]", "Optional[AccountId]"},
		{"Balance", "Balance"},
		{"int | None", "Union[int, None]"},
		{`Optional["int"]`, "Optional[int]"},
		{`Literal["a", 1]`, `Literal["a", 1]`},
		{`Annotated[int, "borsh"]`, `Annotated[int, "borsh"]`},
		{"Tuple[int, ...]", "Tuple[int, ...]"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ix.Resolve(mod, tt.in).String())
		})
	}

	assert.Nil(t, ix.Resolve(mod, ""))
	assert.Equal(t, "List[", ix.Resolve(mod, "List[").Name)
}

func TestResolveRecordsAndEnums(t *testing.T) {
	mod := parseSource(t, "contract.py", `
from dataclasses import dataclass
from enum import Enum
from typing import ClassVar, List, NamedTuple, TypedDict


class Mode(str, Enum):
    ON = "on"
    OFF = "off"


class Opts(TypedDict, total=False):
    verbose: bool


class Pair(NamedTuple):
    left: int
    right: int


@dataclass
class Tree:
    value: int
    children: List["Tree"]
    LIMIT: ClassVar[int] = 3


@dataclass
class Leaf(Tree):
    value: str
    tag: str = ""


class Plain:
    x: int
`)
	ix := NewIndex([]*Module{mod})

	mode := ix.Resolve(mod, "Mode")
	require.Equal(t, typehint.KindEnum, mode.Kind)
	assert.Equal(t, typehint.EnumStr, mode.Enum.Base)
	assert.Equal(t, "contract.Mode", mode.Enum.QualifiedName)
	assert.Equal(t, []typehint.EnumMember{{Name: "ON", Value: "on"}, {Name: "OFF", Value: "off"}}, mode.Enum.Members)

	opts := ix.Resolve(mod, "Opts")
	require.Equal(t, typehint.KindRecord, opts.Kind)
	assert.Equal(t, typehint.StyleTypedDict, opts.Record.Style)
	assert.False(t, opts.Record.Total)

	pair := ix.Resolve(mod, "Pair")
	assert.Equal(t, typehint.StyleNamedTuple, pair.Record.Style)

	tree := ix.Resolve(mod, "Tree")
	require.Equal(t, typehint.KindRecord, tree.Kind)
	require.Len(t, tree.Record.Fields, 2)
	children := tree.Record.Fields[1].Hint
	assert.Equal(t, "List", children.Name)
	assert.Same(t, tree.Record, children.Args[0].Record)

	leaf := ix.Resolve(mod, "Leaf")
	require.Equal(t, typehint.KindRecord, leaf.Kind)
	assert.Equal(t, typehint.StyleDataclass, leaf.Record.Style)
	var names []string
	for _, f := range leaf.Record.Fields {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"value", "children", "tag"}, names)
	assert.Equal(t, "str", leaf.Record.Fields[0].Hint.Name)
	assert.True(t, leaf.Record.Fields[2].HasDefault)

	plain := ix.Resolve(mod, "Plain")
	assert.Equal(t, typehint.KindName, plain.Kind)
	assert.Equal(t, "contract.Plain", plain.Name)
}

func TestResolveEnumAuto(t *testing.T) {
	mod := parseSource(t, "e.py", `
from enum import Enum, StrEnum, auto

class Color(StrEnum):
    RED = auto()
    DARK_BLUE = auto()

class Step(Enum):
    FIRST = auto()
    TENTH = 10
    NEXT = auto()
    _ignore_ = "x"
`)
	ix := NewIndex([]*Module{mod})

	color := ix.Resolve(mod, "Color").Enum
	assert.Equal(t, []typehint.EnumMember{{Name: "RED", Value: "red"}, {Name: "DARK_BLUE", Value: "dark_blue"}}, color.Members)

	step := ix.Resolve(mod, "Step").Enum
	assert.Equal(t, typehint.EnumPlain, step.Base)
	assert.Equal(t, []typehint.EnumMember{
		{Name: "FIRST", Value: int64(1)},
		{Name: "TENTH", Value: int64(10)},
		{Name: "NEXT", Value: int64(11)},
	}, step.Members)
}

func TestResolveAcrossModules(t *testing.T) {
	models := parseSource(t, "app/models.py", `
from dataclasses import dataclass

@dataclass
class Account:
    id: str
`)
	relative := parseSource(t, "app/main.py", `
from .models import Account
`)
	absolute := parseSource(t, "app/api.py", `
from app import models
`)
	fallback := parseSource(t, "other.py", `
from models import Account as Acct
`)
	ix := NewIndex([]*Module{models, relative, absolute, fallback})

	for _, tc := range []struct {
		mod  *Module
		text string
	}{
		{relative, "Account"},
		{absolute, "models.Account"},
		{fallback, "Acct"},
	} {
		h := ix.Resolve(tc.mod, tc.text)
		require.Equal(t, typehint.KindRecord, h.Kind, "%s in %s", tc.text, tc.mod.Path)
		assert.Equal(t, "app.models.Account", h.Record.QualifiedName)
	}
}

func TestCallables(t *testing.T) {
	mod := parseSource(t, "contract.py", `
import near_sdk_py as near
from near_sdk_py.decorators import call
from near_sdk_py import AccountId


@near.view
def owner() -> AccountId:
    pass


@call(serialization="borsh")
def set_owner(owner: AccountId, *rest) -> None:
    pass


class Contract:
    @near.view
    def get(self, key: str) -> str:
        pass

    @staticmethod
    @near.view
    def version() -> int:
        return 1
`)
	ix := NewIndex([]*Module{mod})
	cs := ix.Callables(mod)
	require.Len(t, cs, 4)

	assert.Equal(t, "owner", cs[0].Name)
	assert.Equal(t, "near.view", cs[0].Markers[0].Name)
	assert.Equal(t, "AccountId", cs[0].Result.Name)
	assert.Equal(t, "contract.py:8", cs[0].Location)
	assert.False(t, cs[0].Method)

	assert.Equal(t, "near.call", cs[1].Markers[0].Name)
	assert.Equal(t, "borsh", cs[1].Markers[0].Args["serialization"])
	assert.Equal(t, typehint.KindNone, cs[1].Result.Kind)
	require.Len(t, cs[1].Params, 2)
	assert.True(t, cs[1].Params[1].Variadic)
	assert.Nil(t, cs[1].Params[1].Hint)

	assert.True(t, cs[2].Method)
	assert.False(t, cs[3].Method)
	require.Len(t, cs[3].Markers, 1)
}
