package typehint

// RecordStyle identifies the Python construct a record was declared with.
type RecordStyle int

const (
	StyleDataclass RecordStyle = iota + 1
	StyleTypedDict
	StyleNamedTuple
	StyleModel // pydantic-style BaseModel subclass
)

func (s RecordStyle) String() string {
	switch s {
	case StyleDataclass:
		return "dataclass"
	case StyleTypedDict:
		return "TypedDict"
	case StyleNamedTuple:
		return "NamedTuple"
	case StyleModel:
		return "BaseModel"
	default:
		return "unknown"
	}
}

// RecordDef is a user-defined structured type. Fields are filled in after
// construction so that self-referential and mutually recursive records can
// point at each other.
type RecordDef struct {
	Name          string
	QualifiedName string // module.Class, used to tell same-named types apart
	Style         RecordStyle
	Doc           string

	// Total mirrors TypedDict's total= keyword. Always true for other styles.
	Total bool

	Fields []Field
}

// Field is a record field in declaration order.
type Field struct {
	Name       string
	Hint       *Hint
	HasDefault bool
}

// EnumBase is the enum base class.
type EnumBase int

const (
	EnumPlain EnumBase = iota + 1
	EnumInt
	EnumStr
)

// EnumDef is a user-defined enumeration.
type EnumDef struct {
	Name          string
	QualifiedName string
	Base          EnumBase
	Doc           string
	Members       []EnumMember
}

// EnumMember is one NAME = value line of an enum body.
type EnumMember struct {
	Name  string
	Value any // string, int64, float64, bool or nil
}
