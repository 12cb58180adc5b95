package schema

// builtin NEAR aliases, registered lazily the first time a contract uses them
var builtins = map[string]func() *Descriptor{
	"AccountId": func() *Descriptor {
		return &Descriptor{Kind: KindPrimitive, Primitive: String, Doc: "NEAR account identifier"}
	},
	"Balance": func() *Descriptor {
		return &Descriptor{Kind: KindPrimitive, Primitive: String, Doc: "Balance value in yoctoNEAR (10^-24 NEAR)", Pattern: "^[0-9]+$"}
	},
	"Gas": func() *Descriptor {
		return nonNegative("Gas units for NEAR VM operations")
	},
	"PublicKey": func() *Descriptor {
		return &Descriptor{Kind: KindPrimitive, Primitive: String, Doc: "Public key in base58 or base64 format"}
	},
	"Timestamp": func() *Descriptor {
		return nonNegative("Timestamp in nanoseconds")
	},
	"BlockHeight": func() *Descriptor {
		return nonNegative("Block height on the NEAR blockchain")
	},
	"StorageUsage": func() *Descriptor {
		return nonNegative("Storage usage in bytes")
	},
	"U128": func() *Descriptor {
		return &Descriptor{Kind: KindPrimitive, Primitive: String, Doc: "128-bit unsigned integer in decimal string representation", Pattern: "^[0-9]+$"}
	},
	"U64": func() *Descriptor {
		return nonNegative("64-bit unsigned integer")
	},
	"Promise": func() *Descriptor {
		return &Descriptor{Kind: KindRecord, Name: "Promise", Doc: "NEAR Promise for async cross-contract calls"}
	},
}

func nonNegative(doc string) *Descriptor {
	zero := 0.0
	return &Descriptor{Kind: KindPrimitive, Primitive: Integer, Doc: doc, Minimum: &zero}
}

// IsBuiltin reports whether name is a NEAR alias known to the Deriver.
func IsBuiltin(name string) bool {
	_, ok := builtins[name]
	return ok
}

// BuiltinQualifier prefixes the qualified name of builtin definitions.
const BuiltinQualifier = "near."
