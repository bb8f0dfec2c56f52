package parser

type SymbolKind int

const (
	KindFunction SymbolKind = iota
	KindMethod
	KindType
	KindInterface
	KindClass
	KindConstant
	KindVariable
)

func (k SymbolKind) String() string {
	switch k {
	case KindFunction:
		return "function"
	case KindMethod:
		return "method"
	case KindType:
		return "type"
	case KindInterface:
		return "interface"
	case KindClass:
		return "class"
	case KindConstant:
		return "constant"
	case KindVariable:
		return "variable"
	default:
		return "unknown"
	}
}

type EdgeKind int

const (
	EdgeImport EdgeKind = iota
	EdgeCall
)

func (k EdgeKind) String() string {
	if k == EdgeCall {
		return "calls"
	}
	return "imports"
}

// Record is the parse result for one file: declared symbols and referenced
// targets in declaration order, plus non-fatal diagnostics.
type Record struct {
	Path        string
	Language    string
	Symbols     []SymbolDecl
	Edges       []EdgeDecl
	Diagnostics []string
}

type SymbolDecl struct {
	Name      string
	Kind      SymbolKind
	Signature string
	Line      int
	Exported  bool
}

type EdgeDecl struct {
	Kind   EdgeKind
	Target string
	Line   int
}
