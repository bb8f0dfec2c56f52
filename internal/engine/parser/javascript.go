package parser

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

type JavaScriptExtractor struct{}

func (e *JavaScriptExtractor) Extract(root *sitter.Node, source []byte, filePath string) *Record {
	record := &Record{Path: filePath, Language: "javascript"}
	e.walk(root, source, record, false)
	return record
}

func (e *JavaScriptExtractor) walk(node *sitter.Node, source []byte, record *Record, insideClass bool) {
	switch node.Kind() {
	case "import_statement":
		e.extractImport(node, source, record)
	case "function_declaration", "generator_function_declaration":
		e.extractNamed(node, source, record, KindFunction)
	case "class_declaration":
		e.extractNamed(node, source, record, KindClass)
		insideClass = true
	case "method_definition":
		e.extractMethod(node, source, record)
	case "lexical_declaration", "variable_declaration":
		e.extractTopLevelVars(node, source, record)
	case "call_expression":
		e.extractCall(node, source, record)
	}

	for i := uint(0); i < node.ChildCount(); i++ {
		e.walk(node.Child(i), source, record, insideClass)
	}
}

func (e *JavaScriptExtractor) extractImport(node *sitter.Node, source []byte, record *Record) {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child.Kind() == "string" {
			path := trimQuoted(nodeText(child, source))
			if path != "" {
				record.Edges = append(record.Edges, EdgeDecl{
					Kind:   EdgeImport,
					Target: path,
					Line:   nodeLine(node),
				})
			}
		}
	}
}

func (e *JavaScriptExtractor) extractNamed(node *sitter.Node, source []byte, record *Record, kind SymbolKind) {
	var name string
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child.Kind() == "identifier" {
			name = nodeText(child, source)
			break
		}
	}
	if name == "" {
		return
	}
	record.Symbols = append(record.Symbols, SymbolDecl{
		Name:      name,
		Kind:      kind,
		Signature: firstLineOf(nodeText(node, source)),
		Line:      nodeLine(node),
		Exported:  true,
	})
}

func (e *JavaScriptExtractor) extractMethod(node *sitter.Node, source []byte, record *Record) {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child.Kind() == "property_identifier" {
			name := nodeText(child, source)
			record.Symbols = append(record.Symbols, SymbolDecl{
				Name:      name,
				Kind:      KindMethod,
				Signature: firstLineOf(nodeText(node, source)),
				Line:      nodeLine(node),
				Exported:  !strings.HasPrefix(name, "#"),
			})
			return
		}
	}
}

// extractTopLevelVars records program-level const/let/var declarators.
// Declarators initialized with a function expression count as functions.
func (e *JavaScriptExtractor) extractTopLevelVars(node *sitter.Node, source []byte, record *Record) {
	if parent := node.Parent(); parent == nil || parent.Kind() != "program" {
		return
	}
	isConst := strings.HasPrefix(nodeText(node, source), "const")

	for i := uint(0); i < node.ChildCount(); i++ {
		decl := node.Child(i)
		if decl.Kind() != "variable_declarator" {
			continue
		}
		var name string
		kind := KindVariable
		if isConst {
			kind = KindConstant
		}
		for j := uint(0); j < decl.ChildCount(); j++ {
			child := decl.Child(j)
			switch child.Kind() {
			case "identifier":
				if name == "" {
					name = nodeText(child, source)
				}
			case "arrow_function", "function_expression", "generator_function":
				kind = KindFunction
			}
		}
		if name == "" {
			continue
		}
		record.Symbols = append(record.Symbols, SymbolDecl{
			Name:      name,
			Kind:      kind,
			Signature: firstLineOf(nodeText(decl, source)),
			Line:      nodeLine(decl),
			Exported:  true,
		})
	}
}

func (e *JavaScriptExtractor) extractCall(node *sitter.Node, source []byte, record *Record) {
	callee := node.Child(0)
	if callee == nil {
		return
	}
	switch callee.Kind() {
	case "identifier", "member_expression":
	default:
		return
	}
	target := strings.TrimSpace(nodeText(callee, source))
	if target == "" {
		return
	}

	// CommonJS require("x") is an import edge, not a call.
	if target == "require" {
		if args := node.Child(1); args != nil && args.Kind() == "arguments" {
			for i := uint(0); i < args.ChildCount(); i++ {
				arg := args.Child(i)
				if arg.Kind() == "string" {
					record.Edges = append(record.Edges, EdgeDecl{
						Kind:   EdgeImport,
						Target: trimQuoted(nodeText(arg, source)),
						Line:   nodeLine(node),
					})
					return
				}
			}
		}
		return
	}

	record.Edges = append(record.Edges, EdgeDecl{Kind: EdgeCall, Target: target, Line: nodeLine(node)})
}
