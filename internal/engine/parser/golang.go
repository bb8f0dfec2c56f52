package parser

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

type GoExtractor struct{}

func (e *GoExtractor) Extract(root *sitter.Node, source []byte, filePath string) *Record {
	record := &Record{Path: filePath, Language: "go"}
	e.walk(root, source, record)
	return record
}

func (e *GoExtractor) walk(node *sitter.Node, source []byte, record *Record) {
	switch node.Kind() {
	case "import_declaration":
		e.extractImports(node, source, record)
	case "function_declaration":
		e.extractFunction(node, source, record, KindFunction)
	case "method_declaration":
		e.extractFunction(node, source, record, KindMethod)
	case "type_declaration":
		e.extractTypes(node, source, record)
	case "const_declaration":
		e.extractValueSpecs(node, source, record, KindConstant)
	case "var_declaration":
		e.extractValueSpecs(node, source, record, KindVariable)
	case "call_expression":
		e.extractCall(node, source, record)
	}

	for i := uint(0); i < node.ChildCount(); i++ {
		e.walk(node.Child(i), source, record)
	}
}

func (e *GoExtractor) extractImports(node *sitter.Node, source []byte, record *Record) {
	e.walkImportSpecs(node, source, record)
}

func (e *GoExtractor) walkImportSpecs(node *sitter.Node, source []byte, record *Record) {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child.Kind() == "import_spec" {
			for j := uint(0); j < child.ChildCount(); j++ {
				spec := child.Child(j)
				if spec.Kind() == "interpreted_string_literal" || spec.Kind() == "raw_string_literal" {
					path := trimQuoted(nodeText(spec, source))
					if path != "" {
						record.Edges = append(record.Edges, EdgeDecl{
							Kind:   EdgeImport,
							Target: path,
							Line:   nodeLine(child),
						})
					}
				}
			}
		} else {
			e.walkImportSpecs(child, source, record)
		}
	}
}

func (e *GoExtractor) extractFunction(node *sitter.Node, source []byte, record *Record, kind SymbolKind) {
	var name string
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child.Kind() == "identifier" || child.Kind() == "field_identifier" {
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
		Exported:  isExportedName(name),
	})
}

func (e *GoExtractor) extractTypes(node *sitter.Node, source []byte, record *Record) {
	for i := uint(0); i < node.ChildCount(); i++ {
		spec := node.Child(i)
		if spec.Kind() != "type_spec" {
			continue
		}
		var name string
		kind := KindType
		for j := uint(0); j < spec.ChildCount(); j++ {
			child := spec.Child(j)
			switch child.Kind() {
			case "type_identifier":
				if name == "" {
					name = nodeText(child, source)
				}
			case "interface_type":
				kind = KindInterface
			}
		}
		if name == "" {
			continue
		}
		record.Symbols = append(record.Symbols, SymbolDecl{
			Name:      name,
			Kind:      kind,
			Signature: firstLineOf(nodeText(spec, source)),
			Line:      nodeLine(spec),
			Exported:  isExportedName(name),
		})
	}
}

func (e *GoExtractor) extractValueSpecs(node *sitter.Node, source []byte, record *Record, kind SymbolKind) {
	// Only package-level declarations become symbols.
	if parent := node.Parent(); parent == nil || parent.Kind() != "source_file" {
		return
	}
	e.walkValueSpecs(node, source, record, kind)
}

func (e *GoExtractor) walkValueSpecs(node *sitter.Node, source []byte, record *Record, kind SymbolKind) {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child.Kind() == "const_spec" || child.Kind() == "var_spec" {
			for j := uint(0); j < child.ChildCount(); j++ {
				ident := child.Child(j)
				if ident.Kind() != "identifier" {
					continue
				}
				name := nodeText(ident, source)
				record.Symbols = append(record.Symbols, SymbolDecl{
					Name:     name,
					Kind:     kind,
					Line:     nodeLine(ident),
					Exported: isExportedName(name),
				})
			}
		} else {
			e.walkValueSpecs(child, source, record, kind)
		}
	}
}

func (e *GoExtractor) extractCall(node *sitter.Node, source []byte, record *Record) {
	callee := node.Child(0)
	if callee == nil {
		return
	}
	var target string
	switch callee.Kind() {
	case "identifier":
		target = nodeText(callee, source)
	case "selector_expression":
		target = nodeText(callee, source)
	default:
		return
	}
	target = strings.TrimSpace(target)
	if target == "" {
		return
	}
	record.Edges = append(record.Edges, EdgeDecl{
		Kind:   EdgeCall,
		Target: target,
		Line:   nodeLine(node),
	})
}
