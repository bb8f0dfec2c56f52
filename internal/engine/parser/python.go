package parser

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

type PythonExtractor struct{}

func (e *PythonExtractor) Extract(root *sitter.Node, source []byte, filePath string) *Record {
	record := &Record{Path: filePath, Language: "python"}
	e.walk(root, source, record, false)
	return record
}

func (e *PythonExtractor) walk(node *sitter.Node, source []byte, record *Record, insideClass bool) {
	switch node.Kind() {
	case "import_statement":
		e.extractImport(node, source, record)
	case "import_from_statement":
		e.extractFromImport(node, source, record)
	case "function_definition":
		e.extractFunction(node, source, record, insideClass)
	case "class_definition":
		e.extractClass(node, source, record)
		insideClass = true
	case "assignment":
		e.extractModuleConstant(node, source, record)
	case "call":
		e.extractCall(node, source, record)
	}

	for i := uint(0); i < node.ChildCount(); i++ {
		e.walk(node.Child(i), source, record, insideClass)
	}
}

func (e *PythonExtractor) extractImport(node *sitter.Node, source []byte, record *Record) {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		switch child.Kind() {
		case "dotted_name", "identifier":
			e.addImport(record, nodeText(child, source), nodeLine(child))
		case "aliased_import":
			for j := uint(0); j < child.ChildCount(); j++ {
				sub := child.Child(j)
				if sub.Kind() == "dotted_name" || sub.Kind() == "identifier" {
					e.addImport(record, nodeText(sub, source), nodeLine(sub))
					break
				}
			}
		}
	}
}

func (e *PythonExtractor) extractFromImport(node *sitter.Node, source []byte, record *Record) {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		switch child.Kind() {
		case "relative_import":
			e.addImport(record, nodeText(child, source), nodeLine(node))
			return
		case "dotted_name", "identifier":
			e.addImport(record, nodeText(child, source), nodeLine(node))
			return
		}
	}
}

func (e *PythonExtractor) addImport(record *Record, module string, line int) {
	module = strings.TrimSpace(module)
	if module == "" {
		return
	}
	record.Edges = append(record.Edges, EdgeDecl{Kind: EdgeImport, Target: module, Line: line})
}

func (e *PythonExtractor) extractFunction(node *sitter.Node, source []byte, record *Record, insideClass bool) {
	name := e.childIdentifier(node, source)
	if name == "" {
		return
	}
	kind := KindFunction
	if insideClass {
		kind = KindMethod
	}
	record.Symbols = append(record.Symbols, SymbolDecl{
		Name:      name,
		Kind:      kind,
		Signature: firstLineOf(strings.TrimSuffix(firstLineOf(nodeText(node, source)), ":")),
		Line:      nodeLine(node),
		Exported:  !strings.HasPrefix(name, "_"),
	})
}

func (e *PythonExtractor) extractClass(node *sitter.Node, source []byte, record *Record) {
	name := e.childIdentifier(node, source)
	if name == "" {
		return
	}
	record.Symbols = append(record.Symbols, SymbolDecl{
		Name:      name,
		Kind:      KindClass,
		Signature: firstLineOf(strings.TrimSuffix(firstLineOf(nodeText(node, source)), ":")),
		Line:      nodeLine(node),
		Exported:  !strings.HasPrefix(name, "_"),
	})
}

// extractModuleConstant records SHOUT_CASE module-level assignments.
func (e *PythonExtractor) extractModuleConstant(node *sitter.Node, source []byte, record *Record) {
	parent := node.Parent()
	if parent == nil || parent.Kind() != "expression_statement" {
		return
	}
	if gp := parent.Parent(); gp == nil || gp.Kind() != "module" {
		return
	}
	left := node.Child(0)
	if left == nil || left.Kind() != "identifier" {
		return
	}
	name := nodeText(left, source)
	if name == "" || name != strings.ToUpper(name) || !strings.ContainsAny(name, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		return
	}
	record.Symbols = append(record.Symbols, SymbolDecl{
		Name:     name,
		Kind:     KindConstant,
		Line:     nodeLine(node),
		Exported: !strings.HasPrefix(name, "_"),
	})
}

func (e *PythonExtractor) extractCall(node *sitter.Node, source []byte, record *Record) {
	callee := node.Child(0)
	if callee == nil {
		return
	}
	var target string
	switch callee.Kind() {
	case "identifier", "attribute":
		target = nodeText(callee, source)
	default:
		return
	}
	target = strings.TrimSpace(target)
	if target == "" {
		return
	}
	record.Edges = append(record.Edges, EdgeDecl{Kind: EdgeCall, Target: target, Line: nodeLine(node)})
}

func (e *PythonExtractor) childIdentifier(node *sitter.Node, source []byte) string {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child.Kind() == "identifier" {
			return nodeText(child, source)
		}
	}
	return ""
}
