package parser

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
)

type GrammarLoader struct {
	languages map[string]*sitter.Language
}

func NewGrammarLoader() *GrammarLoader {
	gl := &GrammarLoader{
		languages: make(map[string]*sitter.Language),
	}

	gl.languages["go"] = sitter.NewLanguage(tree_sitter_go.Language())
	gl.languages["python"] = sitter.NewLanguage(tree_sitter_python.Language())
	gl.languages["javascript"] = sitter.NewLanguage(tree_sitter_javascript.Language())

	return gl
}

func (gl *GrammarLoader) Grammar(lang string) *sitter.Language {
	return gl.languages[lang]
}
