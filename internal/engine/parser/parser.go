package parser

import (
	"fmt"
	"time"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"deeprepo/internal/shared/observability"
)

// Extractor turns a parse tree into a Record. One implementation per language.
type Extractor interface {
	Extract(root *sitter.Node, source []byte, filePath string) *Record
}

type Parser struct {
	loader     *GrammarLoader
	classifier *Classifier
	extractors map[string]Extractor // language -> extractor
}

func NewParser(loader *GrammarLoader, classifier *Classifier) *Parser {
	return &Parser{
		loader:     loader,
		classifier: classifier,
		extractors: make(map[string]Extractor),
	}
}

// NewDefaultParser wires the built-in registry, grammars and extractors.
func NewDefaultParser() *Parser {
	p := NewParser(NewGrammarLoader(), NewClassifier(DefaultLanguageRegistry()))
	p.RegisterExtractor("go", &GoExtractor{})
	p.RegisterExtractor("python", &PythonExtractor{})
	p.RegisterExtractor("javascript", &JavaScriptExtractor{})
	return p
}

func (p *Parser) RegisterExtractor(lang string, e Extractor) {
	p.extractors[lang] = e
}

func (p *Parser) Classify(path string, content []byte) string {
	return p.classifier.Classify(path, content)
}

func (p *Parser) HasExtractor(lang string) bool {
	return p.extractors[lang] != nil
}

// ExtractFile never fails the run: unsupported languages and parse failures
// degrade to an empty Record, with a diagnostic where extraction was expected
// to work.
func (p *Parser) ExtractFile(path, lang string, content []byte) *Record {
	record := &Record{Path: path, Language: lang}

	extractor := p.extractors[lang]
	if extractor == nil {
		return record
	}

	grammar := p.loader.Grammar(lang)
	if grammar == nil {
		record.Diagnostics = append(record.Diagnostics,
			fmt.Sprintf("grammar not loaded for language %q", lang))
		return record
	}

	started := time.Now()
	defer func() {
		observability.ParsingDuration.WithLabelValues(lang).Observe(time.Since(started).Seconds())
	}()

	parser := sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(grammar); err != nil {
		record.Diagnostics = append(record.Diagnostics,
			fmt.Sprintf("set language %q: %v", lang, err))
		return record
	}

	tree := parser.Parse(content, nil)
	if tree == nil {
		record.Diagnostics = append(record.Diagnostics, "parse failed")
		return record
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		// Partial trees are still walked; note the degradation.
		record.Diagnostics = append(record.Diagnostics, "syntax errors, extraction is best-effort")
	}

	extracted := extractor.Extract(root, content, path)
	record.Symbols = extracted.Symbols
	record.Edges = extracted.Edges
	record.Diagnostics = append(record.Diagnostics, extracted.Diagnostics...)
	return record
}
