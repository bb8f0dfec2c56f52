package parser

import (
	"bytes"
	"path/filepath"
	"sort"
	"strings"
)

// LanguageUnknown is the tag for files no registered language claims. Unknown
// files stay in the index with empty symbol and edge sets.
const LanguageUnknown = "unknown"

type LanguageSpec struct {
	Name       string
	Extensions []string
	Filenames  []string
	Shebangs   []string // substrings matched against a #! first line
}

func DefaultLanguageRegistry() map[string]LanguageSpec {
	return map[string]LanguageSpec{
		"go": {
			Name:       "go",
			Extensions: []string{".go"},
		},
		"python": {
			Name:       "python",
			Extensions: []string{".py", ".pyi"},
			Shebangs:   []string{"python"},
		},
		"javascript": {
			Name:       "javascript",
			Extensions: []string{".js", ".jsx", ".mjs", ".cjs"},
			Shebangs:   []string{"node"},
		},
	}
}

// Classifier maps file paths to language tags. Extension lookup first, then
// exact filename, then a shebang sniff for extensionless scripts.
type Classifier struct {
	byExtension map[string]string
	byFilename  map[string]string
	shebangs    []shebangRule
}

type shebangRule struct {
	needle string
	lang   string
}

func NewClassifier(registry map[string]LanguageSpec) *Classifier {
	c := &Classifier{
		byExtension: make(map[string]string),
		byFilename:  make(map[string]string),
	}

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		spec := registry[name]
		for _, ext := range spec.Extensions {
			c.byExtension[ext] = spec.Name
		}
		for _, fn := range spec.Filenames {
			c.byFilename[fn] = spec.Name
		}
		for _, sb := range spec.Shebangs {
			c.shebangs = append(c.shebangs, shebangRule{needle: sb, lang: spec.Name})
		}
	}
	return c
}

// Classify is a pure function of (path, first content line).
func (c *Classifier) Classify(path string, content []byte) string {
	if ext := filepath.Ext(path); ext != "" {
		if lang, ok := c.byExtension[strings.ToLower(ext)]; ok {
			return lang
		}
		return LanguageUnknown
	}

	if lang, ok := c.byFilename[filepath.Base(path)]; ok {
		return lang
	}

	if line := firstLine(content); strings.HasPrefix(line, "#!") {
		for _, rule := range c.shebangs {
			if strings.Contains(line, rule.needle) {
				return rule.lang
			}
		}
	}

	return LanguageUnknown
}

func firstLine(content []byte) string {
	if idx := bytes.IndexByte(content, '\n'); idx >= 0 {
		content = content[:idx]
	}
	if len(content) > 128 {
		content = content[:128]
	}
	return string(content)
}
