package adrlint

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
)

// astLanguages maps a file extension to the tree-sitter grammar used to
// parse it. Only Go is wired today; an ast rule scoped to an unsupported
// extension simply yields no matches for that file rather than erroring,
// since scope_glob commonly spans multiple languages.
var astLanguages = map[string]*sitter.Language{
	".go": golang.GetLanguage(),
}

// runASTRule matches rule.Pattern against tree-sitter node *type* names
// (e.g. "function_declaration", "import_spec") rather than source text: a
// match is any node in the parsed file whose Type() equals the pattern,
// except nodes tree-sitter marks as parse errors (IsError), which are
// skipped.
func (e *Engine) runASTRule(ctx context.Context, rule LintRule, files []string) ([]Finding, error) {
	nodeType := strings.TrimSpace(rule.Pattern)
	if nodeType == "" {
		return nil, fmt.Errorf("ast rule pattern must name a tree-sitter node type")
	}

	parser := sitter.NewParser()
	defer parser.Close()

	var findings []Finding
	for _, f := range files {
		lang, ok := astLanguages[filepath.Ext(f)]
		if !ok {
			continue
		}
		parser.SetLanguage(lang)

		fileCtx, cancel := context.WithTimeout(ctx, time.Duration(rule.TimeoutMS)*time.Millisecond)
		content, err := os.ReadFile(f)
		if err != nil {
			cancel()
			continue
		}
		tree, err := parser.ParseCtx(fileCtx, nil, content)
		cancel()
		if err != nil || tree == nil {
			continue
		}

		rel, relErr := filepath.Rel(e.projectRoot, f)
		if relErr != nil {
			rel = f
		}
		walkForNodeType(tree.RootNode(), nodeType, content, rel, rule, &findings)
		tree.Close()
	}
	return findings, nil
}

func walkForNodeType(n *sitter.Node, nodeType string, src []byte, relPath string, rule LintRule, out *[]Finding) {
	if n == nil {
		return
	}
	if n.Type() == nodeType && !n.IsError() {
		point := n.StartPoint()
		*out = append(*out, Finding{
			Severity:   SeverityBlock,
			Message:    rule.ViolationMessage,
			File:       relPath,
			Line:       int(point.Row) + 1,
			Col:        int(point.Column) + 1,
			References: []string{rule.ADRID},
		})
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		walkForNodeType(n.Child(i), nodeType, src, relPath, rule, out)
	}
}
