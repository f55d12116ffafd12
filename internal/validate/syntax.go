package validate

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	sqllang "github.com/smacker/go-tree-sitter/sql"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/agentic-research/roleforge/internal/plugin"
)

// syntax checks generated source code with tree-sitter grammars.
type syntax struct{}

// Syntax returns the tree-sitter validator for generated scripts and
// source files.
func Syntax() plugin.Validator { return syntax{} }

func (syntax) Name() string { return "syntax" }

func (syntax) Accepts(file *plugin.FileContext) bool {
	return languageForPath(file.Path) != nil
}

func (syntax) Validate(ctx context.Context, file *plugin.FileContext, _ plugin.Options) error {
	content, err := file.ReadBytes()
	if err != nil {
		return fmt.Errorf("read %s: %w", file.Path, err)
	}
	return CheckSyntax(ctx, content, file.Path)
}

// CheckSyntax parses content with tree-sitter and returns an error if the
// AST contains syntax errors, one *ValidationError per error node joined
// together. Files with no known tree-sitter language pass through without
// validation.
func CheckSyntax(ctx context.Context, content []byte, filePath string) error {
	lang := languageForPath(filePath)
	if lang == nil {
		return nil
	}

	parser := sitter.NewParser()
	parser.SetLanguage(lang)

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return fmt.Errorf("tree-sitter parse failed for %s: %w", filePath, err)
	}

	root := tree.RootNode()
	if root == nil {
		return fmt.Errorf("tree-sitter returned nil root for %s", filePath)
	}
	if !root.HasError() {
		return nil
	}

	var errs []error
	collectErrors(root, filePath, &errs)
	if len(errs) == 0 {
		return &ValidationError{Validator: "syntax", FilePath: filePath, Message: "AST contains errors"}
	}
	return errors.Join(errs...)
}

// collectErrors appends every ERROR or MISSING node below node in document
// order.
func collectErrors(node *sitter.Node, filePath string, errs *[]error) {
	if node.IsError() || node.IsMissing() {
		*errs = append(*errs, &ValidationError{
			Validator: "syntax",
			FilePath:  filePath,
			Line:      uint32(node.StartPoint().Row),
			Column:    uint32(node.StartPoint().Column),
			Message:   "syntax error in AST",
		})
		return
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.HasError() || child.IsError() || child.IsMissing() {
			collectErrors(child, filePath, errs)
		}
	}
}

func languageForPath(filePath string) *sitter.Language {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".go":
		return golang.GetLanguage()
	case ".py":
		return python.GetLanguage()
	case ".js":
		return javascript.GetLanguage()
	case ".ts", ".tsx":
		return typescript.GetLanguage()
	case ".rs":
		return rust.GetLanguage()
	case ".sql":
		return sqllang.GetLanguage()
	default:
		return nil
	}
}
