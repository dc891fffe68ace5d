// Package phpsyntax parses PHP sources with tree-sitter to report on the
// rewritten output. It never changes the text it is given.
package phpsyntax

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/php"
)

// Problem is a syntax error or a token the parser had to invent.
type Problem struct {
	Line    int    `json:"line"`
	Column  int    `json:"column"`
	Kind    string `json:"kind"` // "error" or "missing"
	Snippet string `json:"snippet,omitempty"`
}

func (p Problem) String() string {
	if p.Snippet == "" {
		return fmt.Sprintf("%d:%d: %s", p.Line, p.Column, p.Kind)
	}
	return fmt.Sprintf("%d:%d: %s near %q", p.Line, p.Column, p.Kind, p.Snippet)
}

// ClassDecl is a class declaration found in a source file.
type ClassDecl struct {
	Name string
	Base string
	Line int
}

// Checker wraps a tree-sitter parser for PHP.
type Checker struct {
	lang *sitter.Language
}

func NewChecker() *Checker {
	return &Checker{lang: php.GetLanguage()}
}

func (c *Checker) parse(ctx context.Context, src []byte) (*sitter.Node, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(c.lang)
	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("failed to parse php source: %w", err)
	}
	return tree.RootNode(), nil
}

// Check returns every syntax problem in src, in source order. A clean file
// yields no problems.
func (c *Checker) Check(ctx context.Context, src []byte) ([]Problem, error) {
	root, err := c.parse(ctx, src)
	if err != nil {
		return nil, err
	}
	if !root.HasError() {
		return nil, nil
	}

	var problems []Problem
	walk(root, func(n *sitter.Node) bool {
		switch {
		case n.Type() == "ERROR":
			problems = append(problems, newProblem(n, "error", src))
			return false
		case n.IsMissing():
			problems = append(problems, newProblem(n, "missing", src))
			return false
		}
		return n.HasError()
	})
	return problems, nil
}

// Classes lists the class declarations of src with their base class, if any.
func (c *Checker) Classes(ctx context.Context, src []byte) ([]ClassDecl, error) {
	root, err := c.parse(ctx, src)
	if err != nil {
		return nil, err
	}

	var classes []ClassDecl
	walk(root, func(n *sitter.Node) bool {
		if n.Type() != "class_declaration" {
			return true
		}
		decl := ClassDecl{Line: int(n.StartPoint().Row) + 1}
		if name := n.ChildByFieldName("name"); name != nil {
			decl.Name = name.Content(src)
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			child := n.NamedChild(i)
			if child.Type() != "base_clause" {
				continue
			}
			for j := 0; j < int(child.NamedChildCount()); j++ {
				base := child.NamedChild(j)
				if base.Type() == "name" || base.Type() == "qualified_name" {
					decl.Base = base.Content(src)
					break
				}
			}
		}
		classes = append(classes, decl)
		return true
	})
	return classes, nil
}

// walk visits n and its descendants depth-first; visit returns false to skip
// the children of the node it was given.
func walk(n *sitter.Node, visit func(*sitter.Node) bool) {
	if n == nil || !visit(n) {
		return
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		walk(n.Child(i), visit)
	}
}

const snippetRunes = 40

func newProblem(n *sitter.Node, kind string, src []byte) Problem {
	p := Problem{
		Line:   int(n.StartPoint().Row) + 1,
		Column: int(n.StartPoint().Column) + 1,
		Kind:   kind,
	}
	if kind == "missing" {
		p.Snippet = n.Type()
		return p
	}
	snippet := strings.TrimSpace(n.Content(src))
	if i := strings.IndexByte(snippet, '\n'); i >= 0 {
		snippet = snippet[:i]
	}
	p.Snippet = clip(snippet, snippetRunes)
	return p
}

// clip cuts s to at most n runes.
func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
