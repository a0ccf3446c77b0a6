package pug

import (
	"fmt"
	"slices"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
	exprparser "github.com/expr-lang/expr/parser"
	"github.com/expr-lang/expr/vm"
)

// Expr is an expression embedded in a template, compiled when the template
// is parsed. Expressions can only read the Locals they're evaluated against.
type Expr struct {
	// Source is the expression as written in the template.
	Source string

	program *vm.Program

	// names holds the locals the expression refers to, sorted.
	names []string
}

// Names returns the names of the locals the expression refers to.
func (e *Expr) Names() []string {
	return slices.Clone(e.names)
}

func (e *Expr) String() string {
	return e.Source
}

func compileExpr(src string) (*Expr, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, fmt.Errorf("empty expression")
	}
	tree, err := exprparser.Parse(src)
	if err != nil {
		return nil, err
	}
	names := &nameCollector{declared: map[string]struct{}{}}
	ast.Walk(&tree.Node, names)

	program, err := expr.Compile(src, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, err
	}
	return &Expr{
		Source:  src,
		program: program,
		names:   names.free(),
	}, nil
}

// nameCollector gathers the identifiers an expression reads from its
// environment. Member names (the b in a.b) are string nodes, not
// identifiers, so they're never collected. Names bound with let are the
// expression's own and are left out.
type nameCollector struct {
	idents   []string
	declared map[string]struct{}
}

func (c *nameCollector) Visit(node *ast.Node) {
	switch n := (*node).(type) {
	case *ast.VariableDeclaratorNode:
		c.declared[n.Name] = struct{}{}
	case *ast.IdentifierNode:
		if !strings.HasPrefix(n.Value, "$") {
			c.idents = append(c.idents, n.Value)
		}
	}
}

// free returns the collected names that aren't declared by the expression,
// sorted and without duplicates.
func (c *nameCollector) free() []string {
	var names []string
	for _, name := range c.idents {
		if _, ok := c.declared[name]; !ok {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return slices.Compact(names)
}

// eval evaluates the expression against scope. Locals the expression
// refers to but scope doesn't define are an UndefinedLocalError when strict
// is set. When it isn't, they evaluate to nil, and if they make the whole
// expression fail, the result is nil rather than an error.
func (e *Expr) eval(scope Locals, strict bool, pos Pos) (any, error) {
	var undefined []string
	for _, name := range e.names {
		if _, ok := scope[name]; !ok {
			undefined = append(undefined, name)
		}
	}
	if strict && len(undefined) > 0 {
		return nil, &UndefinedLocalError{Pos: pos, Name: undefined[0]}
	}
	out, err := expr.Run(e.program, map[string]any(scope))
	if err != nil {
		if len(undefined) > 0 {
			return nil, nil
		}
		return nil, &RenderError{Pos: pos, Err: fmt.Errorf("evaluating %q: %w", e.Source, err)}
	}
	return out, nil
}
