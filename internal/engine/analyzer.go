package engine

import (
	"github.com/expr-lang/expr/ast"

	"github.com/BDNK1/vecexpr/internal/symbol"
)

const envIdentifier = "$env"

// references is the set of identifiers a program reads. A program that
// touches $env can reach any variable.
type references struct {
	names map[string]struct{}
	all   bool
}

func (r references) has(name string) bool {
	if r.all {
		return true
	}
	_, ok := r.names[name]
	return ok
}

type referenceCollector struct {
	refs references
}

func (c *referenceCollector) Visit(node *ast.Node) {
	if n, ok := (*node).(*ast.IdentifierNode); ok {
		if n.Value == envIdentifier {
			c.refs.all = true
		}
		c.refs.names[n.Value] = struct{}{}
	}
}

func collectReferences(root *ast.Node) references {
	c := &referenceCollector{refs: references{names: make(map[string]struct{})}}
	ast.Walk(root, c)
	return c.refs
}

// MarkNeeded flags every variable of table that the compiled program reads.
// Without a program all flags are cleared.
func (e *Engine) MarkNeeded(table *symbol.Table) {
	if e.program == nil {
		table.ResetNeeded()
		return
	}
	refs := e.program.refs
	for i := 0; i < table.Scalars.Len(); i++ {
		v := table.Scalars.At(i)
		v.Needed = refs.has(v.Used)
	}
	for i := 0; i < table.Vectors.Len(); i++ {
		v := table.Vectors.At(i)
		v.Needed = refs.has(v.Used)
	}
}
