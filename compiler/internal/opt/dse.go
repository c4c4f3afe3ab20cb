package opt

import (
	"github.com/desilang/jsopt/compiler/internal/ast"
	"github.com/desilang/jsopt/compiler/internal/diag"
	"github.com/desilang/jsopt/compiler/internal/scope"
)

// dsePass deletes declarations of bindings that are never read nor
// assigned, provided their initializers have no side effects.
type dsePass struct{}

func (dsePass) Name() string { return PassDSE }

func (dsePass) Apply(prog *ast.Program, a *analysis, _ *diag.Set) []Record {
	dead := map[*ast.VarDecl]bool{}
	for _, b := range a.tree.Bindings {
		if removable(b, a) {
			for _, d := range b.Decls {
				dead[d.(*ast.VarDecl)] = true
			}
		}
	}
	if len(dead) == 0 {
		return nil
	}

	var recs []Record
	for _, list := range stmtLists(prog) {
		kept := (*list)[:0:0]
		for _, s := range *list {
			if d, ok := s.(*ast.VarDecl); ok && dead[d] {
				recs = append(recs, record(PassDSE, d, nil))
				continue
			}
			if f, ok := s.(*ast.ForStmt); ok {
				if d, ok := f.Init.(*ast.VarDecl); ok && dead[d] {
					recs = append(recs, record(PassDSE, d, nil))
					f.Init = nil
				}
			}
			kept = append(kept, s)
		}
		*list = kept
	}
	return recs
}

func removable(b *scope.Binding, a *analysis) bool {
	switch b.Kind {
	case scope.BindVar, scope.BindLet, scope.BindConst:
	default:
		return false
	}
	if b.Reads != 0 || b.Writes != 0 {
		return false
	}
	for _, d := range b.Decls {
		vd, ok := d.(*ast.VarDecl)
		if !ok || !a.pureExpr(vd.Init) {
			return false
		}
	}
	return true
}
