// Package scope builds the nested scope tree of a program and binds every
// identifier reference to its declaration.
package scope

import "github.com/desilang/jsopt/compiler/internal/ast"

// ScopeID addresses a Scope in Tree.Scopes.
type ScopeID int32

// NoScope is the parent of the global scope.
const NoScope ScopeID = -1

type Kind uint8

const (
	Global Kind = iota
	Function
	Block
)

func (k Kind) String() string {
	switch k {
	case Global:
		return "global"
	case Function:
		return "function"
	default:
		return "block"
	}
}

// Scope is one level of the scope chain. Parent and Hoist are arena
// indices; Hoist is the nearest Function/Global scope (itself for those).
type Scope struct {
	ID     ScopeID
	Kind   Kind
	Parent ScopeID
	Hoist  ScopeID
	Owner  ast.Node

	names map[string]*Binding
	order []*Binding
}

// Get returns the binding declared for name in this exact scope.
func (s *Scope) Get(name string) *Binding { return s.names[name] }

// Bindings returns the scope's bindings in declaration order.
func (s *Scope) Bindings() []*Binding { return append([]*Binding(nil), s.order...) }

func (s *Scope) define(b *Binding) {
	s.names[b.Name] = b
	s.order = append(s.order, b)
}

// BindKind is how a binding was introduced.
type BindKind uint8

const (
	BindVar BindKind = iota
	BindLet
	BindConst
	BindFunction
	BindParam
	BindBuiltin
)

func (k BindKind) String() string {
	switch k {
	case BindLet:
		return "let"
	case BindConst:
		return "const"
	case BindFunction:
		return "function"
	case BindParam:
		return "parameter"
	case BindBuiltin:
		return "builtin"
	default:
		return "var"
	}
}

func bindKindOf(k ast.DeclKind) BindKind {
	switch k {
	case ast.Let:
		return BindLet
	case ast.Const:
		return BindConst
	default:
		return BindVar
	}
}

// Binding associates a name with its declaration(s) in one scope.
type Binding struct {
	Name    string
	Kind    BindKind
	Mutable bool
	Decl    ast.Node   // first declaring node
	Decls   []ast.Node // every declaring node, in source order of discovery
	Scope   ScopeID

	Read   bool
	Reads  int
	Writes int

	// Arity is the declared parameter count of functions and builtins, -1
	// for everything else.
	Arity int
	Func  *ast.FuncDecl
	Pure  bool // builtins only
}

// Tree is the result of scope resolution over one program.
type Tree struct {
	Scopes    []*Scope
	Refs      map[*ast.Ident]*Binding // references and assignment targets
	RefScope  map[*ast.Ident]ScopeID
	Decls     map[ast.Node]*Binding // VarDecl, FuncDecl, Param
	NodeScope map[ast.Node]ScopeID  // Program, FuncDecl, Block, ForStmt
	Bindings  []*Binding            // declaration order, builtins excluded

	builtins map[string]*Binding
}

func newTree() *Tree {
	return &Tree{
		Refs:      map[*ast.Ident]*Binding{},
		RefScope:  map[*ast.Ident]ScopeID{},
		Decls:     map[ast.Node]*Binding{},
		NodeScope: map[ast.Node]ScopeID{},
		builtins:  newBuiltins(),
	}
}

func (t *Tree) Scope(id ScopeID) *Scope {
	if id < 0 || int(id) >= len(t.Scopes) {
		return nil
	}
	return t.Scopes[id]
}

// Lookup walks the scope chain from id outward and falls back to the
// builtin table. It returns nil when name is not bound anywhere.
func (t *Tree) Lookup(id ScopeID, name string) *Binding {
	for cur := t.Scope(id); cur != nil; cur = t.Scope(cur.Parent) {
		if b, ok := cur.names[name]; ok {
			return b
		}
	}
	return t.builtins[name]
}

// Builtin returns the builtin binding for name, or nil.
func (t *Tree) Builtin(name string) *Binding { return t.builtins[name] }

// IsAncestor reports whether anc is s or one of its ancestors.
func (t *Tree) IsAncestor(anc, s ScopeID) bool {
	for cur := s; cur != NoScope; cur = t.Scopes[cur].Parent {
		if cur == anc {
			return true
		}
	}
	return false
}

// FuncScope returns the hoist target of id.
func (t *Tree) FuncScope(id ScopeID) ScopeID {
	if s := t.Scope(id); s != nil {
		return s.Hoist
	}
	return NoScope
}

// Binding returns the binding an identifier resolved to, or nil.
func (t *Tree) Binding(id *ast.Ident) *Binding { return t.Refs[id] }

func (t *Tree) newScope(kind Kind, parent ScopeID, owner ast.Node) *Scope {
	s := &Scope{
		ID:     ScopeID(len(t.Scopes)),
		Kind:   kind,
		Parent: parent,
		Owner:  owner,
		names:  map[string]*Binding{},
	}
	if kind == Block {
		s.Hoist = t.Scopes[parent].Hoist
	} else {
		s.Hoist = s.ID
	}
	t.Scopes = append(t.Scopes, s)
	t.NodeScope[owner] = s.ID
	return s
}
