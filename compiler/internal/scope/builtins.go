package scope

// BuiltinSpec describes a host function that is always in scope.
type BuiltinSpec struct {
	Name  string
	Arity int
	Pure  bool
}

// Builtins is the fixed builtin table, resolved after the global scope.
var Builtins = []BuiltinSpec{
	{Name: "print", Arity: 1},
	{Name: "println", Arity: 1},
	{Name: "input", Arity: 0},
	{Name: "toNumber", Arity: 1, Pure: true},
	{Name: "length", Arity: 1, Pure: true},
	{Name: "concat", Arity: 2, Pure: true},
}

// IsBuiltin reports whether name is in the builtin table.
func IsBuiltin(name string) bool {
	for _, b := range Builtins {
		if b.Name == name {
			return true
		}
	}
	return false
}

func newBuiltins() map[string]*Binding {
	m := make(map[string]*Binding, len(Builtins))
	for _, spec := range Builtins {
		m[spec.Name] = &Binding{
			Name:  spec.Name,
			Kind:  BindBuiltin,
			Scope: NoScope,
			Arity: spec.Arity,
			Pure:  spec.Pure,
		}
	}
	return m
}
