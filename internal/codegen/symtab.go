package codegen

import "github.com/llir/llvm/ir/value"

// SymbolTable is a stack of name to value scopes.
//
// Scopes are pushed for the function body, each For body and each explicit
// Scope statement. If/else arms, while bodies and switch arms do not get a
// scope of their own: a declaration inside them is visible to the statements
// that follow the construct.
type SymbolTable struct {
	scopes []map[string]value.Value
}

// NewSymbolTable returns a table with no scopes.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{}
}

// PushScope opens a new innermost scope.
func (s *SymbolTable) PushScope() {
	s.scopes = append(s.scopes, make(map[string]value.Value))
}

// PopScope discards the innermost scope.
func (s *SymbolTable) PopScope() error {
	if len(s.scopes) == 0 {
		return internalf(ErrCodeScopeUnderflow, "pop with no open scope")
	}
	s.scopes = s.scopes[:len(s.scopes)-1]
	return nil
}

// Bind sets name in the innermost scope, replacing any earlier binding there.
func (s *SymbolTable) Bind(name string, v value.Value) error {
	if len(s.scopes) == 0 {
		return internalf(ErrCodeScopeUnderflow, "bind %q with no open scope", name)
	}
	s.scopes[len(s.scopes)-1][name] = v
	return nil
}

// Lookup resolves name from the innermost scope outwards.
func (s *SymbolTable) Lookup(name string) (value.Value, error) {
	for i := len(s.scopes) - 1; i >= 0; i-- {
		if v, ok := s.scopes[i][name]; ok {
			return v, nil
		}
	}
	return nil, internalf(ErrCodeUnboundVariable, "%q is not bound", name)
}

// Contains reports whether name is bound in any open scope.
func (s *SymbolTable) Contains(name string) bool {
	_, err := s.Lookup(name)
	return err == nil
}

// Depth is the number of open scopes.
func (s *SymbolTable) Depth() int {
	return len(s.scopes)
}
