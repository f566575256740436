package ir

import "errors"

// ErrEmptyCase is returned when a Case has no clauses.
var ErrEmptyCase = errors.New("case statement has no clauses")

// DesugarCase rewrites an ordered-clause Case into nested IfThenElse.
//
// The first clause becomes the outermost if, and the remaining clauses
// become its else branch, so the first clause whose condition holds is the
// only one that executes. The last clause depends on AlwaysMatch:
//
//   - AlwaysMatch: some clause is guaranteed to hold, so the last body is
//     the innermost else and its condition is not tested.
//   - otherwise: the last clause is tested like the others and an empty
//     else is synthesised; when no condition holds nothing executes.
func DesugarCase(c *Case) (Stmt, error) {
	if len(c.Clauses) == 0 {
		return nil, ErrEmptyCase
	}
	return desugarClauses(c.Clauses, c.AlwaysMatch), nil
}

func desugarClauses(clauses []Clause, alwaysMatch bool) Stmt {
	first := clauses[0]
	if len(clauses) == 1 {
		if alwaysMatch {
			return first.Body
		}
		return &IfThenElse{Cond: first.Cond, Then: first.Body, Otherwise: &Comment{}}
	}
	return &IfThenElse{
		Cond:      first.Cond,
		Then:      first.Body,
		Otherwise: desugarClauses(clauses[1:], alwaysMatch),
	}
}
