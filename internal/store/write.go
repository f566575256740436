package store

import (
	"context"
	"fmt"
)

// WriteArtifact inserts an artifact and its functions in one transaction.
// Uses ON CONFLICT(module_hash) DO NOTHING: if an artifact with the same
// module hash exists, nothing is written and its ID is returned with
// inserted=false.
func (s *Store) WriteArtifact(ctx context.Context, a Artifact) (id string, inserted bool, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", false, fmt.Errorf("write artifact: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	result, err := tx.ExecContext(ctx, `
		INSERT INTO artifacts
		(id, module_name, module_hash, ir_version, generator_version, target_triple, module_text, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(module_hash) DO NOTHING
	`,
		a.ID,
		a.ModuleName,
		a.ModuleHash,
		a.IRVersion,
		a.GeneratorVersion,
		a.TargetTriple,
		a.Text,
		a.Seq,
	)
	if err != nil {
		return "", false, fmt.Errorf("write artifact: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return "", false, fmt.Errorf("write artifact: rows affected: %w", err)
	}
	if rows == 0 {
		err = tx.QueryRowContext(ctx,
			"SELECT id FROM artifacts WHERE module_hash = ?", a.ModuleHash,
		).Scan(&id)
		if err != nil {
			return "", false, fmt.Errorf("write artifact: get existing id: %w", err)
		}
		return id, false, nil
	}

	for i, fn := range a.Functions {
		params, err := marshalParams(fn.Params)
		if err != nil {
			return "", false, fmt.Errorf("write artifact: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO artifact_functions
			(artifact_id, position, name, function_hash, params)
			VALUES (?, ?, ?, ?, ?)
		`, a.ID, i, fn.Name, fn.Hash, params)
		if err != nil {
			return "", false, fmt.Errorf("write artifact: function %q: %w", fn.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", false, fmt.Errorf("write artifact: commit: %w", err)
	}
	return a.ID, true, nil
}
