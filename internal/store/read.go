package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const artifactColumns = `id, module_name, module_hash, ir_version, generator_version, target_triple, module_text, seq`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArtifact(r rowScanner) (Artifact, error) {
	var a Artifact
	err := r.Scan(&a.ID, &a.ModuleName, &a.ModuleHash, &a.IRVersion,
		&a.GeneratorVersion, &a.TargetTriple, &a.Text, &a.Seq)
	return a, err
}

// LookupArtifact returns the artifact stored under a module hash, with its
// functions. found is false when the hash is not cached.
func (s *Store) LookupArtifact(ctx context.Context, moduleHash string) (a Artifact, found bool, err error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+artifactColumns+" FROM artifacts WHERE module_hash = ?", moduleHash)
	a, err = scanArtifact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Artifact{}, false, nil
	}
	if err != nil {
		return Artifact{}, false, fmt.Errorf("lookup artifact: %w", err)
	}

	a.Functions, err = s.Functions(ctx, a.ID)
	if err != nil {
		return Artifact{}, false, err
	}
	return a, true, nil
}

// ListArtifacts returns every artifact ordered by seq ASC, id ASC COLLATE
// BINARY. Functions are not loaded. Returns an empty slice, not nil, for an
// empty cache.
func (s *Store) ListArtifacts(ctx context.Context) ([]Artifact, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+artifactColumns+" FROM artifacts ORDER BY seq ASC, id COLLATE BINARY ASC")
	if err != nil {
		return nil, fmt.Errorf("query artifacts: %w", err)
	}
	defer rows.Close()

	artifacts := []Artifact{}
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		artifacts = append(artifacts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate artifacts: %w", err)
	}
	return artifacts, nil
}

// Functions returns the functions of one artifact in compile order.
func (s *Store) Functions(ctx context.Context, artifactID string) ([]Function, error) {
	return s.queryFunctions(ctx, `
		SELECT artifact_id, position, name, function_hash, params
		FROM artifact_functions
		WHERE artifact_id = ?
		ORDER BY position ASC
	`, artifactID)
}

// FindFunction returns every cached copy of a function, oldest artifact
// first.
func (s *Store) FindFunction(ctx context.Context, functionHash string) ([]Function, error) {
	return s.queryFunctions(ctx, `
		SELECT f.artifact_id, f.position, f.name, f.function_hash, f.params
		FROM artifact_functions f
		JOIN artifacts a ON a.id = f.artifact_id
		WHERE f.function_hash = ?
		ORDER BY a.seq ASC, a.id COLLATE BINARY ASC
	`, functionHash)
}

func (s *Store) queryFunctions(ctx context.Context, query string, arg string) ([]Function, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("query functions: %w", err)
	}
	defer rows.Close()

	fns := []Function{}
	for rows.Next() {
		var fn Function
		var params string
		if err := rows.Scan(&fn.ArtifactID, &fn.Position, &fn.Name, &fn.Hash, &params); err != nil {
			return nil, fmt.Errorf("scan function: %w", err)
		}
		if fn.Params, err = unmarshalParams(params); err != nil {
			return nil, err
		}
		fns = append(fns, fn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate functions: %w", err)
	}
	return fns, nil
}

// LastSeq returns the highest seq stored, or 0 for an empty cache. The
// driver seeds its clock from it.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := s.db.QueryRowContext(ctx, "SELECT MAX(seq) FROM artifacts").Scan(&seq); err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq.Int64, nil
}
