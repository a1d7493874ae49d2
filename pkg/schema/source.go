package schema

import (
	"context"
	"fmt"
)

// Source turns manifest entries into loaded artifacts.
type Source struct {
	loader ResourceLoader
}

// NewSource creates a source reading scripts through loader.
func NewSource(loader ResourceLoader) *Source {
	return &Source{loader: loader}
}

// Load reads and parses the script for ref. It has no side effects.
func (s *Source) Load(ctx context.Context, ref ArtifactRef) (Artifact, error) {
	if err := ctx.Err(); err != nil {
		return Artifact{}, err
	}

	data, err := s.loader.Open(ref.File)
	if err != nil {
		return Artifact{}, fmt.Errorf("artifact %s: %w", ref.Name, err)
	}

	statements, err := SplitStatements(string(data))
	if err != nil {
		return Artifact{}, fmt.Errorf("artifact %s (%s): %w", ref.Name, ref.File, err)
	}

	deps := make([]string, len(ref.DependsOn))
	copy(deps, ref.DependsOn)

	return Artifact{
		Name:       ref.Name,
		Store:      ref.Store,
		Version:    ref.Version,
		DependsOn:  deps,
		Statements: statements,
		Checksum:   Checksum(statements),
	}, nil
}
