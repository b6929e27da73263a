// Package records serves policy and precedent lookups from a data file,
// optionally behind an in-process TTL cache.
package records

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/claim"
)

// #region file-store

// FileStore holds a dataset in memory. Read-only after construction.
type FileStore struct {
	policies   map[string]claim.PolicyRecord
	precedents []claim.PrecedentCase
}

// NewFileStore indexes ds by policy number. Later duplicates win.
func NewFileStore(ds Dataset) *FileStore {
	s := &FileStore{
		policies:   make(map[string]claim.PolicyRecord, len(ds.Policies)),
		precedents: append([]claim.PrecedentCase(nil), ds.Precedents...),
	}
	for _, p := range ds.Policies {
		s.policies[p.PolicyNumber] = p
	}
	return s
}

// LoadFile reads a YAML (.yaml, .yml) or JSON (.json) records file.
func LoadFile(path string) (*FileStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read records file: %w", err)
	}

	var ds Dataset
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &ds)
	case ".json":
		err = json.Unmarshal(data, &ds)
	default:
		return nil, fmt.Errorf("records file %s: unsupported extension", path)
	}
	if err != nil {
		return nil, fmt.Errorf("parse records file %s: %w", path, err)
	}
	return NewFileStore(ds), nil
}

// Policy returns the policy or an error wrapping ErrNotFound and
// *claim.PolicyNotFoundError.
func (s *FileStore) Policy(ctx context.Context, policyNumber string) (claim.PolicyRecord, error) {
	if err := ctx.Err(); err != nil {
		return claim.PolicyRecord{}, err
	}
	p, ok := s.policies[policyNumber]
	if !ok {
		return claim.PolicyRecord{}, fmt.Errorf("%w: %w", ErrNotFound, &claim.PolicyNotFoundError{PolicyNumber: policyNumber})
	}
	p.Exclusions = append([]string(nil), p.Exclusions...)
	return p, nil
}

// Precedents returns the cases of claimType in file order.
func (s *FileStore) Precedents(ctx context.Context, claimType string) ([]claim.PrecedentCase, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]claim.PrecedentCase, 0, len(s.precedents))
	for _, c := range s.precedents {
		if claimType == "" || c.ClaimType == claimType {
			out = append(out, c)
		}
	}
	return out, nil
}

// #endregion file-store
