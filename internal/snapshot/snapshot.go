// Package snapshot persists the derived artifacts of a corpus so later runs
// can skip normalization and weighting: the inverted index as a segment file,
// and the weighted matrix, query terms and relevance judgments as codec
// encoded documents. Every artifact records the fingerprint of the inputs it
// was derived from; loading with a different fingerprint is a mismatch.
package snapshot

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/internal/evaluation"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/internal/index"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/internal/query"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/internal/segment"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/internal/weighting"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/pkg/codec"
	apperrors "github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/pkg/errors"
)

// Kind names an artifact and becomes part of its file name.
type Kind string

const (
	KindMatrix  Kind = "tf_idf"
	KindQueries Kind = "query_terms"
	KindTruth   Kind = "query_rel"
)

type envelope[T any] struct {
	Kind        Kind   `json:"kind" cbor:"kind"`
	Fingerprint string `json:"fingerprint" cbor:"fingerprint"`
	Payload     T      `json:"payload" cbor:"payload"`
}

// matrixPayload keeps the weights in the plain {doc: {term: weight}} shape
// so JSON snapshots stay readable by other tools.
type matrixPayload struct {
	Docs    []string                 `json:"docs" cbor:"docs"`
	IDF     map[string]float64       `json:"idf" cbor:"idf"`
	Weights map[string]weighting.Row `json:"weights" cbor:"weights"`
}

// Store reads and writes artifacts under one directory.
type Store struct {
	dir    string
	format codec.Format
	logger *slog.Logger
}

func NewStore(dir string, format codec.Format) *Store {
	return &Store{
		dir:    dir,
		format: format,
		logger: slog.Default().With("component", "snapshot"),
	}
}

// Dir returns the snapshot directory.
func (s *Store) Dir() string { return s.dir }

// Path returns the file an artifact of the given kind is stored in.
func (s *Store) Path(name string, kind Kind) string {
	return filepath.Join(s.dir, name+"_"+string(kind)+s.format.Extension())
}

// SaveMatrix stores the weighted matrix.
func (s *Store) SaveMatrix(name, fingerprint string, m *weighting.Matrix) error {
	return save(s, name, KindMatrix, fingerprint, matrixPayload{
		Docs:    m.Docs(),
		IDF:     m.IDFs(),
		Weights: m.Rows(),
	})
}

// LoadMatrix reads a matrix saved with the same fingerprint.
func (s *Store) LoadMatrix(name, fingerprint string) (*weighting.Matrix, error) {
	p, err := load[matrixPayload](s, name, KindMatrix, fingerprint)
	if err != nil {
		return nil, err
	}
	m, err := weighting.NewMatrix(p.Docs, p.Weights, p.IDF)
	if err != nil {
		return nil, fmt.Errorf("restoring matrix %s: %w", name, err)
	}
	return m, nil
}

// SaveQueries stores normalized query seeds.
func (s *Store) SaveQueries(name, fingerprint string, qs []query.Query) error {
	return save(s, name, KindQueries, fingerprint, qs)
}

func (s *Store) LoadQueries(name, fingerprint string) ([]query.Query, error) {
	return load[[]query.Query](s, name, KindQueries, fingerprint)
}

// SaveTruth stores relevance judgments.
func (s *Store) SaveTruth(name, fingerprint string, t evaluation.Truth) error {
	return save(s, name, KindTruth, fingerprint, t)
}

func (s *Store) LoadTruth(name, fingerprint string) (evaluation.Truth, error) {
	return load[evaluation.Truth](s, name, KindTruth, fingerprint)
}

// SaveIndex writes the inverted index as a segment file.
func (s *Store) SaveIndex(name, fingerprint string, idx *index.Index) error {
	_, err := segment.NewWriter(s.dir).Write(name, idx, fingerprint)
	return err
}

// LoadIndex reads the segment for name if it was built from fingerprint.
func (s *Store) LoadIndex(name, fingerprint string) (*index.Index, error) {
	path := filepath.Join(s.dir, name+segment.Extension)
	r, err := segment.OpenReader(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("segment %s: %w", path, apperrors.ErrNotFound)
		}
		return nil, err
	}
	defer r.Close()
	if r.Fingerprint() != fingerprint {
		return nil, fmt.Errorf("segment %s: %w", path, apperrors.ErrSnapshotMismatch)
	}
	return r.Load()
}

func save[T any](s *Store, name string, kind Kind, fingerprint string, payload T) error {
	data, err := codec.Marshal(s.format, envelope[T]{Kind: kind, Fingerprint: fingerprint, Payload: payload})
	if err != nil {
		return fmt.Errorf("encoding %s %s: %w", name, kind, err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}
	path := s.Path(name, kind)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming %s: %w", tmp, err)
	}
	s.logger.Info("snapshot written", "path", path, "bytes", len(data))
	return nil
}

func load[T any](s *Store, name string, kind Kind, fingerprint string) (T, error) {
	var zero T
	path := s.Path(name, kind)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return zero, fmt.Errorf("snapshot %s: %w", path, apperrors.ErrNotFound)
		}
		return zero, fmt.Errorf("reading snapshot %s: %w", path, err)
	}
	var env envelope[T]
	if err := codec.Unmarshal(s.format, data, &env); err != nil {
		return zero, fmt.Errorf("snapshot %s: %w: %v", path, apperrors.ErrMalformedRecord, err)
	}
	if env.Kind != kind {
		return zero, fmt.Errorf("snapshot %s holds %q: %w", path, env.Kind, apperrors.ErrMalformedRecord)
	}
	if env.Fingerprint != fingerprint {
		return zero, fmt.Errorf("snapshot %s: %w", path, apperrors.ErrSnapshotMismatch)
	}
	return env.Payload, nil
}
