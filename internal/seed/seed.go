// Package seed loads the initial catalogue into a store.
package seed

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/phrazzld/shelf-api/internal/domain"
	"github.com/phrazzld/shelf-api/internal/store"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultFixture []byte

// ErrNotSeedable is returned by Apply when the store cannot accept seed data.
var ErrNotSeedable = errors.New("store does not support seeding")

// Fixture is a set of records with predetermined ids, in insertion order.
type Fixture struct {
	Authors []domain.Author `yaml:"authors"`
	Books   []domain.Book   `yaml:"books"`
}

// Default returns the built-in catalogue: three authors and eight books.
func Default() *Fixture {
	f, err := Parse(defaultFixture)
	if err != nil {
		panic(fmt.Sprintf("seed: embedded default fixture is invalid: %v", err))
	}
	return f
}

// Parse decodes a YAML fixture. Unknown keys are rejected.
func Parse(data []byte) (*Fixture, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f Fixture
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to decode seed fixture: %w", err)
	}
	return &f, nil
}

// Load reads a YAML fixture from path.
func Load(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed fixture: %w", err)
	}
	return Parse(data)
}

// Apply loads f into s. The store validates the records; see store.Seeder.
func Apply(ctx context.Context, s store.EntityStore, f *Fixture, logger *slog.Logger) error {
	seeder, ok := s.(store.Seeder)
	if !ok {
		return ErrNotSeedable
	}

	if err := seeder.Seed(ctx, f.Authors, f.Books); err != nil {
		return fmt.Errorf("failed to seed store: %w", err)
	}

	if logger != nil {
		logger.Info("seed fixture applied",
			slog.Int("authors", len(f.Authors)),
			slog.Int("books", len(f.Books)))
	}
	return nil
}
