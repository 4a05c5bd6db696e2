package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"bikeshare/internal/dataprocessing"
	"bikeshare/pkg/contracts/domain"
)

// Session holds the immutable base table for the lifetime of the process,
// plus its physical-unit view converted exactly once.
type Session struct {
	base     *dataprocessing.Table
	physical *dataprocessing.Table
	scale    dataprocessing.UnitScale
	source   string
	loadedAt time.Time
}

// NewSession wraps an already loaded table.
func NewSession(base *dataprocessing.Table, scale dataprocessing.UnitScale, source string) (*Session, error) {
	if base == nil {
		return nil, ErrNoData
	}

	physical := base
	if base.Units() == domain.UnitsNormalized {
		converted, err := dataprocessing.ConvertUnits(base, scale)
		if err != nil {
			return nil, fmt.Errorf("convert base table: %w", err)
		}
		physical = converted
	}

	return &Session{
		base:     base,
		physical: physical,
		scale:    scale,
		source:   source,
		loadedAt: time.Now(),
	}, nil
}

// LoadSession reads path with loader and wraps the result.
func LoadSession(ctx context.Context, loader *dataprocessing.Loader, path string, scale dataprocessing.UnitScale) (*Session, error) {
	table, err := loader.LoadFile(ctx, path)
	if err != nil {
		return nil, err
	}
	return NewSession(table, scale, path)
}

// Base returns the table as loaded.
func (s *Session) Base() *dataprocessing.Table {
	return s.base
}

// Table returns the base table expressed in units. A physical-unit source
// cannot be viewed as normalized.
func (s *Session) Table(units domain.Units) (*dataprocessing.Table, error) {
	switch units {
	case s.base.Units():
		return s.base, nil
	case domain.UnitsPhysical:
		return s.physical, nil
	default:
		return nil, fmt.Errorf("%w: data is in %s units, %s requested",
			dataprocessing.ErrUnitsMismatch, s.base.Units(), units)
	}
}

// Source returns the path the base table was read from.
func (s *Session) Source() string {
	return s.source
}

// LoadedAt returns when the session was created.
func (s *Session) LoadedAt() time.Time {
	return s.loadedAt
}

// Bounds describes the extent of the base table.
func (s *Session) Bounds() domain.DateBounds {
	return s.base.DateBounds()
}

// LogValue summarizes the session for structured logs.
func (s *Session) LogValue() slog.Value {
	if s == nil {
		return slog.StringValue("none")
	}
	b := s.Bounds()
	return slog.GroupValue(
		slog.String("source", s.source),
		slog.Int("rows", b.Rows),
		slog.String("min_date", b.Min),
		slog.String("max_date", b.Max),
		slog.String("units", string(s.base.Units())),
	)
}
