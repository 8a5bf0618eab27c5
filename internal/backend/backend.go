// Package backend picks the storage strategy once per process.
package backend

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"cjw/internal/storage"
	"cjw/internal/storage/memory"
	"cjw/internal/storage/sqlite"
)

type Kind string

const (
	// KindAuto prefers SQLite and degrades to memory when it cannot be opened.
	KindAuto   Kind = "auto"
	KindSQLite Kind = "sqlite"
	KindMemory Kind = "memory"
)

func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case "", KindAuto:
		return KindAuto, nil
	case KindSQLite, KindMemory:
		return Kind(s), nil
	default:
		return "", storage.ValidationError{Field: "backend", Reason: fmt.Sprintf("unknown backend %q", s)}
	}
}

type Options struct {
	Kind   Kind
	DBPath string
	Logger zerolog.Logger
}

// Open builds the backend described by opts.
func Open(ctx context.Context, opts Options) (storage.Backend, error) {
	log := opts.Logger
	switch opts.Kind {
	case KindMemory:
		log.Debug().Msg("using in-memory backend")
		return memory.New(), nil
	case KindSQLite:
		s, err := sqlite.Open(ctx, opts.DBPath)
		if err != nil {
			return nil, storage.Unavailable(err)
		}
		log.Debug().Str("path", opts.DBPath).Msg("opened sqlite backend")
		return s, nil
	case KindAuto, "":
		s, err := sqlite.Open(ctx, opts.DBPath)
		if err != nil {
			log.Warn().Err(err).Str("path", opts.DBPath).Msg("sqlite unavailable, falling back to in-memory backend")
			return memory.New(), nil
		}
		log.Debug().Str("path", opts.DBPath).Msg("opened sqlite backend")
		return s, nil
	default:
		return nil, storage.ValidationError{Field: "backend", Reason: fmt.Sprintf("unknown backend %q", opts.Kind)}
	}
}

// Selector opens the backend on first use and hands out the same instance
// afterwards, including a failed result.
type Selector struct {
	opts Options

	once sync.Once
	b    storage.Backend
	err  error
}

func NewSelector(opts Options) *Selector {
	return &Selector{opts: opts}
}

func (s *Selector) Backend(ctx context.Context) (storage.Backend, error) {
	s.once.Do(func() {
		s.b, s.err = Open(ctx, s.opts)
	})
	return s.b, s.err
}

func (s *Selector) Close() error {
	if s.b == nil {
		return nil
	}
	return s.b.Close()
}
