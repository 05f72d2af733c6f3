package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/insightdelivered/upi-statement-extractor/internal/extractor"
	"github.com/insightdelivered/upi-statement-extractor/internal/logger"
	"github.com/insightdelivered/upi-statement-extractor/internal/models"
	"github.com/insightdelivered/upi-statement-extractor/internal/parser"
)

// Loader returns the page texts of the document at path.
type Loader func(path string) ([]string, error)

// Result is the outcome of one document. Err is set instead of Info when the
// document could not be loaded or parsed.
type Result struct {
	JobID string
	Path  string
	Info  *models.StatementInfo
	Err   error
}

// Pool extracts transactions from many documents with bounded concurrency.
// A failing document never cancels the others.
type Pool struct {
	engine  *parser.Engine
	workers int
	load    Loader
	log     zerolog.Logger
}

type Option func(*Pool)

// WithLoader replaces LoadFile, mainly for tests.
func WithLoader(l Loader) Option {
	return func(p *Pool) {
		if l != nil {
			p.load = l
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(p *Pool) { p.log = l }
}

// NewPool returns a pool running at most workers documents at once.
func NewPool(engine *parser.Engine, workers int, opts ...Option) *Pool {
	if workers < 1 {
		workers = 1
	}
	p := &Pool{
		engine:  engine,
		workers: workers,
		load:    LoadFile,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run processes paths and returns one Result per path in input order. Once
// ctx is cancelled no further documents are started; those results carry
// ctx.Err() and Run returns it as well.
func (p *Pool) Run(ctx context.Context, paths []string) ([]Result, error) {
	results := make([]Result, len(paths))
	started := make([]bool, len(paths))

	var g errgroup.Group
	g.SetLimit(p.workers)
	for i, path := range paths {
		if ctx.Err() != nil {
			break
		}
		started[i] = true
		i, path := i, path
		g.Go(func() error {
			results[i] = p.process(ctx, path)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		for i, path := range paths {
			if !started[i] {
				results[i] = Result{Path: path, Err: err}
			}
		}
		return results, err
	}
	return results, nil
}

func (p *Pool) process(ctx context.Context, path string) Result {
	res := Result{JobID: uuid.NewString(), Path: path}
	log := logger.WithFields(p.log, map[string]interface{}{"job_id": res.JobID, "file": path})

	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}

	pages, err := p.load(path)
	if err != nil {
		res.Err = fmt.Errorf("load %s: %w", path, err)
		log.Warn().Err(err).Msg("document failed to load")
		return res
	}

	info, err := p.engine.Parse(pages)
	if err != nil {
		res.Err = fmt.Errorf("parse %s: %w", path, err)
		log.Warn().Err(err).Msg("document failed to parse")
		return res
	}

	res.Info = info
	log.Info().
		Str("provider", string(info.Provider)).
		Int("transactions", len(info.Transactions)).
		Msg("document processed")
	return res
}

// LoadFile reads a .txt file as a single page and extracts everything else
// as PDF.
func LoadFile(path string) ([]string, error) {
	if strings.EqualFold(filepath.Ext(path), ".txt") {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return []string{string(data)}, nil
	}
	return extractor.ExtractText(path)
}

// Failed counts results that carry an error.
func Failed(results []Result) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}

// IsEmpty reports whether a result failed only because the document held no
// usable text.
func IsEmpty(r Result) bool {
	return errors.Is(r.Err, parser.ErrEmptyInput) || errors.Is(r.Err, extractor.ErrNoReadableText)
}
