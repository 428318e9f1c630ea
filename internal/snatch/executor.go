// Package snatch downloads the accepted matches and persists the torrent
// payloads to the configured directory.
package snatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/vmunix/recarr/internal/client"
	"github.com/vmunix/recarr/internal/search"
)

// FailureCategory classifies a failed snatch for reporting.
type FailureCategory string

const (
	FailureAPI   FailureCategory = "api"
	FailureFile  FailureCategory = "file"
	FailureOther FailureCategory = "other"
)

// Snatcher is the download surface of the index snatch client.
type Snatcher interface {
	Snatch(ctx context.Context, id int64, canUseToken bool) ([]byte, error)
	SnatchedWithToken(id int64) bool
}

// Result is the outcome of one snatch attempt.
type Result struct {
	Item      *search.Item
	Path      string
	TokenUsed bool

	// Err and Failure are set only when the attempt failed.
	Err     error
	Failure FailureCategory
}

// Executor walks the accepted items in order, spending freeleech tokens on
// the largest items first while any remain. A failed item never aborts the
// rest of the queue.
type Executor struct {
	client    Snatcher
	dir       string
	useTokens bool
	tokens    int
	log       *slog.Logger
}

// NewExecutor builds an executor writing into dir. tokens is the account's
// token count at the start of the run.
func NewExecutor(client Snatcher, dir string, useTokens bool, tokens int, log *slog.Logger) *Executor {
	if log == nil {
		log = slog.Default()
	}
	return &Executor{
		client:    client,
		dir:       dir,
		useTokens: useTokens,
		tokens:    tokens,
		log:       log.With("component", "snatch"),
	}
}

// TokensLeft returns the remaining token count.
func (e *Executor) TokensLeft() int { return e.tokens }

// Run snatches every item and returns one result per item, in input order.
// The only error returned is a failure to create the output directory.
func (e *Executor) Run(ctx context.Context, items []*search.Item) ([]Result, error) {
	if len(items) == 0 {
		return nil, nil
	}
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating snatch directory: %w", err)
	}

	start := time.Now()
	results := make([]Result, 0, len(items))
	for _, it := range items {
		results = append(results, e.snatchOne(ctx, it))
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	e.log.Info("snatch run complete", "items", len(items), "failed", failed,
		"tokens_left", e.tokens, "duration_ms", time.Since(start).Milliseconds())
	return results, nil
}

func (e *Executor) snatchOne(ctx context.Context, it *search.Item) Result {
	tid := it.Match.TorrentID
	path := filepath.Join(e.dir, fmt.Sprintf("%d.torrent", tid))
	res := Result{Item: it, Path: path}

	eligible := e.useTokens && it.Match.CanUseToken && e.tokens > 0
	e.log.Debug("snatching", "torrent_id", tid, "size", it.Match.Size, "token_eligible", eligible)

	body, err := e.client.Snatch(ctx, tid, eligible)
	if err == nil {
		err = writeFile(path, body)
		if err != nil {
			res.Failure = FailureFile
		}
	} else {
		res.Failure = categorize(err)
	}

	// The token is spent server-side even if persisting the payload failed
	// afterwards, so the counter follows the client's confirmation.
	if e.client.SnatchedWithToken(tid) {
		res.TokenUsed = true
		e.tokens--
	}

	if err != nil {
		res.Err = err
		res.Path = ""
		e.log.Error("snatch failed", "torrent_id", tid,
			"category", string(res.Failure), "error", err)
	}
	return res
}

// writeFile persists the payload, removing any partial file on error.
func writeFile(path string, body []byte) error {
	if err := os.WriteFile(path, body, 0o644); err != nil {
		os.Remove(path)
		return fmt.Errorf("writing torrent file: %w", err)
	}
	return nil
}

func categorize(err error) FailureCategory {
	var perr *client.ProtocolError
	if errors.As(err, &perr) {
		return FailureAPI
	}
	return FailureOther
}
