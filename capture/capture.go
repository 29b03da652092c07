// Package capture orchestrates turning a URL or an uploaded image into a
// stored item. Each pipeline runs its steps strictly in order and writes at
// most one item per invocation.
package capture

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fwojciec/synapse"
	"golang.org/x/sync/singleflight"
)

// Outcome describes how a capture ended.
type Outcome string

// Outcome constants.
const (
	OutcomePersisted Outcome = "persisted"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeFailed    Outcome = "failed"
)

// Capture kinds reported to a Recorder.
const (
	KindURL   = "url"
	KindImage = "image"
)

// Seen tracks the URLs this process has observed in the store. It only feeds
// metrics; the store remains the authority on whether a URL was captured,
// since other writers may share the database file.
type Seen interface {
	Add(url string)
}

// Recorder receives one observation per finished capture.
type Recorder interface {
	ObserveCapture(kind string, outcome Outcome, elapsed time.Duration)
}

// Service runs the capture pipelines. Fetcher, Extractor and Classifier are
// required; Seen and Recorder are optional.
//
// Concurrent captures of the same URL within one process are coalesced: only
// one of them fetches and writes, the others observe the result as a dedup
// hit. The shared run is detached from the first caller's cancellation so
// that a disconnecting client never fails the captures waiting on it.
type Service struct {
	Fetcher    synapse.Fetcher
	Extractor  synapse.Extractor
	Classifier synapse.Classifier
	Seen       Seen
	Recorder   Recorder

	group singleflight.Group
}

type result struct {
	item    *synapse.Item
	outcome Outcome
}

// Capture runs the URL pipeline using items for persistence. A URL that is
// already stored yields the existing item with OutcomeSkipped. On failure
// nothing is persisted and the error is returned.
func (s *Service) Capture(ctx context.Context, items synapse.ItemService, url string) (*synapse.Item, Outcome, error) {
	start := time.Now()
	item, outcome, err := s.capture(ctx, items, url)
	s.observe(KindURL, outcome, start)
	return item, outcome, err
}

// CaptureSync is Capture for callers that report the result inline. When the
// pipeline fails the returned item is an unsaved ERROR item describing the
// failure, returned together with the error.
func (s *Service) CaptureSync(ctx context.Context, items synapse.ItemService, url string) (*synapse.Item, Outcome, error) {
	item, outcome, err := s.Capture(ctx, items, url)
	if err != nil {
		return ErrorItem(url, err), OutcomeFailed, err
	}
	return item, outcome, nil
}

func (s *Service) capture(ctx context.Context, items synapse.ItemService, url string) (*synapse.Item, Outcome, error) {
	if url == "" {
		return nil, OutcomeFailed, synapse.Errorf(synapse.EINVALID, "url required")
	}

	var leader bool
	v, err, _ := s.group.Do(url, func() (any, error) {
		leader = true
		item, outcome, err := s.run(context.WithoutCancel(ctx), items, url)
		return &result{item: item, outcome: outcome}, err
	})
	if err != nil {
		return nil, OutcomeFailed, err
	}

	r := v.(*result)
	if !leader && r.outcome == OutcomePersisted {
		return r.item, OutcomeSkipped, nil
	}
	return r.item, r.outcome, nil
}

func (s *Service) run(ctx context.Context, items synapse.ItemService, url string) (*synapse.Item, Outcome, error) {
	existing, err := items.FindItemByURL(ctx, url)
	if err == nil {
		s.remember(url)
		return existing, OutcomeSkipped, nil
	} else if synapse.ErrorCode(err) != synapse.ENOTFOUND {
		return nil, OutcomeFailed, err
	}

	res, err := s.Fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, OutcomeFailed, asCode(synapse.EFETCH, err)
	}

	ext, err := s.Extractor.Extract(res.Body)
	if err != nil {
		return nil, OutcomeFailed, asCode(synapse.EPARSE, err)
	}

	item := &synapse.Item{
		URL:     url,
		Title:   ext.Title,
		Content: ext.Content,
		Type:    s.Classifier.Classify(url),
	}
	if err := items.CreateItem(ctx, item); err != nil {
		return nil, OutcomeFailed, asCode(synapse.ESTORE, err)
	}
	s.remember(url)
	return item, OutcomePersisted, nil
}

func (s *Service) remember(url string) {
	if s.Seen != nil {
		s.Seen.Add(url)
	}
}

func (s *Service) observe(kind string, outcome Outcome, start time.Time) {
	if s.Recorder != nil {
		s.Recorder.ObserveCapture(kind, outcome, time.Since(start))
	}
}

// ErrorItem builds the ERROR item reported for a failed synchronous capture.
// It is never persisted.
func ErrorItem(url string, err error) *synapse.Item {
	content := fmt.Sprintf("An unexpected error occurred: %s", synapse.ErrorMessage(err))
	if synapse.ErrorCode(err) == synapse.EFETCH {
		content = fmt.Sprintf("Could not fetch or extract content: %s", synapse.ErrorMessage(err))
	}
	return &synapse.Item{
		URL:       url,
		Title:     "Error",
		Content:   content,
		Type:      synapse.ItemTypeError,
		CreatedAt: time.Now().UTC(),
	}
}

// asCode keeps application errors as they are and wraps anything else under
// code.
func asCode(code string, err error) error {
	var e *synapse.Error
	if errors.As(err, &e) {
		return err
	}
	return synapse.Errorf(code, "%w", err)
}
