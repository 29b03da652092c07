package capture_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fwojciec/synapse"
	"github.com/fwojciec/synapse/ahocorasick"
	"github.com/fwojciec/synapse/bloom"
	"github.com/fwojciec/synapse/capture"
	"github.com/fwojciec/synapse/goquery"
	synapsehttp "github.com/fwojciec/synapse/http"
	"github.com/fwojciec/synapse/mock"
	"github.com/fwojciec/synapse/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memItems is a concurrency-safe in-memory ItemService.
type memItems struct {
	mu    sync.Mutex
	items []*synapse.Item
}

func (m *memItems) CreateItem(_ context.Context, item *synapse.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item.ID = "id-" + item.URL
	m.items = append(m.items, item)
	return nil
}

func (m *memItems) FindItemByID(_ context.Context, id string) (*synapse.Item, error) {
	return nil, synapse.Errorf(synapse.ENOTFOUND, "item not found")
}

func (m *memItems) FindItemByURL(_ context.Context, url string) (*synapse.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, item := range m.items {
		if item.URL == url {
			return item, nil
		}
	}
	return nil, synapse.Errorf(synapse.ENOTFOUND, "item not found")
}

func (m *memItems) FindItems(_ context.Context, _ synapse.ItemFilter) ([]*synapse.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*synapse.Item(nil), m.items...), nil
}

func (m *memItems) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

func notFound() *mock.ItemService {
	return &mock.ItemService{
		FindItemByURLFn: func(_ context.Context, _ string) (*synapse.Item, error) {
			return nil, synapse.Errorf(synapse.ENOTFOUND, "item not found")
		},
	}
}

func okFetcher(body string) *mock.Fetcher {
	return &mock.Fetcher{
		FetchFn: func(_ context.Context, url string) (*synapse.FetchResult, error) {
			return &synapse.FetchResult{URL: url, StatusCode: 200, Body: []byte(body)}, nil
		},
	}
}

func fixedExtractor(title, content string) *mock.Extractor {
	return &mock.Extractor{
		ExtractFn: func(_ []byte) (*synapse.ExtractResult, error) {
			return &synapse.ExtractResult{Title: title, Content: content}, nil
		},
	}
}

func articleClassifier() *mock.Classifier {
	return &mock.Classifier{
		ClassifyFn: func(_ string) synapse.ItemType { return synapse.ItemTypeArticle },
	}
}

type recorder struct {
	mu       sync.Mutex
	outcomes []capture.Outcome
	kinds    []string
}

func (r *recorder) ObserveCapture(kind string, outcome capture.Outcome, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds = append(r.kinds, kind)
	r.outcomes = append(r.outcomes, outcome)
}

func TestService_Capture(t *testing.T) {
	t.Parallel()

	t.Run("persists fetched, extracted and classified item", func(t *testing.T) {
		t.Parallel()

		var created *synapse.Item
		items := notFound()
		items.CreateItemFn = func(_ context.Context, item *synapse.Item) error {
			created = item
			return nil
		}
		svc := &capture.Service{
			Fetcher:   okFetcher("<html></html>"),
			Extractor: fixedExtractor("Title", "Body text"),
			Classifier: &mock.Classifier{
				ClassifyFn: func(_ string) synapse.ItemType { return synapse.ItemTypeVideo },
			},
		}

		item, outcome, err := svc.Capture(context.Background(), items, "https://youtube.com/watch")

		require.NoError(t, err)
		assert.Equal(t, capture.OutcomePersisted, outcome)
		require.NotNil(t, created)
		assert.Same(t, created, item)
		assert.Equal(t, "https://youtube.com/watch", item.URL)
		assert.Equal(t, "Title", item.Title)
		assert.Equal(t, "Body text", item.Content)
		assert.Equal(t, synapse.ItemTypeVideo, item.Type)
	})

	t.Run("skips without fetching when URL already stored", func(t *testing.T) {
		t.Parallel()

		existing := &synapse.Item{ID: "1", URL: "https://example.com"}
		items := &mock.ItemService{
			FindItemByURLFn: func(_ context.Context, url string) (*synapse.Item, error) {
				return existing, nil
			},
		}
		svc := &capture.Service{
			Fetcher: &mock.Fetcher{
				FetchFn: func(_ context.Context, _ string) (*synapse.FetchResult, error) {
					t.Fatal("fetch must not be called on dedup hit")
					return nil, nil
				},
			},
		}

		item, outcome, err := svc.Capture(context.Background(), items, "https://example.com")

		require.NoError(t, err)
		assert.Equal(t, capture.OutcomeSkipped, outcome)
		assert.Same(t, existing, item)
	})

	t.Run("persists nothing when fetch fails", func(t *testing.T) {
		t.Parallel()

		items := notFound()
		items.CreateItemFn = func(_ context.Context, _ *synapse.Item) error {
			t.Fatal("no item may be persisted on fetch failure")
			return nil
		}
		svc := &capture.Service{
			Fetcher: &mock.Fetcher{
				FetchFn: func(_ context.Context, url string) (*synapse.FetchResult, error) {
					return nil, synapse.Errorf(synapse.EFETCH, "HTTP 404 for %s", url)
				},
			},
		}

		item, outcome, err := svc.Capture(context.Background(), items, "https://example.com/missing")

		require.Error(t, err)
		assert.Nil(t, item)
		assert.Equal(t, capture.OutcomeFailed, outcome)
		assert.Equal(t, synapse.EFETCH, synapse.ErrorCode(err))
	})

	t.Run("wraps non-application fetch errors as EFETCH", func(t *testing.T) {
		t.Parallel()

		cause := errors.New("dial tcp: no such host")
		svc := &capture.Service{
			Fetcher: &mock.Fetcher{
				FetchFn: func(_ context.Context, _ string) (*synapse.FetchResult, error) {
					return nil, cause
				},
			},
		}

		_, _, err := svc.Capture(context.Background(), notFound(), "https://nowhere.invalid")

		assert.Equal(t, synapse.EFETCH, synapse.ErrorCode(err))
		assert.ErrorIs(t, err, cause)
	})

	t.Run("returns EPARSE when extraction fails", func(t *testing.T) {
		t.Parallel()

		svc := &capture.Service{
			Fetcher: okFetcher("garbage"),
			Extractor: &mock.Extractor{
				ExtractFn: func(_ []byte) (*synapse.ExtractResult, error) {
					return nil, errors.New("broken")
				},
			},
		}

		_, outcome, err := svc.Capture(context.Background(), notFound(), "https://example.com")

		assert.Equal(t, capture.OutcomeFailed, outcome)
		assert.Equal(t, synapse.EPARSE, synapse.ErrorCode(err))
	})

	t.Run("returns ESTORE when persisting fails", func(t *testing.T) {
		t.Parallel()

		items := notFound()
		items.CreateItemFn = func(_ context.Context, _ *synapse.Item) error {
			return errors.New("disk full")
		}
		svc := &capture.Service{
			Fetcher:    okFetcher("<html></html>"),
			Extractor:  fixedExtractor("T", "C"),
			Classifier: articleClassifier(),
		}

		_, _, err := svc.Capture(context.Background(), items, "https://example.com")

		assert.Equal(t, synapse.ESTORE, synapse.ErrorCode(err))
	})

	t.Run("propagates unexpected lookup errors", func(t *testing.T) {
		t.Parallel()

		items := &mock.ItemService{
			FindItemByURLFn: func(_ context.Context, _ string) (*synapse.Item, error) {
				return nil, synapse.Errorf(synapse.ESTORE, "database is locked")
			},
		}
		svc := &capture.Service{}

		_, outcome, err := svc.Capture(context.Background(), items, "https://example.com")

		assert.Equal(t, capture.OutcomeFailed, outcome)
		assert.Equal(t, synapse.ESTORE, synapse.ErrorCode(err))
	})

	t.Run("rejects empty URL", func(t *testing.T) {
		t.Parallel()

		svc := &capture.Service{}

		_, _, err := svc.Capture(context.Background(), &mock.ItemService{}, "")

		assert.Equal(t, synapse.EINVALID, synapse.ErrorCode(err))
	})

	t.Run("finds URLs stored by another writer after startup", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		path := t.TempDir() + "/synapse.db"
		server := sqlite.NewDB(path)
		require.NoError(t, server.Open())
		t.Cleanup(func() { server.Close() })
		other := sqlite.NewDB(path)
		require.NoError(t, other.Open())
		t.Cleanup(func() { other.Close() })

		seen := bloom.NewFilter(100, 0.001)
		require.NoError(t, server.ForEachURL(ctx, seen.Add))
		require.NoError(t, sqlite.NewItemService(other).CreateItem(ctx, &synapse.Item{
			URL:     "https://example.com/a",
			Title:   "A",
			Content: "stored elsewhere",
			Type:    synapse.ItemTypeArticle,
		}))

		svc := &capture.Service{
			Fetcher: &mock.Fetcher{
				FetchFn: func(_ context.Context, _ string) (*synapse.FetchResult, error) {
					t.Error("stored URL must not be fetched again")
					return nil, synapse.Errorf(synapse.EFETCH, "unexpected fetch")
				},
			},
			Extractor:  fixedExtractor("T", "C"),
			Classifier: articleClassifier(),
			Seen:       seen,
		}
		items := sqlite.NewItemService(server)

		item, outcome, err := svc.Capture(ctx, items, "https://example.com/a")

		require.NoError(t, err)
		assert.Equal(t, capture.OutcomeSkipped, outcome)
		assert.Equal(t, "stored elsewhere", item.Content)
		all, err := items.FindItems(ctx, synapse.ItemFilter{})
		require.NoError(t, err)
		assert.Len(t, all, 1)
		assert.True(t, seen.Test("https://example.com/a"))
	})

	t.Run("remembers persisted URLs", func(t *testing.T) {
		t.Parallel()

		seen := bloom.NewFilter(100, 0.001)
		svc := &capture.Service{
			Fetcher:    okFetcher("<html></html>"),
			Extractor:  fixedExtractor("T", "C"),
			Classifier: articleClassifier(),
			Seen:       seen,
		}

		_, outcome, err := svc.Capture(context.Background(), &memItems{}, "https://example.com/new")

		require.NoError(t, err)
		assert.Equal(t, capture.OutcomePersisted, outcome)
		assert.True(t, seen.Test("https://example.com/new"))
	})

	t.Run("waiting capture survives cancellation of the first caller", func(t *testing.T) {
		t.Parallel()

		started := make(chan struct{})
		release := make(chan struct{})
		items := &memItems{}
		svc := &capture.Service{
			Fetcher: &mock.Fetcher{
				FetchFn: func(ctx context.Context, url string) (*synapse.FetchResult, error) {
					close(started)
					select {
					case <-ctx.Done():
						return nil, ctx.Err()
					case <-release:
					}
					return &synapse.FetchResult{URL: url, StatusCode: 200}, nil
				},
			},
			Extractor:  fixedExtractor("T", "C"),
			Classifier: articleClassifier(),
		}

		const url = "https://example.com/slow"
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		firstDone := make(chan error, 1)
		go func() {
			_, _, err := svc.CaptureSync(ctx, items, url)
			firstDone <- err
		}()
		<-started

		type captured struct {
			outcome capture.Outcome
			err     error
		}
		waiterDone := make(chan captured, 1)
		go func() {
			_, outcome, err := svc.Capture(context.Background(), items, url)
			waiterDone <- captured{outcome: outcome, err: err}
		}()
		time.Sleep(50 * time.Millisecond)
		cancel()
		time.Sleep(20 * time.Millisecond)
		close(release)

		got := <-waiterDone
		require.NoError(t, got.err)
		assert.Equal(t, capture.OutcomeSkipped, got.outcome)
		assert.NoError(t, <-firstDone)
		assert.Equal(t, 1, items.count())
	})

	t.Run("records outcome", func(t *testing.T) {
		t.Parallel()

		rec := &recorder{}
		items := &mock.ItemService{
			FindItemByURLFn: func(_ context.Context, _ string) (*synapse.Item, error) {
				return &synapse.Item{}, nil
			},
		}
		svc := &capture.Service{Recorder: rec}

		_, _, err := svc.Capture(context.Background(), items, "https://example.com")

		require.NoError(t, err)
		assert.Equal(t, []string{capture.KindURL}, rec.kinds)
		assert.Equal(t, []capture.Outcome{capture.OutcomeSkipped}, rec.outcomes)
	})

	t.Run("concurrent captures of one URL store a single item", func(t *testing.T) {
		t.Parallel()

		var fetches atomic.Int32
		release := make(chan struct{})
		items := &memItems{}
		svc := &capture.Service{
			Fetcher: &mock.Fetcher{
				FetchFn: func(_ context.Context, url string) (*synapse.FetchResult, error) {
					fetches.Add(1)
					<-release
					return &synapse.FetchResult{URL: url, StatusCode: 200}, nil
				},
			},
			Extractor:  fixedExtractor("T", "C"),
			Classifier: articleClassifier(),
		}

		const n = 10
		outcomes := make([]capture.Outcome, n)
		var wg sync.WaitGroup
		for i := range n {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, outcome, err := svc.Capture(context.Background(), items, "https://example.com/same")
				assert.NoError(t, err)
				outcomes[i] = outcome
			}()
		}
		close(release)
		wg.Wait()

		assert.Equal(t, int32(1), fetches.Load())
		assert.Equal(t, 1, items.count())
		persisted := 0
		for _, o := range outcomes {
			if o == capture.OutcomePersisted {
				persisted++
			} else {
				assert.Equal(t, capture.OutcomeSkipped, o)
			}
		}
		assert.Equal(t, 1, persisted)
	})
}

func TestService_CaptureSync(t *testing.T) {
	t.Parallel()

	t.Run("returns unsaved ERROR item on fetch failure", func(t *testing.T) {
		t.Parallel()

		svc := &capture.Service{
			Fetcher: &mock.Fetcher{
				FetchFn: func(_ context.Context, _ string) (*synapse.FetchResult, error) {
					return nil, synapse.Errorf(synapse.EFETCH, "HTTP 500 for https://example.com")
				},
			},
		}

		item, outcome, err := svc.CaptureSync(context.Background(), notFound(), "https://example.com")

		require.Error(t, err)
		assert.Equal(t, capture.OutcomeFailed, outcome)
		require.NotNil(t, item)
		assert.Equal(t, synapse.ItemTypeError, item.Type)
		assert.Equal(t, "Error", item.Title)
		assert.Equal(t, "https://example.com", item.URL)
		assert.Contains(t, item.Content, "Could not fetch or extract content")
		assert.Contains(t, item.Content, "HTTP 500")
		assert.Empty(t, item.ID)
	})

	t.Run("describes unexpected failures", func(t *testing.T) {
		t.Parallel()

		items := notFound()
		items.CreateItemFn = func(_ context.Context, _ *synapse.Item) error {
			return synapse.Errorf(synapse.ESTORE, "disk full")
		}
		svc := &capture.Service{
			Fetcher:    okFetcher("x"),
			Extractor:  fixedExtractor("T", "C"),
			Classifier: articleClassifier(),
		}

		item, _, err := svc.CaptureSync(context.Background(), items, "https://example.com")

		require.Error(t, err)
		assert.Equal(t, "An unexpected error occurred: disk full", item.Content)
	})

	t.Run("returns persisted item on success", func(t *testing.T) {
		t.Parallel()

		items := notFound()
		items.CreateItemFn = func(_ context.Context, _ *synapse.Item) error { return nil }
		svc := &capture.Service{
			Fetcher:    okFetcher("x"),
			Extractor:  fixedExtractor("T", "C"),
			Classifier: articleClassifier(),
		}

		item, outcome, err := svc.CaptureSync(context.Background(), items, "https://example.com")

		require.NoError(t, err)
		assert.Equal(t, capture.OutcomePersisted, outcome)
		assert.Equal(t, synapse.ItemTypeArticle, item.Type)
	})
}

func TestService_CaptureEndToEnd(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><head><title>Fox Facts</title><style>p{}</style></head>
<body><p>The Quick Fox</p><script>var x = 1;</script></body></html>`))
	}))
	defer server.Close()

	db := sqlite.NewDB(":memory:")
	require.NoError(t, db.Open())
	defer db.Close()
	items := sqlite.NewItemService(db)

	svc := &capture.Service{
		Fetcher:    synapsehttp.NewFetcher(),
		Extractor:  goquery.NewExtractor(),
		Classifier: ahocorasick.NewDefaultClassifier(),
	}
	ctx := context.Background()

	item, outcome, err := svc.Capture(ctx, items, server.URL)
	require.NoError(t, err)
	assert.Equal(t, capture.OutcomePersisted, outcome)
	assert.Equal(t, "Fox Facts", item.Title)
	assert.NotContains(t, item.Content, "var x")
	assert.Equal(t, synapse.ItemTypeArticle, item.Type)

	again, outcome, err := svc.Capture(ctx, items, server.URL)
	require.NoError(t, err)
	assert.Equal(t, capture.OutcomeSkipped, outcome)
	assert.Equal(t, item.ID, again.ID)
	assert.Equal(t, int32(1), hits.Load())

	found, err := items.FindItems(ctx, synapse.ItemFilter{Query: "quick"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, item.ID, found[0].ID)
}
