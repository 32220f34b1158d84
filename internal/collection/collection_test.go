package collection

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inventory_admin/internal/gateway"
	"inventory_admin/internal/models"
	"inventory_admin/internal/pkg/logger"
)

// backend is a fake inventory API that counts calls per method and path.
type backend struct {
	mu      sync.Mutex
	calls   map[string]int
	queries []string
	handler http.HandlerFunc
}

func newBackend(t *testing.T, handler http.HandlerFunc) (*backend, *gateway.Client) {
	t.Helper()
	b := &backend{calls: map[string]int{}, handler: handler}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.calls[r.Method+" "+r.URL.Path]++
		b.queries = append(b.queries, r.URL.RawQuery)
		b.mu.Unlock()
		b.handler(w, r)
	}))
	t.Cleanup(ts.Close)
	return b, gateway.New(ts.URL, "/api", nil, logger.Nop())
}

func (b *backend) count(key string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[key]
}

func (b *backend) setHandler(handler http.HandlerFunc) {
	b.mu.Lock()
	b.handler = handler
	b.mu.Unlock()
}

func respond(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(body))
	}
}

func TestOpenFetchesAutomatically(t *testing.T) {
	b, client := newBackend(t, respond(http.StatusOK, `{"data":[{"id":1},{"id":2}]}`))

	controller := Open(context.Background(), client, Records("/products", "", 0), logger.Nop())

	snapshot := controller.Snapshot()
	assert.Equal(t, 1, b.count("GET /api/products"))
	assert.Equal(t, Loaded, snapshot.State)
	assert.False(t, snapshot.Loading)
	assert.Len(t, snapshot.Rows, 2)
	assert.Empty(t, snapshot.Error)
}

func TestListEnvelopeShapes(t *testing.T) {
	testCases := []struct {
		name string
		body string
	}{
		{name: "Bare array", body: `[{"id":1},{"id":2}]`},
		{name: "Data array", body: `{"data":[{"id":1},{"id":2}]}`},
		{name: "Nested data", body: `{"data":{"data":[{"id":1},{"id":2}]}}`},
		{name: "Rows", body: `{"data":{"rows":[{"id":1},{"id":2}],"count":2}}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, client := newBackend(t, respond(http.StatusOK, tc.body))
			controller := New(client, Records("/products", "", 0), logger.Nop())

			rows, err := controller.List(context.Background(), nil)
			require.NoError(t, err)
			assert.Equal(t, []models.Record{{"id": 1.0}, {"id": 2.0}}, rows)
		})
	}
}

func TestListFailureKeepsRows(t *testing.T) {
	ctx := context.Background()
	b, client := newBackend(t, respond(http.StatusOK, `{"data":[{"id":"A"},{"id":"B"}]}`))
	controller := New(client, Records("/products", "", 0), logger.Nop())

	_, err := controller.List(ctx, nil)
	require.NoError(t, err)

	b.setHandler(respond(http.StatusInternalServerError, `{"message":"Database offline"}`))
	_, err = controller.List(ctx, nil)
	require.Error(t, err)

	snapshot := controller.Snapshot()
	assert.Equal(t, Errored, snapshot.State)
	assert.Equal(t, "Database offline", snapshot.Error)
	assert.Equal(t, []models.Record{{"id": "A"}, {"id": "B"}}, snapshot.Rows)

	b.setHandler(respond(http.StatusOK, `[]`))
	_, err = controller.Refresh(ctx)
	require.NoError(t, err)

	snapshot = controller.Snapshot()
	assert.Equal(t, Loaded, snapshot.State)
	assert.Empty(t, snapshot.Error)
	assert.Empty(t, snapshot.Rows)
}

func TestMutationsRefetchExactlyOnce(t *testing.T) {
	testCases := []struct {
		name        string
		run         func(ctx context.Context, c *Controller[models.Record]) error
		mutationKey string
		success     string
	}{
		{
			name:        "Create",
			run:         func(ctx context.Context, c *Controller[models.Record]) error { return c.Create(ctx, map[string]any{"name": "Flour"}) },
			mutationKey: "POST /api/products",
			success:     CreateSuccess,
		},
		{
			name:        "Update",
			run:         func(ctx context.Context, c *Controller[models.Record]) error { return c.Update(ctx, "7", map[string]any{"name": "Rye"}) },
			mutationKey: "PUT /api/products/7",
			success:     UpdateSuccess,
		},
		{
			name:        "Remove",
			run:         func(ctx context.Context, c *Controller[models.Record]) error { return c.Remove(ctx, "7") },
			mutationKey: "DELETE /api/products/7",
			success:     DeleteSuccess,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			b, client := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
				if r.Method == http.MethodGet {
					w.Write([]byte(`{"data":[{"id":7}]}`))
					return
				}
				w.Write([]byte(`{}`))
			})
			controller := New(client, Records("/products", "", 0), logger.Nop())

			require.NoError(t, tc.run(ctx, controller))

			assert.Equal(t, 1, b.count(tc.mutationKey))
			assert.Equal(t, 1, b.count("GET /api/products"))

			snapshot := controller.Snapshot()
			assert.Equal(t, tc.success, snapshot.Success)
			assert.Empty(t, snapshot.Error)
			assert.Len(t, snapshot.Rows, 1)
		})
	}
}

func TestMutationInSearchModeListsBasePath(t *testing.T) {
	ctx := context.Background()
	b, client := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.Write([]byte(`{"data":[{"id":7}]}`))
			return
		}
		w.Write([]byte(`{}`))
	})
	controller := New(client, Records("/products", "/products/search", 0), logger.Nop())

	_, err := controller.Search(ctx, "flour")
	require.NoError(t, err)
	require.Equal(t, "flour", controller.Snapshot().Query)

	require.NoError(t, controller.Create(ctx, map[string]any{"name": "Flour"}))

	assert.Equal(t, 1, b.count("GET /api/products/search"))
	assert.Equal(t, 1, b.count("GET /api/products"))

	snapshot := controller.Snapshot()
	assert.Empty(t, snapshot.Query)
	assert.Equal(t, CreateSuccess, snapshot.Success)
}

func TestMutationFailureSkipsRefetch(t *testing.T) {
	testCases := []struct {
		name        string
		body        string
		expectedMsg string
	}{
		{name: "Message wins", body: `{"message":"M","error":"E"}`, expectedMsg: "M"},
		{name: "Error field", body: `{"error":"E"}`, expectedMsg: "E"},
		{name: "Generic", body: `{}`, expectedMsg: "Request failed"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			b, client := newBackend(t, respond(http.StatusUnprocessableEntity, tc.body))
			controller := New(client, Records("/suppliers", "", 0), logger.Nop())

			err := controller.Create(context.Background(), map[string]any{})
			require.Error(t, err)

			assert.Equal(t, 0, b.count("GET /api/suppliers"))
			snapshot := controller.Snapshot()
			assert.Equal(t, tc.expectedMsg, snapshot.Error)
			assert.Empty(t, snapshot.Success)
		})
	}
}

func TestMutationBackendMessageAsSuccess(t *testing.T) {
	_, client := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			w.Write([]byte(`{"message":"Supplier archived"}`))
			return
		}
		w.Write([]byte(`[]`))
	})
	controller := New(client, Records("/suppliers", "", 0), logger.Nop())

	require.NoError(t, controller.Remove(context.Background(), "3"))
	assert.Equal(t, "Supplier archived", controller.Snapshot().Success)
}

func TestUpdateWithoutID(t *testing.T) {
	b, client := newBackend(t, respond(http.StatusOK, `[]`))
	controller := New(client, Records("/products", "", 0), logger.Nop())

	assert.ErrorIs(t, controller.Update(context.Background(), "", nil), ErrMissingID)
	assert.ErrorIs(t, controller.Remove(context.Background(), ""), ErrMissingID)
	assert.Equal(t, 0, b.count("GET /api/products"))
}

func TestSearch(t *testing.T) {
	testCases := []struct {
		name        string
		searchPath  string
		query       string
		expectedKey string
		expectedQ   string
	}{
		{name: "Empty query", searchPath: "/products/search", query: "", expectedKey: "GET /api/products"},
		{name: "Blank query", searchPath: "/products/search", query: "   ", expectedKey: "GET /api/products"},
		{name: "No search path", searchPath: "", query: "flour", expectedKey: "GET /api/products"},
		{name: "Search path", searchPath: "/products/search", query: "  flour ", expectedKey: "GET /api/products/search", expectedQ: "query=flour"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			b, client := newBackend(t, respond(http.StatusOK, `{"data":[{"id":1}]}`))
			controller := New(client, Records("/products", tc.searchPath, 0), logger.Nop())

			_, err := controller.Search(context.Background(), tc.query)
			require.NoError(t, err)

			assert.Equal(t, 1, b.count(tc.expectedKey))
			if tc.expectedQ != "" {
				assert.Equal(t, []string{tc.expectedQ}, b.queries)
				assert.Equal(t, "flour", controller.Snapshot().Query)
			} else {
				assert.Equal(t, 0, b.count("GET /api/products/search"))
			}
		})
	}
}

func TestPagedList(t *testing.T) {
	ctx := context.Background()
	b, client := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			w.Write([]byte(`{"data":[{"id":11}],"pagination":{"currentPage":2,"totalPages":2,"totalCount":11}}`))
			return
		}
		w.Write([]byte(`{"data":[{"id":1}],"total":11}`))
	})
	controller := New(client, Records("/orders", "", 10), logger.Nop())

	_, err := controller.List(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"limit=10&page=1"}, b.queries)

	meta := controller.Snapshot().Pagination
	require.NotNil(t, meta)
	assert.Equal(t, models.PaginationMeta{CurrentPage: 1, TotalPages: 2, TotalCount: 11, HasNextPage: true, Pages: []int{1, 2}}, *meta)

	_, err = controller.SetPage(ctx, 2)
	require.NoError(t, err)

	snapshot := controller.Snapshot()
	assert.Equal(t, 2, snapshot.Page)
	assert.Equal(t, models.PaginationMeta{CurrentPage: 2, TotalPages: 2, TotalCount: 11, HasPrevPage: true, Pages: []int{1, 2}}, *snapshot.Pagination)
}

func TestPagedEmptyListHasOnePage(t *testing.T) {
	_, client := newBackend(t, respond(http.StatusOK, `{"data":[],"total":0}`))
	controller := New(client, Records("/orders", "", 10), logger.Nop())

	_, err := controller.List(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, models.PaginationMeta{CurrentPage: 1, TotalPages: 1, Pages: []int{1}}, *controller.Snapshot().Pagination)
}

func TestTypedDecoder(t *testing.T) {
	type product struct {
		ID   float64
		Name string
	}
	_, client := newBackend(t, respond(http.StatusOK, `[{"id":1,"name":"Flour"},"junk",{"id":2,"name":"Rye"}]`))

	controller := New(client, Config[product]{
		Path: "/products",
		Decode: func(row any) (product, bool) {
			m, ok := row.(map[string]any)
			if !ok {
				return product{}, false
			}
			id, _ := m["id"].(float64)
			name, _ := m["name"].(string)
			return product{ID: id, Name: name}, true
		},
	}, logger.Nop())

	rows, err := controller.List(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []product{{ID: 1, Name: "Flour"}, {ID: 2, Name: "Rye"}}, rows)
}

// scriptedRequester releases each GET only when the test says so.
type scriptedRequester struct {
	mu      sync.Mutex
	pending map[string]chan result
	started chan string
}

type result struct {
	resp *gateway.Response
	err  error
}

func newScriptedRequester() *scriptedRequester {
	return &scriptedRequester{pending: map[string]chan result{}, started: make(chan string, 8)}
}

func (s *scriptedRequester) Request(ctx context.Context, method, path string, opts gateway.RequestOptions) (*gateway.Response, error) {
	key := opts.Params[QueryParam]
	ch := make(chan result, 1)
	s.mu.Lock()
	s.pending[key] = ch
	s.mu.Unlock()
	s.started <- key

	select {
	case r := <-ch:
		return r.resp, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *scriptedRequester) release(key string, r result) {
	s.mu.Lock()
	ch := s.pending[key]
	s.mu.Unlock()
	ch <- r
}

func TestStaleSearchResponseIsDropped(t *testing.T) {
	ctx := context.Background()
	requester := newScriptedRequester()
	controller := New(requester, Records("/customers", "/customers/search", 0), logger.Nop())

	var wg sync.WaitGroup
	var oldErr atomic.Value

	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := controller.Search(ctx, "jo")
		oldErr.Store(err)
	}()
	require.Equal(t, "jo", <-requester.started)

	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := controller.Search(ctx, "john")
		assert.NoError(t, err)
	}()
	require.Equal(t, "john", <-requester.started)

	assert.True(t, controller.Snapshot().Loading)

	requester.release("john", result{resp: &gateway.Response{Data: []any{map[string]any{"name": "John"}}}})
	requester.release("jo", result{resp: &gateway.Response{Data: []any{map[string]any{"name": "Joan"}, map[string]any{"name": "John"}}}})
	wg.Wait()

	assert.ErrorIs(t, oldErr.Load().(error), ErrStale)

	snapshot := controller.Snapshot()
	assert.False(t, snapshot.Loading)
	assert.Equal(t, Loaded, snapshot.State)
	assert.Equal(t, []models.Record{{"name": "John"}}, snapshot.Rows)
}

func TestStaleErrorIsDropped(t *testing.T) {
	ctx := context.Background()
	requester := newScriptedRequester()
	controller := New(requester, Records("/customers", "/customers/search", 0), logger.Nop())

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		controller.Search(ctx, "a")
	}()
	require.Equal(t, "a", <-requester.started)
	go func() {
		defer wg.Done()
		controller.Search(ctx, "ab")
	}()
	require.Equal(t, "ab", <-requester.started)

	requester.release("ab", result{resp: &gateway.Response{Data: []any{map[string]any{"id": 1.0}}}})
	requester.release("a", result{err: errors.New("boom")})
	wg.Wait()

	snapshot := controller.Snapshot()
	assert.Empty(t, snapshot.Error)
	assert.Equal(t, Loaded, snapshot.State)
	assert.Len(t, snapshot.Rows, 1)
}

func TestStateUnmarshalText(t *testing.T) {
	var state State
	require.NoError(t, state.UnmarshalText([]byte("errored")))
	assert.Equal(t, Errored, state)
	assert.Error(t, state.UnmarshalText([]byte("done")))
}
