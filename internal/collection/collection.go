// Package collection implements the per-resource list/mutate/refresh controller that every
// resource page is built against. A Controller owns the last-known-good rows of one backend
// path together with its loading, error and success state. Mutations never touch rows
// directly: they are followed by exactly one list of the base path.
//
// Responses are tagged with a per-controller sequence number. A list response that resolves
// after a newer one has already been applied is dropped, so fast search-as-you-type never
// leaves older results on screen.
package collection

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"inventory_admin/internal/gateway"
	"inventory_admin/internal/models"
	"inventory_admin/internal/pkg/envelope"
	"inventory_admin/internal/pkg/logger"
)

// Fallback texts shown when neither the backend nor the error carries a message.
const (
	ActionFailed  = "Action failed"
	CreateSuccess = "Created successfully"
	UpdateSuccess = "Updated successfully"
	DeleteSuccess = "Deleted successfully"
)

// Query-string parameter names understood by list and search endpoints.
const (
	QueryParam = "query"
	PageParam  = "page"
	LimitParam = "limit"
)

// PageWindowWidth is the number of page links a pager shows.
const PageWindowWidth = 5

// ErrStale is returned by List and Search when a newer response was applied first.
// The rows of a stale response are not applied to the controller.
var ErrStale = errors.New("collection: response superseded by a newer request")

// ErrMissingID is returned by Update and Remove when called without a record id.
var ErrMissingID = errors.New("collection: missing record id")

// State is the life-cycle state of a Controller.
type State int

// Controller states.
const (
	Idle State = iota
	Loading
	Loaded
	Errored
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Errored:
		return "errored"
	default:
		return "idle"
	}
}

// MarshalText renders the state by name in JSON and YAML output.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name written by MarshalText.
func (s *State) UnmarshalText(text []byte) error {
	for _, state := range []State{Idle, Loading, Loaded, Errored} {
		if state.String() == string(text) {
			*s = state
			return nil
		}
	}
	return fmt.Errorf("collection: unknown state %q", text)
}

// Requester issues backend calls. *gateway.Client implements it.
type Requester interface {
	Request(ctx context.Context, method, path string, opts gateway.RequestOptions) (*gateway.Response, error)
}

// Decoder converts one normalized row into T. Rows it rejects are skipped.
type Decoder[T any] func(row any) (T, bool)

// Config describes the backend resource a Controller manages.
type Config[T any] struct {
	// Path is the REST base path, e.g. "/products".
	Path string
	// SearchPath is the optional free-text search endpoint.
	SearchPath string
	// PageSize enables paging when positive.
	PageSize int
	// Decode defaults to a type assertion.
	Decode Decoder[T]
}

// Snapshot is a consistent copy of a Controller's view state.
type Snapshot[T any] struct {
	State      State                  `json:"state" yaml:"state"`
	Rows       []T                    `json:"rows" yaml:"rows"`
	Loading    bool                   `json:"loading" yaml:"loading"`
	Error      string                 `json:"error" yaml:"error"`
	Success    string                 `json:"success" yaml:"success"`
	Page       int                    `json:"page" yaml:"page"`
	Query      string                 `json:"query" yaml:"query"`
	Pagination *models.PaginationMeta `json:"pagination,omitempty" yaml:"pagination,omitempty"`
}

// Controller manages one resource collection. It is safe for concurrent use.
type Controller[T any] struct {
	client Requester
	cfg    Config[T]
	log    *logger.Logger

	mu         sync.Mutex
	rows       []T
	outcome    State
	inflight   int
	errMsg     string
	success    string
	page       int
	query      string
	pagination *models.PaginationMeta
	seq        uint64
	applied    uint64
}

// New configures a Controller without fetching anything.
func New[T any](client Requester, cfg Config[T], l *logger.Logger) *Controller[T] {
	if l == nil {
		l = logger.Nop()
	}
	if cfg.Decode == nil {
		cfg.Decode = func(row any) (T, bool) {
			value, ok := row.(T)
			return value, ok
		}
	}
	return &Controller[T]{
		client: client,
		cfg:    cfg,
		log:    l,
		rows:   []T{},
		page:   1,
	}
}

// Open configures a Controller and performs the initial fetch. A failed initial fetch is
// recorded in the controller's error state, not returned.
func Open[T any](ctx context.Context, client Requester, cfg Config[T], l *logger.Logger) *Controller[T] {
	controller := New(client, cfg, l)
	if _, err := controller.List(ctx, nil); err != nil && !errors.Is(err, ErrStale) {
		controller.log.Sugar().Warnf("Initial fetch of %s failed: %s", cfg.Path, err)
	}
	return controller
}

// Records configures a Controller of untyped backend records.
func Records(path, searchPath string, pageSize int) Config[models.Record] {
	return Config[models.Record]{
		Path:       path,
		SearchPath: searchPath,
		PageSize:   pageSize,
		Decode:     DecodeRecord,
	}
}

// DecodeRecord accepts JSON objects as records.
func DecodeRecord(row any) (models.Record, bool) {
	record, ok := row.(map[string]any)
	return record, ok
}

// Path returns the controller's base path.
func (controller *Controller[T]) Path() string {
	return controller.cfg.Path
}

// List fetches the base path and replaces rows on success. On failure rows are kept and
// the error message is recorded. When paging is enabled the current page is requested
// unless params carry a page of their own. List leaves search mode.
func (controller *Controller[T]) List(ctx context.Context, params gateway.Params) ([]T, error) {
	controller.mu.Lock()
	controller.query = ""
	page := controller.page
	controller.mu.Unlock()

	if p, err := strconv.Atoi(params[PageParam]); err == nil && p > 0 {
		page = p
	}
	return controller.fetch(ctx, controller.cfg.Path, controller.pageParams(params, page), page)
}

// Search queries the search path with the trimmed query. Without a search path, or with
// an empty or blank query, it falls back to List.
func (controller *Controller[T]) Search(ctx context.Context, query string) ([]T, error) {
	query = strings.TrimSpace(query)
	if query == "" || controller.cfg.SearchPath == "" {
		return controller.List(ctx, nil)
	}

	controller.mu.Lock()
	controller.query = query
	controller.page = 1
	controller.mu.Unlock()

	return controller.fetch(ctx, controller.cfg.SearchPath, gateway.Params{QueryParam: query}, 1)
}

// Refresh repeats the current list or search.
func (controller *Controller[T]) Refresh(ctx context.Context) ([]T, error) {
	controller.mu.Lock()
	query := controller.query
	controller.mu.Unlock()

	if query != "" {
		return controller.Search(ctx, query)
	}
	return controller.List(ctx, nil)
}

// SetPage moves to page and fetches it. Pages below one are treated as one.
func (controller *Controller[T]) SetPage(ctx context.Context, page int) ([]T, error) {
	controller.mu.Lock()
	controller.page = max(page, 1)
	controller.mu.Unlock()

	return controller.List(ctx, nil)
}

// Create posts payload to the base path and, on success, lists the base path once.
// A successful mutation leaves search mode.
func (controller *Controller[T]) Create(ctx context.Context, payload any) error {
	return controller.mutate(ctx, http.MethodPost, controller.cfg.Path, payload, CreateSuccess)
}

// Update puts payload to the record's path and, on success, lists the base path once.
func (controller *Controller[T]) Update(ctx context.Context, id string, payload any) error {
	if id == "" {
		return ErrMissingID
	}
	return controller.mutate(ctx, http.MethodPut, controller.recordPath(id), payload, UpdateSuccess)
}

// Remove deletes the record and, on success, lists the base path once. Confirmation is the caller's job.
func (controller *Controller[T]) Remove(ctx context.Context, id string) error {
	if id == "" {
		return ErrMissingID
	}
	return controller.mutate(ctx, http.MethodDelete, controller.recordPath(id), nil, DeleteSuccess)
}

// Snapshot returns a copy of the current view state.
func (controller *Controller[T]) Snapshot() Snapshot[T] {
	controller.mu.Lock()
	defer controller.mu.Unlock()

	rows := make([]T, len(controller.rows))
	copy(rows, controller.rows)

	snapshot := Snapshot[T]{
		State:   controller.outcome,
		Rows:    rows,
		Loading: controller.inflight > 0,
		Error:   controller.errMsg,
		Success: controller.success,
		Page:    controller.page,
		Query:   controller.query,
	}
	if snapshot.Loading {
		snapshot.State = Loading
	}
	if controller.pagination != nil {
		meta := *controller.pagination
		meta.Pages = append([]int(nil), controller.pagination.Pages...)
		snapshot.Pagination = &meta
	}
	return snapshot
}

// DismissMessages clears the error and success banners.
func (controller *Controller[T]) DismissMessages() {
	controller.mu.Lock()
	controller.errMsg = ""
	controller.success = ""
	controller.mu.Unlock()
}

func (controller *Controller[T]) fetch(ctx context.Context, path string, params gateway.Params, page int) ([]T, error) {
	controller.mu.Lock()
	controller.seq++
	seq := controller.seq
	controller.inflight++
	controller.errMsg = ""
	controller.mu.Unlock()

	resp, err := controller.client.Request(ctx, http.MethodGet, path, gateway.RequestOptions{Params: params})

	controller.mu.Lock()
	defer controller.mu.Unlock()
	controller.inflight--

	if seq <= controller.applied {
		controller.log.Sugar().Debugf("Dropped stale response #%d for %s", seq, path)
		return nil, ErrStale
	}
	controller.applied = seq

	if err != nil {
		controller.outcome = Errored
		controller.errMsg = envelope.ErrorMessage(err, ActionFailed)
		controller.success = ""
		return nil, err
	}

	raw := envelope.Normalize(resp.Data)
	rows := make([]T, 0, len(raw))
	for _, item := range raw {
		if row, ok := controller.cfg.Decode(item); ok {
			rows = append(rows, row)
		}
	}

	controller.rows = rows
	controller.outcome = Loaded
	controller.pagination = nil
	if controller.cfg.PageSize > 0 && path == controller.cfg.Path {
		p := envelope.Reconcile(resp.Data, len(rows), page, controller.cfg.PageSize)
		controller.page = p.CurrentPage
		controller.pagination = &models.PaginationMeta{
			CurrentPage: p.CurrentPage,
			TotalPages:  p.TotalPages,
			TotalCount:  p.TotalCount,
			HasNextPage: p.HasNext,
			HasPrevPage: p.HasPrev,
			Pages:       envelope.PageWindow(p.CurrentPage, p.TotalPages, PageWindowWidth),
		}
	}

	result := make([]T, len(rows))
	copy(result, rows)
	return result, nil
}

func (controller *Controller[T]) mutate(ctx context.Context, method, path string, payload any, successMsg string) error {
	controller.mu.Lock()
	controller.inflight++
	controller.errMsg = ""
	controller.success = ""
	controller.mu.Unlock()

	resp, err := controller.client.Request(ctx, method, path, gateway.RequestOptions{Body: payload})

	controller.mu.Lock()
	controller.inflight--
	if err != nil {
		controller.outcome = Errored
		controller.errMsg = envelope.ErrorMessage(err, ActionFailed)
		controller.mu.Unlock()
		controller.log.Sugar().Errorf("Failed to %s %s: %s", method, path, err)
		return err
	}
	if msg := envelope.MessageFrom(resp.Data); msg != "" {
		successMsg = msg
	}
	controller.success = successMsg
	controller.mu.Unlock()

	if _, err := controller.List(ctx, nil); err != nil && !errors.Is(err, ErrStale) {
		controller.log.Sugar().Errorf("Failed to refetch %s after %s: %s", controller.cfg.Path, method, err)
	}
	return nil
}

func (controller *Controller[T]) pageParams(params gateway.Params, page int) gateway.Params {
	merged := gateway.Params{}
	for k, v := range params {
		merged[k] = v
	}
	if controller.cfg.PageSize > 0 {
		merged[PageParam] = strconv.Itoa(page)
		if _, ok := merged[LimitParam]; !ok {
			merged[LimitParam] = strconv.Itoa(controller.cfg.PageSize)
		}
	}
	return merged
}

func (controller *Controller[T]) recordPath(id string) string {
	return strings.TrimRight(controller.cfg.Path, "/") + "/" + url.PathEscape(id)
}
