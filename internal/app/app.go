// Package app wires the gateway, the session and one collection controller per resource
// into the operations both front ends expose: signing in and out, the password-reset flow,
// capability-gated listing and mutation of resources, export and reference lists.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"sort"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"inventory_admin/internal/collection"
	"inventory_admin/internal/gateway"
	"inventory_admin/internal/models"
	"inventory_admin/internal/pkg/envelope"
	"inventory_admin/internal/pkg/logger"
	"inventory_admin/internal/resources"
	"inventory_admin/internal/session"
)

// Predefined errors returned before any backend call is made.
var (
	// ErrUnauthenticated indicates that the operation needs a signed-in operator.
	ErrUnauthenticated = errors.New("app: not signed in")
	// ErrForbidden indicates that the operator's capabilities do not allow the operation.
	ErrForbidden = errors.New("app: operation not permitted for this role")
)

// summaryConcurrency bounds the parallel fetches of Summary.
const summaryConcurrency = 4

// ValidationError reports client-side form problems, one message per field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, e.Fields[name])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Records is the controller type used for every resource.
type Records = collection.Controller[models.Record]

// View is the view-state of one resource collection.
type View = collection.Snapshot[models.Record]

// Summary is the row count of one resource on the dashboard landing page.
type Summary struct {
	Resource string `json:"resource" yaml:"resource"`
	Rows     int    `json:"rows" yaml:"rows"`
	Total    int    `json:"total" yaml:"total"`
	Error    string `json:"error,omitempty" yaml:"error,omitempty"`
}

// App encapsulates the application logic and the per-resource controllers of one session.
type App struct {
	gateway  *gateway.Client
	session  *session.Manager
	log      *logger.Logger
	pageSize int

	mu          sync.Mutex
	controllers map[string]*Records
}

// NewApp creates an App over a configured gateway and the session it authenticates with.
func NewApp(gw *gateway.Client, sess *session.Manager, pageSize int, log *logger.Logger) *App {
	return &App{
		gateway:     gw,
		session:     sess,
		log:         log,
		pageSize:    pageSize,
		controllers: map[string]*Records{},
	}
}

// Session describes the current operator.
func (app *App) Session() models.SessionInfo {
	return app.session.Info()
}

// ProcessLogin validates the credentials locally, signs in and starts from fresh controllers.
func (app *App) ProcessLogin(ctx context.Context, req models.LoginRequest) (models.SessionInfo, error) {
	problems := map[string]string{}
	checkEmail(problems, req.Email)
	if req.Password == "" {
		problems["password"] = "password is required"
	}
	if len(problems) > 0 {
		return models.SessionInfo{}, &ValidationError{Fields: problems}
	}

	if _, err := app.gateway.Login(ctx, strings.TrimSpace(req.Email), req.Password); err != nil {
		return models.SessionInfo{}, err
	}
	app.resetControllers()

	return app.session.Info(), nil
}

// ProcessLogout destroys the session and every controller that belonged to it.
func (app *App) ProcessLogout(ctx context.Context) error {
	app.resetControllers()
	return app.gateway.Logout(ctx)
}

// ProcessForgotPassword starts the password-reset flow for email.
func (app *App) ProcessForgotPassword(ctx context.Context, req models.PasswordResetRequest) (string, error) {
	problems := map[string]string{}
	checkEmail(problems, req.Email)
	if len(problems) > 0 {
		return "", &ValidationError{Fields: problems}
	}
	return app.gateway.RequestPasswordReset(ctx, strings.TrimSpace(req.Email))
}

// ProcessValidateResetToken checks a reset token before the new-password form is shown.
func (app *App) ProcessValidateResetToken(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return &ValidationError{Fields: map[string]string{"token": "token is required"}}
	}
	err := app.gateway.ValidateResetToken(ctx, token)
	if errors.As(err, new(*gateway.AuthError)) {
		app.resetControllers()
	}
	return err
}

// ProcessResetPassword sets a new password. The session ends on success.
func (app *App) ProcessResetPassword(ctx context.Context, req models.NewPasswordRequest) (string, error) {
	problems := map[string]string{}
	if strings.TrimSpace(req.Token) == "" {
		problems["token"] = "token is required"
	}
	if req.Password == "" {
		problems["password"] = "password is required"
	}
	if len(problems) > 0 {
		return "", &ValidationError{Fields: problems}
	}

	msg, err := app.gateway.ResetPassword(ctx, req.Token, req.Password)
	if err != nil {
		return "", err
	}
	app.resetControllers()
	return msg, nil
}

// Resources lists every resource with what the current session may do with it.
func (app *App) Resources() []resources.Access {
	caps := app.session.Capabilities()
	all := resources.All()
	access := make([]resources.Access, 0, len(all))
	for _, resource := range all {
		access = append(access, resource.AccessFor(caps))
	}
	return access
}

// View returns the resource's current view-state. The first view of a resource fetches it.
func (app *App) View(ctx context.Context, name string) (View, error) {
	controller, _, err := app.controller(name, viewGate)
	if err != nil {
		return View{}, err
	}
	if view := controller.Snapshot(); view.State != collection.Idle || view.Loading {
		return view, nil
	}
	_, err = controller.List(ctx, nil)
	return app.settle(ctx, controller, err)
}

// List fetches page of the resource; a page of zero refetches the current one.
func (app *App) List(ctx context.Context, name string, page int) (View, error) {
	controller, _, err := app.controller(name, viewGate)
	if err != nil {
		return View{}, err
	}
	if page > 0 {
		_, err = controller.SetPage(ctx, page)
	} else {
		_, err = controller.List(ctx, nil)
	}
	return app.settle(ctx, controller, err)
}

// Search runs a free-text search over the resource.
func (app *App) Search(ctx context.Context, name, query string) (View, error) {
	controller, _, err := app.controller(name, viewGate)
	if err != nil {
		return View{}, err
	}
	_, err = controller.Search(ctx, query)
	return app.settle(ctx, controller, err)
}

// Create validates payload against the resource form and creates the record.
func (app *App) Create(ctx context.Context, name string, payload map[string]any) (View, error) {
	controller, resource, err := app.controller(name, mutateGate)
	if err != nil {
		return View{}, err
	}
	if problems := resource.Validate(payload, false); len(problems) > 0 {
		return controller.Snapshot(), &ValidationError{Fields: problems}
	}
	return app.settle(ctx, controller, controller.Create(ctx, payload))
}

// Update validates the changed fields and updates the record.
func (app *App) Update(ctx context.Context, name, id string, payload map[string]any) (View, error) {
	controller, resource, err := app.controller(name, mutateGate)
	if err != nil {
		return View{}, err
	}
	if problems := resource.Validate(payload, true); len(problems) > 0 {
		return controller.Snapshot(), &ValidationError{Fields: problems}
	}
	return app.settle(ctx, controller, controller.Update(ctx, id, payload))
}

// Remove deletes the record. Callers confirm with the operator first.
func (app *App) Remove(ctx context.Context, name, id string) (View, error) {
	controller, _, err := app.controller(name, deleteGate)
	if err != nil {
		return View{}, err
	}
	return app.settle(ctx, controller, controller.Remove(ctx, id))
}

// ReferenceList fetches a resource for a dropdown. Any failure yields an empty list.
func (app *App) ReferenceList(ctx context.Context, name string) []models.Record {
	resource, err := resources.Lookup(name)
	if err != nil || !app.session.Authenticated() || !resource.View(app.session.Capabilities()) {
		return []models.Record{}
	}

	resp, err := app.gateway.Request(ctx, http.MethodGet, resource.Path, gateway.RequestOptions{})
	if err != nil {
		app.log.Sugar().Warnf("Reference list %s unavailable: %s", name, err)
		return []models.Record{}
	}

	rows := envelope.Normalize(resp.Data)
	records := make([]models.Record, 0, len(rows))
	for _, row := range rows {
		if record, ok := collection.DecodeRecord(row); ok {
			records = append(records, record)
		}
	}
	return records
}

// Summary counts every resource the session may view. The counts come from a first-page
// list of each base path; the resource controllers, and any search they are showing, are left alone.
func (app *App) Summary(ctx context.Context) ([]Summary, error) {
	if !app.session.Authenticated() {
		return nil, ErrUnauthenticated
	}

	var visible []resources.Resource
	caps := app.session.Capabilities()
	for _, resource := range resources.All() {
		if resource.View(caps) {
			visible = append(visible, resource)
		}
	}

	summaries := make([]Summary, len(visible))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(summaryConcurrency)
	for i, resource := range visible {
		i, resource := i, resource
		g.Go(func() error {
			summaries[i] = app.count(gctx, resource)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return summaries, nil
}

// count lists the first page of resource without touching its controller.
func (app *App) count(ctx context.Context, resource resources.Resource) Summary {
	summary := Summary{Resource: resource.Name}

	params := gateway.Params{}
	if resource.Paged {
		params[collection.PageParam] = "1"
		params[collection.LimitParam] = strconv.Itoa(app.pageSize)
	}
	resp, err := app.gateway.Request(ctx, http.MethodGet, resource.Path, gateway.RequestOptions{Params: params})
	if err != nil {
		app.endSessionOnUnauthorized(ctx, err)
		summary.Error = envelope.ErrorMessage(err, collection.ActionFailed)
		return summary
	}

	summary.Rows = len(envelope.Normalize(resp.Data))
	summary.Total = summary.Rows
	if resource.Paged {
		summary.Total = envelope.Reconcile(resp.Data, summary.Rows, 1, app.pageSize).TotalCount
	}
	return summary
}

// DismissMessages clears the error and success banners of the resource's view.
func (app *App) DismissMessages(name string) (View, error) {
	controller, _, err := app.controller(name, viewGate)
	if err != nil {
		return View{}, err
	}
	controller.DismissMessages()
	return controller.Snapshot(), nil
}

type gateKind int

const (
	viewGate gateKind = iota
	mutateGate
	deleteGate
)

// controller returns the resource's controller after checking the session and the gate,
// creating it on first use.
func (app *App) controller(name string, kind gateKind) (*Records, resources.Resource, error) {
	resource, err := resources.Lookup(name)
	if err != nil {
		return nil, resources.Resource{}, err
	}
	if !app.session.Authenticated() {
		return nil, resource, ErrUnauthenticated
	}

	caps := app.session.Capabilities()
	gate := resource.View
	switch kind {
	case mutateGate:
		gate = resource.Mutate
	case deleteGate:
		gate = resource.Delete
	}
	if !gate(caps) {
		return nil, resource, ErrForbidden
	}

	app.mu.Lock()
	controller, ok := app.controllers[name]
	if !ok {
		pageSize := 0
		if resource.Paged {
			pageSize = app.pageSize
		}
		controller = collection.New(app.gateway, collection.Records(resource.Path, resource.SearchPath, pageSize), app.log)
		app.controllers[name] = controller
	}
	app.mu.Unlock()

	return controller, resource, nil
}

// settle returns the controller's view-state after an operation. A backend 401 ends the session.
func (app *App) settle(ctx context.Context, controller *Records, err error) (View, error) {
	view := controller.Snapshot()
	if errors.Is(err, collection.ErrStale) {
		return view, nil
	}

	app.endSessionOnUnauthorized(ctx, err)
	return view, err
}

// endSessionOnUnauthorized ends the session when the backend no longer accepts its token.
func (app *App) endSessionOnUnauthorized(ctx context.Context, err error) {
	var backendErr *gateway.BackendError
	if !errors.As(err, &backendErr) || !gateway.IsUnauthorized(backendErr) {
		return
	}
	app.resetControllers()
	if clearErr := app.session.Clear(ctx); clearErr != nil {
		app.log.Sugar().Errorf("Failed to clear session: %s", clearErr)
	}
}

func (app *App) resetControllers() {
	app.mu.Lock()
	app.controllers = map[string]*Records{}
	app.mu.Unlock()
}

func checkEmail(problems map[string]string, email string) {
	email = strings.TrimSpace(email)
	if email == "" {
		problems["email"] = "email is required"
		return
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		problems["email"] = fmt.Sprintf("%q is not a valid email address", email)
	}
}
