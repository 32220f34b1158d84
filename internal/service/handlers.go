// Package service exposes the admin client core over HTTP for the dashboard page.
// Handlers parse requests, call the app package and translate its errors into status codes
// and {"errors": "..."} bodies. Resource responses carry the collection view-state
// (rows, loading, error, success, page, query, pagination) so the page renders it as-is.
package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"inventory_admin/internal/app"
	"inventory_admin/internal/collection"
	"inventory_admin/internal/gateway"
	"inventory_admin/internal/models"
	"inventory_admin/internal/pkg/envelope"
	"inventory_admin/internal/pkg/logger"
	"inventory_admin/internal/resources"
)

const requestTimeout = 10 * time.Second

// handlers aggregates dependencies needed by HTTP handlers.
type handlers struct {
	app *app.App
	log *logger.Logger
}

// newHandlers initializes a new handlers instance with the provided app and logger dependencies.
func newHandlers(app *app.App, l *logger.Logger) *handlers {
	return &handlers{app: app, log: l}
}

// sessionHandler describes the signed-in operator and their capabilities.
func (handlers *handlers) sessionHandler(res http.ResponseWriter, req *http.Request) {
	writeJSON(res, handlers.app.Session(), http.StatusOK)
}

// loginHandler signs the operator in with email and password.
func (handlers *handlers) loginHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	var loginRequest models.LoginRequest
	if !readJSON(res, req, &loginRequest) {
		return
	}

	info, err := handlers.app.ProcessLogin(ctx, loginRequest)
	if err != nil {
		handlers.writeAppError(res, err, "Login failed")
		return
	}
	writeJSON(res, info, http.StatusOK)
}

// logoutHandler ends the session. The backend is not contacted.
func (handlers *handlers) logoutHandler(res http.ResponseWriter, req *http.Request) {
	if err := handlers.app.ProcessLogout(req.Context()); err != nil {
		writeErrorResponse(res, err.Error(), http.StatusInternalServerError)
		return
	}
	res.WriteHeader(http.StatusNoContent)
}

func (handlers *handlers) forgotPasswordHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	var resetRequest models.PasswordResetRequest
	if !readJSON(res, req, &resetRequest) {
		return
	}

	msg, err := handlers.app.ProcessForgotPassword(ctx, resetRequest)
	if err != nil {
		handlers.writeAppError(res, err, collection.ActionFailed)
		return
	}
	writeJSON(res, map[string]string{"message": msg}, http.StatusOK)
}

func (handlers *handlers) validateResetTokenHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	if err := handlers.app.ProcessValidateResetToken(ctx, req.URL.Query().Get("token")); err != nil {
		handlers.writeAppError(res, err, collection.ActionFailed)
		return
	}
	writeJSON(res, map[string]bool{"valid": true}, http.StatusOK)
}

func (handlers *handlers) resetPasswordHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	var newPassword models.NewPasswordRequest
	if !readJSON(res, req, &newPassword) {
		return
	}

	msg, err := handlers.app.ProcessResetPassword(ctx, newPassword)
	if err != nil {
		handlers.writeAppError(res, err, collection.ActionFailed)
		return
	}
	writeJSON(res, map[string]string{"message": msg}, http.StatusOK)
}

// dashboardHandler reports the size of every resource the operator may view.
func (handlers *handlers) dashboardHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	summaries, err := handlers.app.Summary(ctx)
	if err != nil {
		handlers.writeAppError(res, err, collection.ActionFailed)
		return
	}
	writeJSON(res, summaries, http.StatusOK)
}

// resourcesHandler lists the registered resources with the operator's access to each.
func (handlers *handlers) resourcesHandler(res http.ResponseWriter, req *http.Request) {
	writeJSON(res, handlers.app.Resources(), http.StatusOK)
}

// listHandler returns a resource's view-state. With ?query= it searches, with ?page= it
// moves to that page, with ?refresh=true it refetches; otherwise the current state is
// returned, fetching it on first use.
func (handlers *handlers) listHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	name := chi.URLParam(req, "resource")
	query := req.URL.Query()

	var view app.View
	var err error
	switch {
	case query.Has("query"):
		view, err = handlers.app.Search(ctx, name, query.Get("query"))
	case query.Has("page"):
		page, convErr := strconv.Atoi(query.Get("page"))
		if convErr != nil || page < 1 {
			writeErrorResponse(res, "page must be a positive integer", http.StatusBadRequest)
			return
		}
		view, err = handlers.app.List(ctx, name, page)
	case query.Get("refresh") == "true":
		view, err = handlers.app.List(ctx, name, 0)
	default:
		view, err = handlers.app.View(ctx, name)
	}
	handlers.writeView(res, view, err, http.StatusOK)
}

// createHandler creates a record and answers with the refetched view-state.
func (handlers *handlers) createHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	var payload map[string]any
	if !readJSON(res, req, &payload) {
		return
	}

	view, err := handlers.app.Create(ctx, chi.URLParam(req, "resource"), payload)
	handlers.writeView(res, view, err, http.StatusCreated)
}

// updateHandler updates a record and answers with the refetched view-state.
func (handlers *handlers) updateHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	var payload map[string]any
	if !readJSON(res, req, &payload) {
		return
	}

	view, err := handlers.app.Update(ctx, chi.URLParam(req, "resource"), chi.URLParam(req, "id"), payload)
	handlers.writeView(res, view, err, http.StatusOK)
}

// deleteHandler deletes a record. The page asks for confirmation before calling it.
func (handlers *handlers) deleteHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	view, err := handlers.app.Remove(ctx, chi.URLParam(req, "resource"), chi.URLParam(req, "id"))
	handlers.writeView(res, view, err, http.StatusOK)
}

// exportHandler downloads a resource as csv, json or yaml (?format=, csv by default).
func (handlers *handlers) exportHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	name := chi.URLParam(req, "resource")
	format := req.URL.Query().Get("format")
	if format == "" {
		format = app.FormatCSV
	}

	// Buffered so a failed export can still answer with an error status.
	var body bytes.Buffer
	if err := handlers.app.Export(ctx, name, format, &body); err != nil {
		handlers.writeAppError(res, err, collection.ActionFailed)
		return
	}

	res.Header().Set("Content-Type", contentTypes[format])
	res.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+"."+format))
	res.WriteHeader(http.StatusOK)
	res.Write(body.Bytes())
}

// optionsHandler returns a resource's rows for a dropdown; failures yield an empty list.
func (handlers *handlers) optionsHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	writeJSON(res, handlers.app.ReferenceList(ctx, chi.URLParam(req, "resource")), http.StatusOK)
}

// dismissHandler clears the resource's error and success banners.
func (handlers *handlers) dismissHandler(res http.ResponseWriter, req *http.Request) {
	view, err := handlers.app.DismissMessages(chi.URLParam(req, "resource"))
	handlers.writeView(res, view, err, http.StatusOK)
}

var contentTypes = map[string]string{
	app.FormatCSV:  "text/csv",
	app.FormatJSON: "application/json",
	app.FormatYAML: "application/yaml",
}

// writeView answers with the view-state. Failed backend calls keep the view-state as the
// body so the page can show the error banner over the retained rows.
func (handlers *handlers) writeView(res http.ResponseWriter, view app.View, err error, okStatus int) {
	if err == nil {
		writeJSON(res, view, okStatus)
		return
	}

	var backendErr *gateway.BackendError
	var networkErr *gateway.NetworkError
	switch {
	case errors.As(err, &backendErr):
		writeJSON(res, view, backendStatus(backendErr))
	case errors.As(err, &networkErr):
		writeJSON(res, view, http.StatusBadGateway)
	default:
		handlers.writeAppError(res, err, collection.ActionFailed)
	}
}

// writeAppError maps app, gateway and resource errors to a status and an error body.
func (handlers *handlers) writeAppError(res http.ResponseWriter, err error, fallback string) {
	var validationErr *app.ValidationError
	if errors.As(err, &validationErr) {
		res.Header().Set("Content-Type", "application/json")
		res.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(res).Encode(models.ErrorResponse{Errors: "validation failed", Fields: validationErr.Fields})
		return
	}

	var backendErr *gateway.BackendError
	var networkErr *gateway.NetworkError
	var authErr *gateway.AuthError
	switch {
	case errors.Is(err, app.ErrUnauthenticated):
		writeErrorResponse(res, "unauthorized", http.StatusUnauthorized)
	case errors.Is(err, app.ErrForbidden):
		writeErrorResponse(res, "forbidden", http.StatusForbidden)
	case errors.Is(err, resources.ErrUnknownResource):
		writeErrorResponse(res, "unknown resource", http.StatusNotFound)
	case errors.Is(err, collection.ErrMissingID):
		writeErrorResponse(res, "missing record id", http.StatusBadRequest)
	case errors.Is(err, app.ErrUnsupportedFormat):
		writeErrorResponse(res, err.Error(), http.StatusBadRequest)
	case errors.As(err, &authErr):
		writeErrorResponse(res, envelope.ErrorMessage(err, fallback), http.StatusUnauthorized)
	case errors.As(err, &backendErr):
		writeErrorResponse(res, envelope.ErrorMessage(err, fallback), backendStatus(backendErr))
	case errors.As(err, &networkErr):
		writeErrorResponse(res, envelope.ErrorMessage(err, fallback), http.StatusBadGateway)
	default:
		handlers.log.Sugar().Errorf("Unhandled error: %s", err)
		writeErrorResponse(res, envelope.ErrorMessage(err, fallback), http.StatusInternalServerError)
	}
}

// backendStatus passes 4xx answers through and reports everything else as a bad gateway.
func backendStatus(err *gateway.BackendError) int {
	if err.Status >= 400 && err.Status < 500 {
		return err.Status
	}
	return http.StatusBadGateway
}

func readJSON(res http.ResponseWriter, req *http.Request, target any) bool {
	requestBody, err := io.ReadAll(req.Body)
	if err != nil {
		writeErrorResponse(res, err.Error(), http.StatusBadRequest)
		return false
	}
	if err = json.Unmarshal(requestBody, target); err != nil {
		writeErrorResponse(res, err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(res http.ResponseWriter, value any, statusCode int) {
	result, err := json.Marshal(value)
	if err != nil {
		writeErrorResponse(res, err.Error(), http.StatusInternalServerError)
		return
	}

	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(statusCode)
	res.Write(result)
}

func writeErrorResponse(res http.ResponseWriter, errorInfo string, statusCode int) {
	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(statusCode)
	json.NewEncoder(res).Encode(models.ErrorResponse{Errors: errorInfo})
}
