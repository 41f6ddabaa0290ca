// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/mknursery/internal/dashboard"
	"github.com/taibuivan/mknursery/internal/form"
	"github.com/taibuivan/mknursery/internal/listing"
	"github.com/taibuivan/mknursery/internal/platform/apperr"
	"github.com/taibuivan/mknursery/internal/platform/constants"
	"github.com/taibuivan/mknursery/internal/platform/ctxutil"
	requestutil "github.com/taibuivan/mknursery/internal/platform/request"
	"github.com/taibuivan/mknursery/internal/repository"
	"github.com/taibuivan/mknursery/internal/settings"
	"github.com/taibuivan/mknursery/internal/upload"
	"github.com/taibuivan/mknursery/pkg/uuid"
)

// assetInput is the multipart field carrying a picked image.
const assetInput = "asset"

// # View Models

type listRow struct {
	ID    string
	Cells []string
}

type listData struct {
	Kind    string
	Title   string
	Status  string
	Error   string
	Flash   string
	Columns []string
	Rows    []listRow
}

type fieldView struct {
	Name      string
	Label     string
	Type      string
	Step      string
	Value     string
	Error     string
	Required  bool
	Multiline bool
	Asset     bool
}

type formData struct {
	Title      string
	Action     string
	Cancel     string
	Submit     string
	Instance   string
	Notice     string
	Message    string
	Multipart  bool
	AssetField string
	Fields     []fieldView
}

// fieldsOf renders every schema field with its current text and error.
func fieldsOf(schema form.Schema, value func(string) string, errs map[string]string) []fieldView {
	fields := make([]fieldView, 0, len(schema.Fields))
	for _, field := range schema.Fields {
		view := fieldView{
			Name:      field.Name,
			Label:     field.Label,
			Type:      "text",
			Value:     value(field.Name),
			Error:     errs[field.Name],
			Required:  field.Required,
			Multiline: field.Multiline,
			Asset:     field.Kind == form.Asset,
		}
		switch field.Kind {
		case form.Integer:
			view.Type, view.Step = "number", "1"
		case form.Decimal:
			view.Type, view.Step = "number", "0.01"
		}
		fields = append(fields, view)
	}
	return fields
}

func newFormData(schema form.Schema, title, action, cancel, submit string) formData {
	data := formData{
		Title:    title,
		Action:   action,
		Cancel:   cancel,
		Submit:   submit,
		Instance: uuid.New(),
	}
	if schema.Upload != nil {
		data.Multipart = true
		data.AssetField = schema.Upload.Field
	}
	return data
}

// formInstance returns the posted instance id, or "" when it is not one we issued.
func formInstance(request *http.Request) string {
	instance := request.PostFormValue(constants.FormInstanceField)
	if !uuid.Valid(instance) {
		return ""
	}
	return instance
}

func lockKey(scope, instance string) string {
	if instance == "" {
		return ""
	}
	return scope + ":" + instance
}

// # Entity Administration

type adminRoutes interface {
	mount(r chi.Router)
}

// entityAdmin serves list, form and delete pages for one entity type.
type entityAdmin[T any] struct {
	server     *Server
	kind       string
	title      string
	repository *repository.Repository[T]
	schema     form.Schema
	identity   func(T) string
	values     func(T) map[string]string
	label      func(T) string
	columns    []string
	cells      func(T) []string
}

func (admin *entityAdmin[T]) mount(r chi.Router) {
	r.Route("/"+admin.kind, func(r chi.Router) {
		r.Get("/", admin.list)
		r.Get("/new", admin.newForm)
		r.Post("/new", admin.create)
		r.Get("/{id}/edit", admin.editForm)
		r.Post("/{id}/edit", admin.update)
		r.Get("/{id}/delete", admin.confirmDelete)
		r.Post("/{id}/delete", admin.delete)
	})
}

func (admin *entityAdmin[T]) listPath() string { return "/admin/" + admin.kind }

func (admin *entityAdmin[T]) view() *listing.View[T] {
	return listing.New[T](admin.repository, repository.Newest(0))
}

func (admin *entityAdmin[T]) list(writer http.ResponseWriter, request *http.Request) {
	view := admin.view()
	_ = view.Refetch(request.Context())
	admin.renderList(writer, request, view.Snapshot(), "")
}

func (admin *entityAdmin[T]) renderList(writer http.ResponseWriter, request *http.Request, snapshot listing.Snapshot[T], flash string) {
	data := listData{
		Kind:    admin.kind,
		Title:   admin.title,
		Status:  snapshot.Status.String(),
		Flash:   flash,
		Columns: admin.columns,
	}
	if snapshot.Err != nil {
		data.Error = apperr.Message(snapshot.Err)
	}
	for _, item := range snapshot.Items {
		data.Rows = append(data.Rows, listRow{ID: admin.identity(item), Cells: admin.cells(item)})
	}

	status := http.StatusOK
	if snapshot.Status == listing.Failed {
		status = apperr.Status(snapshot.Err)
	}
	admin.server.render(writer, request, status, "admin/list.html", page{Title: admin.title, Admin: true, Data: data})
}

func (admin *entityAdmin[T]) blankForm(id string) formData {
	resource := admin.schema.Resource
	if id == "" {
		return newFormData(admin.schema, "Add "+resource, admin.listPath()+"/new", admin.listPath(), "Create "+resource)
	}
	return newFormData(admin.schema, "Edit "+resource, admin.listPath()+"/"+id+"/edit", admin.listPath(), "Update "+resource)
}

func (admin *entityAdmin[T]) renderForm(writer http.ResponseWriter, request *http.Request, status int, data formData) {
	admin.server.render(writer, request, status, "admin/form.html", page{Title: data.Title, Admin: true, Data: data})
}

func (admin *entityAdmin[T]) newForm(writer http.ResponseWriter, request *http.Request) {
	data := admin.blankForm("")
	data.Fields = fieldsOf(admin.schema, func(string) string { return "" }, nil)
	admin.renderForm(writer, request, http.StatusOK, data)
}

// load reads the row named in the URL, answering with the not-found or error page itself.
func (admin *entityAdmin[T]) load(writer http.ResponseWriter, request *http.Request) (T, string, bool) {
	ctx := request.Context()
	id := requestutil.Param(request, "id")
	item, err := admin.repository.Get(ctx, id)
	if err != nil {
		if apperr.IsNotFound(err) {
			admin.server.notFound(writer, request, apperr.Message(err), admin.listPath(), "Back to "+strings.ToLower(admin.title))
		} else {
			ctxutil.GetLogger(ctx).WarnContext(ctx, "admin_fetch_failed", slog.String("kind", admin.kind), slog.Any("error", err))
			admin.server.failure(writer, request, apperr.Status(err), apperr.Message(err))
		}
		return item, id, false
	}
	return item, id, true
}

func (admin *entityAdmin[T]) editForm(writer http.ResponseWriter, request *http.Request) {
	item, id, ok := admin.load(writer, request)
	if !ok {
		return
	}
	values := admin.values(item)
	data := admin.blankForm(id)
	data.Fields = fieldsOf(admin.schema, func(name string) string { return values[name] }, nil)
	admin.renderForm(writer, request, http.StatusOK, data)
}

func (admin *entityAdmin[T]) create(writer http.ResponseWriter, request *http.Request) {
	admin.submit(writer, request, "")
}

func (admin *entityAdmin[T]) update(writer http.ResponseWriter, request *http.Request) {
	admin.submit(writer, request, requestutil.Param(request, "id"))
}

/*
submit runs one form submission: optional image upload, then the write.

On success the list is refetched and rendered in place. On failure the form is
rendered again with the typed values, its message and the same instance id.
*/
func (admin *entityAdmin[T]) submit(writer http.ResponseWriter, request *http.Request, id string) {
	ctx := request.Context()
	options := admin.server.options

	if err := requestutil.ParseForm(request); err != nil {
		admin.server.failure(writer, request, http.StatusBadRequest, apperr.Message(err))
		return
	}

	instance := formInstance(request)
	view := admin.view()
	controller := form.NewController[T](admin.schema, admin.repository).
		WithID(id).
		WithValues(requestutil.FormValues(request, admin.schema.Names()...)).
		WithIdentity(admin.identity).
		WithRefetch(view.Refetch).
		WithRecorder(options.Recorder).
		WithInstanceLock(options.Locker, lockKey(admin.kind, instance), form.DefaultLockTTL)

	rerender := func(status int) {
		data := admin.blankForm(id)
		if instance != "" {
			data.Instance = instance
		}
		data.Message = controller.Message()
		data.Fields = fieldsOf(admin.schema, controller.Value, controller.FieldErrors())
		admin.renderForm(writer, request, status, data)
	}

	if admin.schema.Upload != nil {
		controller.WithUploader(upload.New(options.Storage, upload.Options{
			Bucket:   options.Bucket,
			Prefix:   admin.schema.Upload.Prefix,
			MaxBytes: options.UploadMaxBytes,
			Timeout:  options.Timeout,
			Recorder: options.Recorder,
		}))
		if request.PostFormValue("clear_asset") != "" {
			controller.ClearAsset()
		}

		file, header, err := requestutil.File(request, assetInput)
		if err != nil {
			admin.server.failure(writer, request, http.StatusBadRequest, apperr.Message(err))
			return
		}
		if file != nil {
			defer file.Close()
			if err := controller.Attach(ctx, upload.File{Name: header.Filename, Body: file}); err != nil {
				rerender(http.StatusUnprocessableEntity)
				return
			}
		}
	}

	if err := controller.Submit(ctx); err != nil {
		status := apperr.Status(err)
		if errors.Is(err, form.ErrSubmitInProgress) {
			status = http.StatusConflict
		}
		rerender(status)
		return
	}

	action := "updated"
	if id == "" {
		action = "created"
	}
	admin.renderList(writer, request, view.Snapshot(), fmt.Sprintf("%s %s successfully!", admin.schema.Resource, action))
}

type deleteData struct {
	Kind     string
	Resource string
	ID       string
	Label    string
	Prompt   string
	Error    string
}

func (admin *entityAdmin[T]) deleteData(id, label string) deleteData {
	return deleteData{
		Kind:     admin.kind,
		Resource: admin.schema.Resource,
		ID:       id,
		Label:    label,
		Prompt:   admin.repository.DeletePrompt(),
	}
}

func (admin *entityAdmin[T]) confirmDelete(writer http.ResponseWriter, request *http.Request) {
	item, id, ok := admin.load(writer, request)
	if !ok {
		return
	}
	admin.server.render(writer, request, http.StatusOK, "admin/delete.html", page{
		Title: "Delete " + admin.schema.Resource,
		Admin: true,
		Data:  admin.deleteData(id, admin.label(item)),
	})
}

// delete only reaches the backend when the confirmation button was pressed.
func (admin *entityAdmin[T]) delete(writer http.ResponseWriter, request *http.Request) {
	ctx := request.Context()
	id := requestutil.Param(request, "id")
	if err := requestutil.ParseForm(request); err != nil {
		admin.server.failure(writer, request, http.StatusBadRequest, apperr.Message(err))
		return
	}

	confirmed := repository.Confirmed(request.PostFormValue("confirm") == "yes")
	err := admin.repository.Delete(ctx, id, confirmed)
	switch {
	case errors.Is(err, repository.ErrDeleteNotConfirmed):
		http.Redirect(writer, request, admin.listPath(), http.StatusSeeOther)
		return
	case err != nil:
		ctxutil.GetLogger(ctx).WarnContext(ctx, "mutation_failed",
			slog.String("resource", admin.schema.Resource),
			slog.Any("error", err),
		)
		admin.record("failed")
		data := admin.deleteData(id, "")
		data.Error = apperr.Message(err)
		admin.server.render(writer, request, apperr.Status(err), "admin/delete.html", page{
			Title: "Delete " + admin.schema.Resource,
			Admin: true,
			Data:  data,
		})
		return
	}

	ctxutil.GetLogger(ctx).InfoContext(ctx, strings.ToLower(admin.schema.Resource)+"_deleted", slog.String("id", id))
	admin.record("ok")

	view := admin.view()
	_ = view.Refetch(ctx)
	admin.renderList(writer, request, view.Snapshot(), admin.schema.Resource+" deleted successfully!")
}

func (admin *entityAdmin[T]) record(outcome string) {
	if recorder := admin.server.options.Recorder; recorder != nil {
		recorder.RecordMutation(admin.schema.Resource, outcome)
	}
}

// # Dashboard

type dashboardData struct {
	Stats dashboard.Stats
	Error string
}

func (server *Server) dashboardPage(writer http.ResponseWriter, request *http.Request) {
	ctx := request.Context()
	stats, err := server.dashboard.Stats(ctx)
	data := dashboardData{Stats: stats}
	status := http.StatusOK
	if err != nil {
		ctxutil.GetLogger(ctx).WarnContext(ctx, "dashboard_stats_failed", slog.Any("error", err))
		data.Error = apperr.Message(err)
		status = apperr.Status(err)
	}
	server.render(writer, request, status, "admin/dashboard.html", page{Title: "Dashboard", Admin: true, Data: data})
}

// # Settings

func settingsForm() formData {
	return newFormData(settings.Schema, "Site Settings", "/admin/settings", "", "Save Settings")
}

func (server *Server) settingsPage(writer http.ResponseWriter, request *http.Request) {
	ctx := request.Context()
	current, err := server.settings.Load(ctx)
	if err != nil {
		ctxutil.GetLogger(ctx).WarnContext(ctx, "settings_fetch_failed", slog.Any("error", err))
		server.failure(writer, request, apperr.Status(err), apperr.Message(err))
		return
	}

	values := current.FormValues()
	data := settingsForm()
	data.Fields = fieldsOf(settings.Schema, func(name string) string { return values[name] }, nil)
	server.render(writer, request, http.StatusOK, "admin/form.html", page{Title: data.Title, Admin: true, Data: data})
}

// settingsSubmit inserts the row on first save and updates it afterwards.
func (server *Server) settingsSubmit(writer http.ResponseWriter, request *http.Request) {
	ctx := request.Context()
	if err := requestutil.ParseForm(request); err != nil {
		server.failure(writer, request, http.StatusBadRequest, apperr.Message(err))
		return
	}

	current, err := server.settings.Load(ctx)
	if err != nil {
		server.failure(writer, request, apperr.Status(err), settings.ErrorMessage(err))
		return
	}

	instance := formInstance(request)
	controller := form.NewController[settings.Settings](settings.Schema, server.settings.Repository()).
		WithID(current.ID).
		WithValues(requestutil.FormValues(request, settings.Schema.Names()...)).
		WithIdentity(settings.Identity).
		WithRecorder(server.options.Recorder).
		WithInstanceLock(server.options.Locker, lockKey("settings", instance), form.DefaultLockTTL).
		WithRefetch(func(ctx context.Context) error {
			current, err = server.settings.Load(ctx)
			return err
		})

	data := settingsForm()
	if err := controller.Submit(ctx); err != nil {
		status := apperr.Status(err)
		data.Message = settings.ErrorMessage(err)
		if errors.Is(err, form.ErrSubmitInProgress) {
			status = http.StatusConflict
			data.Message = controller.Message()
		}
		if instance != "" {
			data.Instance = instance
		}
		data.Fields = fieldsOf(settings.Schema, controller.Value, controller.FieldErrors())
		server.render(writer, request, status, "admin/form.html", page{Title: data.Title, Admin: true, Data: data})
		return
	}

	values := current.FormValues()
	data.Notice = settings.MsgSaved
	data.Fields = fieldsOf(settings.Schema, func(name string) string { return values[name] }, nil)
	server.render(writer, request, http.StatusOK, "admin/form.html", page{Title: data.Title, Admin: true, Data: data})
}
