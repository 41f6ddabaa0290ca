// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package form

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/taibuivan/mknursery/internal/backend"
	"github.com/taibuivan/mknursery/internal/platform/apperr"
	"github.com/taibuivan/mknursery/internal/platform/ctxutil"
	"github.com/taibuivan/mknursery/internal/platform/validate"
	"github.com/taibuivan/mknursery/internal/upload"
)

// MsgAlreadySubmitted is shown when another request holds the form instance.
const MsgAlreadySubmitted = "This form has already been submitted."

var (
	// ErrSubmitInProgress is returned while this form instance is being submitted.
	ErrSubmitInProgress = errors.New("a submission is already in progress")

	// ErrNoUploadTarget is returned by Attach on a form without an asset field.
	ErrNoUploadTarget = errors.New("form has no asset field")
)

// # States

// Status is the phase of a form instance.
type Status int

const (
	Editing Status = iota
	Submitting
	Succeeded
	Failed
)

func (status Status) String() string {
	switch status {
	case Editing:
		return "editing"
	case Submitting:
		return "submitting"
	case Succeeded:
		return "succeeded"
	default:
		return "failed"
	}
}

// # Collaborators

// Store is the write half of [repository.Repository].
type Store[T any] interface {
	Insert(ctx context.Context, record backend.Record) (T, error)
	Update(ctx context.Context, id string, partial backend.Record) error
}

// Uploader is satisfied by [upload.Adapter].
type Uploader interface {
	Upload(ctx context.Context, file upload.File) (string, error)
}

// MutationRecorder receives the outcome of every write, for metrics.
type MutationRecorder interface {
	RecordMutation(resource, outcome string)
}

// # Controller

// Controller drives one form instance of entity type T.
type Controller[T any] struct {
	schema Schema
	store  Store[T]

	uploader Uploader
	refetch  func(ctx context.Context) error
	identity func(T) string
	recorder MutationRecorder

	locker   Locker
	instance string
	lockTTL  time.Duration

	mu          sync.Mutex
	status      Status
	id          string
	values      map[string]string
	message     string
	fieldErrors map[string]string
	uploading   bool
}

// NewController returns a controller in the Editing state for a new record.
func NewController[T any](schema Schema, store Store[T]) *Controller[T] {
	return &Controller[T]{
		schema: schema,
		store:  store,
		values: map[string]string{},
	}
}

// WithID edits an existing record instead of inserting.
func (controller *Controller[T]) WithID(id string) *Controller[T] {
	controller.id = id
	return controller
}

// WithValues seeds the fields, e.g. from the record being edited or a submitted form.
func (controller *Controller[T]) WithValues(values map[string]string) *Controller[T] {
	maps.Copy(controller.values, values)
	return controller
}

// WithUploader enables Attach.
func (controller *Controller[T]) WithUploader(uploader Uploader) *Controller[T] {
	controller.uploader = uploader
	return controller
}

// WithRefetch runs refetch after every successful write.
func (controller *Controller[T]) WithRefetch(refetch func(ctx context.Context) error) *Controller[T] {
	controller.refetch = refetch
	return controller
}

// WithIdentity switches the controller to update mode after the first insert,
// using the id read from the stored row.
func (controller *Controller[T]) WithIdentity(identity func(T) string) *Controller[T] {
	controller.identity = identity
	return controller
}

// WithRecorder reports write outcomes.
func (controller *Controller[T]) WithRecorder(recorder MutationRecorder) *Controller[T] {
	controller.recorder = recorder
	return controller
}

// WithInstanceLock guards the form instance across requests. A successful
// submission keeps the lock until ttl passes, so a replayed instance is refused.
func (controller *Controller[T]) WithInstanceLock(locker Locker, instanceID string, ttl time.Duration) *Controller[T] {
	if instanceID == "" {
		return controller
	}
	controller.locker = locker
	controller.instance = instanceID
	controller.lockTTL = ttl
	return controller
}

// # Accessors

func (controller *Controller[T]) Schema() Schema { return controller.schema }

func (controller *Controller[T]) Status() Status {
	controller.mu.Lock()
	defer controller.mu.Unlock()
	return controller.status
}

// ID is the record being edited, or "" for a new one.
func (controller *Controller[T]) ID() string {
	controller.mu.Lock()
	defer controller.mu.Unlock()
	return controller.id
}

// Message is the failure text shown above the form.
func (controller *Controller[T]) Message() string {
	controller.mu.Lock()
	defer controller.mu.Unlock()
	return controller.message
}

// FieldErrors maps field names to their validation message.
func (controller *Controller[T]) FieldErrors() map[string]string {
	controller.mu.Lock()
	defer controller.mu.Unlock()
	return maps.Clone(controller.fieldErrors)
}

// Values returns a copy of the current field text.
func (controller *Controller[T]) Values() map[string]string {
	controller.mu.Lock()
	defer controller.mu.Unlock()
	return maps.Clone(controller.values)
}

// Value returns the text of one field.
func (controller *Controller[T]) Value(name string) string {
	controller.mu.Lock()
	defer controller.mu.Unlock()
	return controller.values[name]
}

// Set edits one field. Ignored while submitting.
func (controller *Controller[T]) Set(name, value string) {
	controller.mu.Lock()
	defer controller.mu.Unlock()
	if controller.status != Submitting {
		controller.values[name] = value
	}
}

// # Operations

/*
Submit validates, writes and refetches.

Missing required fields fail before any network call. A record without an id
is inserted, otherwise updated. On success the refetch callback runs and the
controller moves to Succeeded; a refetch failure is logged but does not undo
the write. On a remote failure the provider's message is kept verbatim and the
fields stay editable.
*/
func (controller *Controller[T]) Submit(ctx context.Context) error {
	controller.mu.Lock()
	if controller.status == Submitting || controller.uploading {
		controller.mu.Unlock()
		return ErrSubmitInProgress
	}
	controller.status = Submitting
	controller.message = ""
	controller.fieldErrors = nil
	values := maps.Clone(controller.values)
	id := controller.id
	controller.mu.Unlock()

	payload, err := controller.schema.Payload(values)
	if err != nil {
		return controller.fail(ctx, err)
	}

	if controller.locker != nil {
		acquired, err := controller.locker.Acquire(ctx, controller.instance, controller.lockTTL)
		if err != nil {
			return controller.fail(ctx, err)
		}
		if !acquired {
			controller.mu.Lock()
			controller.status = Failed
			controller.message = MsgAlreadySubmitted
			controller.mu.Unlock()
			return ErrSubmitInProgress
		}
	}

	action := "updated"
	if id == "" {
		action = "created"
		var inserted T
		inserted, err = controller.store.Insert(ctx, payload)
		if err == nil && controller.identity != nil {
			id = controller.identity(inserted)
		}
	} else {
		err = controller.store.Update(ctx, id, payload)
	}

	if err != nil {
		controller.releaseLock(ctx)
		return controller.fail(ctx, err)
	}

	logger := ctxutil.GetLogger(ctx)
	logger.InfoContext(ctx, controller.event(action), slog.String("id", id))
	controller.record("ok")

	if controller.refetch != nil {
		if err := controller.refetch(ctx); err != nil {
			logger.WarnContext(ctx, "refetch_after_write_failed",
				slog.String("resource", controller.schema.Resource),
				slog.Any("error", err),
			)
		}
	}

	controller.mu.Lock()
	controller.status = Succeeded
	controller.id = id
	controller.mu.Unlock()
	return nil
}

/*
Attach uploads file into the schema's asset field.

It is refused while an upload or a submission is in flight. A failed upload
leaves the form editable with "Error uploading image: ..." as its message.
*/
func (controller *Controller[T]) Attach(ctx context.Context, file upload.File) error {
	controller.mu.Lock()
	switch {
	case controller.status == Submitting:
		controller.mu.Unlock()
		return ErrSubmitInProgress
	case controller.uploading:
		controller.mu.Unlock()
		return upload.ErrUploadInProgress
	case controller.schema.Upload == nil || controller.uploader == nil:
		controller.mu.Unlock()
		return ErrNoUploadTarget
	}
	controller.uploading = true
	controller.mu.Unlock()

	address, err := controller.uploader.Upload(ctx, file)

	controller.mu.Lock()
	defer controller.mu.Unlock()
	controller.uploading = false
	if err != nil {
		controller.message = upload.Message(err)
		return err
	}
	controller.values[controller.schema.Upload.Field] = address
	return nil
}

// ClearAsset removes the current asset address.
func (controller *Controller[T]) ClearAsset() {
	if controller.schema.Upload == nil {
		return
	}
	controller.Set(controller.schema.Upload.Field, "")
}

// # Internals

func (controller *Controller[T]) fail(ctx context.Context, err error) error {
	controller.mu.Lock()
	controller.status = Failed
	controller.message = apperr.Message(err)
	controller.fieldErrors = validate.FieldErrors(err)
	controller.mu.Unlock()

	if !apperr.HasCode(err, apperr.CodeValidation) {
		controller.record("failed")
		ctxutil.GetLogger(ctx).WarnContext(ctx, "mutation_failed",
			slog.String("resource", controller.schema.Resource),
			slog.Any("error", err),
		)
	}
	return err
}

func (controller *Controller[T]) releaseLock(ctx context.Context) {
	if controller.locker == nil {
		return
	}
	if err := controller.locker.Release(ctx, controller.instance); err != nil {
		ctxutil.GetLogger(ctx).WarnContext(ctx, "form_lock_release_failed", slog.Any("error", err))
	}
}

func (controller *Controller[T]) record(outcome string) {
	if controller.recorder != nil {
		controller.recorder.RecordMutation(controller.schema.Resource, outcome)
	}
}

// event names the log event of a write, e.g. "plant_created".
func (controller *Controller[T]) event(action string) string {
	resource := strings.ToLower(strings.ReplaceAll(controller.schema.Resource, " ", "_"))
	return resource + "_" + action
}
