// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package form_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/mknursery/internal/backend"
	"github.com/taibuivan/mknursery/internal/backend/memory"
	"github.com/taibuivan/mknursery/internal/form"
	"github.com/taibuivan/mknursery/internal/listing"
	"github.com/taibuivan/mknursery/internal/repository"
	"github.com/taibuivan/mknursery/internal/upload"
)

type plant struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Price    *float64 `json:"price"`
	Stock    int      `json:"stock"`
	ImageURL *string  `json:"image_url"`
}

var plantSchema = form.Schema{
	Resource: "Plant",
	Fields: []form.Field{
		{Name: "name", Label: "Name", Kind: form.Text, Required: true},
		{Name: "price", Label: "Price", Kind: form.Decimal},
		{Name: "stock", Label: "Stock", Kind: form.Integer, Fallback: 0, Min: 0},
		{Name: "image_url", Label: "Image", Kind: form.Asset},
	},
	Upload: &form.UploadTarget{Field: "image_url"},
}

// blockingStore holds inserts until release is closed and counts writes.
type blockingStore struct {
	started chan struct{}
	release chan struct{}
	writes  int
}

func (store *blockingStore) Insert(context.Context, backend.Record) (plant, error) {
	store.writes++
	close(store.started)
	<-store.release
	return plant{ID: "p-1"}, nil
}

func (store *blockingStore) Update(context.Context, string, backend.Record) error {
	store.writes++
	return nil
}

func newPlants(t *testing.T) (*repository.Repository[plant], *memory.Data) {
	t.Helper()
	data := memory.NewData()
	return repository.New[plant](data, "plants", "Plant", time.Second), data
}

/*
TestSchema_NumericCoercion never fails on numeric text.
*/
func TestSchema_NumericCoercion(t *testing.T) {
	rating := form.Field{Name: "rating", Kind: form.Integer, Fallback: 5, Min: 1, Max: 5}
	schema := form.Schema{Fields: []form.Field{
		{Name: "stock", Kind: form.Integer, Min: 0},
		{Name: "price", Kind: form.Decimal},
		rating,
	}}

	tests := []struct {
		name   string
		values map[string]string
		want   backend.Record
	}{
		{"empty", map[string]string{}, backend.Record{"stock": 0, "price": nil, "rating": 5}},
		{"negative_stock", map[string]string{"stock": "-3"}, backend.Record{"stock": 0, "price": nil, "rating": 5}},
		{"rating_above_max", map[string]string{"rating": "9"}, backend.Record{"stock": 0, "price": nil, "rating": 5}},
		{"rating_below_min", map[string]string{"rating": "0"}, backend.Record{"stock": 0, "price": nil, "rating": 1}},
		{"garbage", map[string]string{"stock": "lots", "price": "cheap"}, backend.Record{"stock": 0, "price": nil, "rating": 5}},
		{"valid", map[string]string{"stock": " 10 ", "price": "250", "rating": "4"}, backend.Record{"stock": 10, "price": 250.0, "rating": 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record, err := schema.Payload(tt.values)
			require.NoError(t, err)
			assert.Equal(t, tt.want, record)
		})
	}
}

/*
TestSchema_DottedNamesNest builds the business hours object.
*/
func TestSchema_DottedNamesNest(t *testing.T) {
	schema := form.Schema{Fields: []form.Field{
		{Name: "site_name"},
		{Name: "business_hours.monday_friday"},
		{Name: "business_hours.saturday"},
	}}

	record, err := schema.Payload(map[string]string{
		"site_name":                    "MK Nursery",
		"business_hours.monday_friday": "9-6",
		"business_hours.saturday":      "8-5",
	})
	require.NoError(t, err)
	assert.Equal(t, backend.Record{
		"site_name": "MK Nursery",
		"business_hours": backend.Record{
			"monday_friday": "9-6",
			"saturday":      "8-5",
		},
	}, record)
}

/*
TestSubmit_RequiredFieldsFailLocally rejects before any write.
*/
func TestSubmit_RequiredFieldsFailLocally(t *testing.T) {
	store := &blockingStore{started: make(chan struct{}), release: make(chan struct{})}
	controller := form.NewController[plant](plantSchema, store).WithValues(map[string]string{"name": "  "})

	err := controller.Submit(context.Background())
	require.Error(t, err)
	assert.Equal(t, form.Failed, controller.Status())
	assert.Equal(t, "This field is required", controller.FieldErrors()["name"])
	assert.Zero(t, store.writes)

	// Fields stay editable after a failure.
	controller.Set("name", "Fern")
	assert.Equal(t, "Fern", controller.Value("name"))
}

/*
TestSubmit_InsertThenRefetch shows exactly one matching row after the write.
*/
func TestSubmit_InsertThenRefetch(t *testing.T) {
	ctx := context.Background()
	plants, _ := newPlants(t)
	view := listing.New[plant](plants, repository.Newest(0))

	controller := form.NewController[plant](plantSchema, plants).
		WithValues(map[string]string{"name": "Aloe Vera", "price": "250", "stock": "10"}).
		WithRefetch(view.Refetch)

	require.NoError(t, controller.Submit(ctx))
	assert.Equal(t, form.Succeeded, controller.Status())

	snapshot := view.Snapshot()
	require.Equal(t, listing.Ready, snapshot.Status)
	require.Len(t, snapshot.Items, 1)
	got := snapshot.Items[0]
	assert.Equal(t, "Aloe Vera", got.Name)
	require.NotNil(t, got.Price)
	assert.InDelta(t, 250.0, *got.Price, 0.001)
	assert.Equal(t, 10, got.Stock)
	assert.Nil(t, got.ImageURL)
}

/*
TestSubmit_UpdateExisting writes to the given id and refetches.
*/
func TestSubmit_UpdateExisting(t *testing.T) {
	ctx := context.Background()
	plants, _ := newPlants(t)
	existing, err := plants.Insert(ctx, backend.Record{"name": "Fern", "stock": 2})
	require.NoError(t, err)

	view := listing.New[plant](plants, repository.ListOptions{})
	controller := form.NewController[plant](plantSchema, plants).
		WithID(existing.ID).
		WithValues(map[string]string{"name": "Boston Fern", "stock": ""}).
		WithRefetch(view.Refetch)

	require.NoError(t, controller.Submit(ctx))

	items := view.Snapshot().Items
	require.Len(t, items, 1)
	assert.Equal(t, "Boston Fern", items[0].Name)
	assert.Equal(t, 0, items[0].Stock)
}

/*
TestSubmit_RemoteFailureKeepsMessage stores the provider text verbatim.
*/
func TestSubmit_RemoteFailureKeepsMessage(t *testing.T) {
	plants, data := newPlants(t)
	data.FailWith("plants", errors.New(`new row for relation "plants" violates check constraint "plants_stock_check"`))

	refetched := false
	controller := form.NewController[plant](plantSchema, plants).
		WithValues(map[string]string{"name": "Fern"}).
		WithRefetch(func(context.Context) error { refetched = true; return nil })

	require.Error(t, controller.Submit(context.Background()))
	assert.Equal(t, form.Failed, controller.Status())
	assert.Equal(t, `new row for relation "plants" violates check constraint "plants_stock_check"`, controller.Message())
	assert.False(t, refetched)
}

/*
TestSubmit_RejectsWhileInFlight allows one submission per instance at a time.
*/
func TestSubmit_RejectsWhileInFlight(t *testing.T) {
	store := &blockingStore{started: make(chan struct{}), release: make(chan struct{})}
	controller := form.NewController[plant](plantSchema, store).WithValues(map[string]string{"name": "Fern"})

	done := make(chan error, 1)
	go func() { done <- controller.Submit(context.Background()) }()

	<-store.started
	assert.Equal(t, form.Submitting, controller.Status())
	assert.ErrorIs(t, controller.Submit(context.Background()), form.ErrSubmitInProgress)
	assert.ErrorIs(t, controller.Attach(context.Background(), upload.File{Name: "x.png"}), form.ErrSubmitInProgress)

	close(store.release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, store.writes)
}

/*
TestSubmit_InstanceLockPreventsDoubleSubmit refuses a replayed form instance.
*/
func TestSubmit_InstanceLockPreventsDoubleSubmit(t *testing.T) {
	ctx := context.Background()
	plants, _ := newPlants(t)
	locker := form.NewMemoryLocker()
	values := map[string]string{"name": "Fern"}

	first := form.NewController[plant](plantSchema, plants).WithValues(values).WithInstanceLock(locker, "instance-1", time.Minute)
	require.NoError(t, first.Submit(ctx))

	replay := form.NewController[plant](plantSchema, plants).WithValues(values).WithInstanceLock(locker, "instance-1", time.Minute)
	assert.ErrorIs(t, replay.Submit(ctx), form.ErrSubmitInProgress)
	assert.Equal(t, form.MsgAlreadySubmitted, replay.Message())

	total, err := plants.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

/*
TestSubmit_InstanceLockReleasedOnFailure lets the admin retry after a remote error.
*/
func TestSubmit_InstanceLockReleasedOnFailure(t *testing.T) {
	ctx := context.Background()
	plants, data := newPlants(t)
	locker := form.NewMemoryLocker()

	data.FailWith("plants", errors.New("timeout"))
	failed := form.NewController[plant](plantSchema, plants).WithValues(map[string]string{"name": "Fern"}).WithInstanceLock(locker, "instance-2", time.Minute)
	require.Error(t, failed.Submit(ctx))

	data.FailWith("plants", nil)
	retry := form.NewController[plant](plantSchema, plants).WithValues(map[string]string{"name": "Fern"}).WithInstanceLock(locker, "instance-2", time.Minute)
	assert.NoError(t, retry.Submit(ctx))
}

/*
TestSubmit_WithIdentitySwitchesToUpdate turns the first insert into later updates.
*/
func TestSubmit_WithIdentitySwitchesToUpdate(t *testing.T) {
	ctx := context.Background()
	plants, _ := newPlants(t)

	controller := form.NewController[plant](plantSchema, plants).
		WithValues(map[string]string{"name": "Fern"}).
		WithIdentity(func(p plant) string { return p.ID })

	require.NoError(t, controller.Submit(ctx))
	require.NotEmpty(t, controller.ID())

	controller.Set("name", "Maidenhair Fern")
	require.NoError(t, controller.Submit(ctx))

	items, err := plants.List(ctx, repository.ListOptions{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Maidenhair Fern", items[0].Name)
}

/*
TestAttach_UploadsIntoAssetField fills and clears the image address.
*/
func TestAttach_UploadsIntoAssetField(t *testing.T) {
	ctx := context.Background()
	plants, _ := newPlants(t)
	storage := memory.NewStorage("/storage")
	adapter := upload.New(storage, upload.Options{Bucket: "plants"})

	controller := form.NewController[plant](plantSchema, plants).WithUploader(adapter)
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

	require.NoError(t, controller.Attach(ctx, upload.File{Name: "fern.png", Body: bytes.NewReader(png)}))
	assert.Contains(t, controller.Value("image_url"), "/storage/plants/fern-")

	controller.ClearAsset()
	assert.Empty(t, controller.Value("image_url"))

	storage.FailWith(errors.New("access denied"))
	require.Error(t, controller.Attach(ctx, upload.File{Name: "fern.png", Body: bytes.NewReader(png)}))
	assert.Equal(t, "Error uploading image: access denied", controller.Message())
	assert.Equal(t, form.Editing, controller.Status())
}
