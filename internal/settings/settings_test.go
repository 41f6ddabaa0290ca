// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package settings_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/mknursery/internal/backend/memory"
	"github.com/taibuivan/mknursery/internal/form"
	"github.com/taibuivan/mknursery/internal/settings"
)

func newService(t *testing.T) (*settings.Service, *memory.Data) {
	t.Helper()
	data := memory.NewData()
	return settings.NewService(settings.NewRepository(data, time.Second)), data
}

/*
TestCurrent_Defaults covers the empty table and a failing backend.
*/
func TestCurrent_Defaults(t *testing.T) {
	ctx := context.Background()
	service, data := newService(t)

	assert.Equal(t, settings.Defaults(), service.Current(ctx))

	data.FailWith("settings", errors.New("connection refused"))
	assert.Equal(t, "MK Nursery", service.Current(ctx).SiteName)
}

/*
TestCurrent_CallerGone still reads the stored row when the request that
started the shared read has already ended.
*/
func TestCurrent_CallerGone(t *testing.T) {
	service, data := newService(t)

	_, err := data.Insert(context.Background(), "settings", map[string]any{"site_name": "Green Corner"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Equal(t, "Green Corner", service.Current(ctx).SiteName)
}

/*
TestSave_InsertThenUpdate saves the singleton twice through the admin form.
*/
func TestSave_InsertThenUpdate(t *testing.T) {
	ctx := context.Background()
	service, data := newService(t)

	loaded, err := service.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded.ID)

	values := loaded.FormValues()
	values["site_name"] = "Green Corner"
	values["business_hours.sunday"] = "Closed"

	controller := form.NewController[settings.Settings](settings.Schema, service.Repository()).
		WithValues(values).
		WithIdentity(settings.Identity)
	require.NoError(t, controller.Submit(ctx))
	firstID := controller.ID()

	current := service.Current(ctx)
	assert.Equal(t, "Green Corner", current.SiteName)
	assert.Equal(t, "Closed", current.BusinessHours.Sunday)
	assert.Equal(t, "9:00 AM - 6:00 PM", current.BusinessHours.MondayFriday)

	loaded, err = service.Load(ctx)
	require.NoError(t, err)
	values = loaded.FormValues()
	values["phone"] = ""

	controller = form.NewController[settings.Settings](settings.Schema, service.Repository()).
		WithID(loaded.ID).
		WithValues(values)
	require.NoError(t, controller.Submit(ctx))

	total, err := data.Count(ctx, "settings")
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, firstID, loaded.ID)

	// The storefront falls back per field.
	assert.Equal(t, "(555) 123-4567", service.Current(ctx).Phone)
}

/*
TestErrorMessage prefixes the backend message.
*/
func TestErrorMessage(t *testing.T) {
	service, data := newService(t)
	data.FailWith("settings", errors.New("permission denied"))

	controller := form.NewController[settings.Settings](settings.Schema, service.Repository()).
		WithValues(settings.Defaults().FormValues())
	err := controller.Submit(context.Background())

	require.Error(t, err)
	assert.Equal(t, "Error updating settings: permission denied", settings.ErrorMessage(err))
}
