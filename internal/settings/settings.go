// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package settings holds the single row of business details shown in the
// site footer, the contact page and the admin settings form.
package settings

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/taibuivan/mknursery/internal/backend"
	"github.com/taibuivan/mknursery/internal/form"
	"github.com/taibuivan/mknursery/internal/platform/apperr"
	"github.com/taibuivan/mknursery/internal/platform/ctxutil"
	"github.com/taibuivan/mknursery/internal/platform/database/schema"
	"github.com/taibuivan/mknursery/internal/repository"
)

const (
	Resource = "Settings"

	MsgSaved = "Settings updated successfully!"
)

// BusinessHours are free-text opening times per day group.
type BusinessHours struct {
	MondayFriday string `json:"monday_friday"`
	Saturday     string `json:"saturday"`
	Sunday       string `json:"sunday"`
}

// Settings is the site-wide business profile. An empty ID means no row exists yet.
type Settings struct {
	ID            string        `json:"id"`
	SiteName      string        `json:"site_name"`
	Address       string        `json:"address"`
	Phone         string        `json:"phone"`
	Email         string        `json:"email"`
	BusinessHours BusinessHours `json:"business_hours"`
}

// Defaults is what the storefront shows before an admin saves anything.
func Defaults() Settings {
	return Settings{
		SiteName: "MK Nursery",
		Address:  "123 Green Street, Plant City, PC 12345",
		Phone:    "(555) 123-4567",
		Email:    "hello@mknursery.com",
		BusinessHours: BusinessHours{
			MondayFriday: "9:00 AM - 6:00 PM",
			Saturday:     "8:00 AM - 5:00 PM",
			Sunday:       "10:00 AM - 4:00 PM",
		},
	}
}

// WithDefaults fills every empty field from [Defaults].
func (settings Settings) WithDefaults() Settings {
	defaults := Defaults()
	fill := func(value *string, fallback string) {
		if *value == "" {
			*value = fallback
		}
	}
	fill(&settings.SiteName, defaults.SiteName)
	fill(&settings.Address, defaults.Address)
	fill(&settings.Phone, defaults.Phone)
	fill(&settings.Email, defaults.Email)
	fill(&settings.BusinessHours.MondayFriday, defaults.BusinessHours.MondayFriday)
	fill(&settings.BusinessHours.Saturday, defaults.BusinessHours.Saturday)
	fill(&settings.BusinessHours.Sunday, defaults.BusinessHours.Sunday)
	return settings
}

// Identity returns the settings row id.
func Identity(settings Settings) string { return settings.ID }

var (
	fieldMondayFriday = schema.Settings.BusinessHours + ".monday_friday"
	fieldSaturday     = schema.Settings.BusinessHours + ".saturday"
	fieldSunday       = schema.Settings.BusinessHours + ".sunday"
)

// Schema is the admin settings form.
var Schema = form.Schema{
	Resource: Resource,
	Fields: []form.Field{
		{Name: schema.Settings.SiteName, Label: "Site Name", Kind: form.Text},
		{Name: schema.Settings.Address, Label: "Address", Kind: form.Text},
		{Name: schema.Settings.Phone, Label: "Phone", Kind: form.Text},
		{Name: schema.Settings.Email, Label: "Email", Kind: form.Text},
		{Name: fieldMondayFriday, Label: "Monday - Friday", Kind: form.Text},
		{Name: fieldSaturday, Label: "Saturday", Kind: form.Text},
		{Name: fieldSunday, Label: "Sunday", Kind: form.Text},
	},
}

// FormValues renders the settings back into form text.
func (settings Settings) FormValues() map[string]string {
	return map[string]string{
		schema.Settings.SiteName: settings.SiteName,
		schema.Settings.Address:  settings.Address,
		schema.Settings.Phone:    settings.Phone,
		schema.Settings.Email:    settings.Email,
		fieldMondayFriday:        settings.BusinessHours.MondayFriday,
		fieldSaturday:            settings.BusinessHours.Saturday,
		fieldSunday:              settings.BusinessHours.Sunday,
	}
}

// ErrorMessage is the admin banner for a failed save.
func ErrorMessage(err error) string {
	return "Error updating settings: " + apperr.Message(err)
}

// # Service

// NewRepository binds the settings repository to the data provider.
func NewRepository(data backend.Data, timeout time.Duration) *repository.Repository[Settings] {
	return repository.New[Settings](data, schema.Settings.Table, Resource, timeout)
}

// Service reads the singleton row.
type Service struct {
	settings *repository.Repository[Settings]
	group    singleflight.Group
}

func NewService(settings *repository.Repository[Settings]) *Service {
	return &Service{settings: settings}
}

// Repository exposes the underlying repository for the admin form.
func (service *Service) Repository() *repository.Repository[Settings] {
	return service.settings
}

/*
Current returns the settings every storefront page renders.

Concurrent callers share one read. It runs detached from the caller that
started it, bounded by the repository timeout, so a client that goes away does
not hand the defaults to everyone waiting on the same read. A missing row or a
failed read yields [Defaults]; the storefront never fails because of settings.
*/
func (service *Service) Current(ctx context.Context) Settings {
	value, _, _ := service.group.Do("current", func() (any, error) {
		ctx := context.WithoutCancel(ctx)
		current, err := service.settings.First(ctx)
		if err != nil {
			if !apperr.IsNotFound(err) {
				ctxutil.GetLogger(ctx).WarnContext(ctx, "settings_fetch_failed", slog.Any("error", err))
			}
			return Defaults(), nil
		}
		return current.WithDefaults(), nil
	})
	return value.(Settings)
}

// Load returns the stored row for the admin form. A missing row yields the
// defaults with an empty ID, so the first save inserts.
func (service *Service) Load(ctx context.Context) (Settings, error) {
	current, err := service.settings.First(ctx)
	if apperr.IsNotFound(err) {
		return Defaults(), nil
	}
	return current, err
}
