// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package testimonial implements customer testimonials and the home page slider.
package testimonial

import (
	"context"
	"strconv"
	"time"

	"github.com/taibuivan/mknursery/internal/backend"
	"github.com/taibuivan/mknursery/internal/form"
	"github.com/taibuivan/mknursery/internal/platform/database/schema"
	"github.com/taibuivan/mknursery/internal/repository"
	"github.com/taibuivan/mknursery/pkg/pointer"
)

const (
	Resource      = "Testimonial"
	UploadPrefix  = "testimonial-"
	DefaultRating = 5
	MinRating     = 1
	MaxRating     = 5
)

// Testimonial is one customer quote.
type Testimonial struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Location  string    `json:"location"`
	Rating    int       `json:"rating"`
	Text      string    `json:"text"`
	AvatarURL *string   `json:"avatar_url"`
	CreatedAt time.Time `json:"created_at"`
}

// Identity returns the testimonial id.
func Identity(testimonial Testimonial) string { return testimonial.ID }

// Schema is the admin form of a testimonial.
var Schema = form.Schema{
	Resource: Resource,
	Fields: []form.Field{
		{Name: schema.Testimonials.Name, Label: "Name", Kind: form.Text, Required: true},
		{Name: schema.Testimonials.Location, Label: "Location", Kind: form.Text},
		{Name: schema.Testimonials.Rating, Label: "Rating", Kind: form.Integer, Fallback: DefaultRating, Min: MinRating, Max: MaxRating},
		{Name: schema.Testimonials.Text, Label: "Testimonial", Kind: form.Text, Required: true, Multiline: true},
		{Name: schema.Testimonials.AvatarURL, Label: "Avatar", Kind: form.Asset},
	},
	Upload: &form.UploadTarget{Field: schema.Testimonials.AvatarURL, Prefix: UploadPrefix},
}

// FormValues renders the testimonial back into form text.
func (testimonial Testimonial) FormValues() map[string]string {
	return map[string]string{
		schema.Testimonials.Name:      testimonial.Name,
		schema.Testimonials.Location:  testimonial.Location,
		schema.Testimonials.Rating:    strconv.Itoa(testimonial.Stars()),
		schema.Testimonials.Text:      testimonial.Text,
		schema.Testimonials.AvatarURL: pointer.Val(testimonial.AvatarURL),
	}
}

// Stars is the rating to display; an unset rating counts as five.
func (testimonial Testimonial) Stars() int {
	if testimonial.Rating <= 0 {
		return DefaultRating
	}
	return min(testimonial.Rating, MaxRating)
}

// StarList has one entry per star, for ranging over in templates.
func (testimonial Testimonial) StarList() []struct{} {
	return make([]struct{}, testimonial.Stars())
}

// Avatar returns the avatar address or "".
func (testimonial Testimonial) Avatar() string { return pointer.Val(testimonial.AvatarURL) }

// # Service

// NewRepository binds a testimonial repository to the data provider.
func NewRepository(data backend.Data, timeout time.Duration) *repository.Repository[Testimonial] {
	return repository.New[Testimonial](data, schema.Testimonials.Table, Resource, timeout)
}

// Service reads testimonials for the storefront.
type Service struct {
	testimonials *repository.Repository[Testimonial]
}

func NewService(testimonials *repository.Repository[Testimonial]) *Service {
	return &Service{testimonials: testimonials}
}

// All returns every testimonial, newest first.
func (service *Service) All(context context.Context) ([]Testimonial, error) {
	return service.testimonials.List(context, repository.Newest(0))
}
