// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package catalog implements the plant catalog: the entity, its admin form
// and the storefront reads.
package catalog

import (
	"strconv"
	"strings"
	"time"

	"github.com/taibuivan/mknursery/internal/form"
	"github.com/taibuivan/mknursery/internal/platform/database/schema"
	"github.com/taibuivan/mknursery/pkg/pointer"
)

// Resource names a plant in messages ("Plant not found").
const Resource = "Plant"

// LimitedStock is the highest stock still flagged as limited.
const LimitedStock = 5

// Plant is one catalog entry.
type Plant struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	Price          *float64  `json:"price"`
	Stock          int       `json:"stock"`
	ImageURL       *string   `json:"image_url"`
	SEOTitle       string    `json:"seo_title"`
	SEODescription string    `json:"seo_description"`
	SEOImageAlt    string    `json:"seo_image_alt"`
	CreatedAt      time.Time `json:"created_at"`
}

// Identity returns the plant id.
func Identity(plant Plant) string { return plant.ID }

// Schema is the admin form of a plant.
var Schema = form.Schema{
	Resource: Resource,
	Fields: []form.Field{
		{Name: schema.Plants.Name, Label: "Plant Name", Kind: form.Text, Required: true},
		{Name: schema.Plants.Description, Label: "Description", Kind: form.Text, Multiline: true},
		{Name: schema.Plants.Price, Label: "Price", Kind: form.Decimal},
		{Name: schema.Plants.Stock, Label: "Stock Quantity", Kind: form.Integer, Fallback: 0, Min: 0},
		{Name: schema.Plants.ImageURL, Label: "Plant Image", Kind: form.Asset},
		{Name: schema.Plants.SEOTitle, Label: "SEO Title", Kind: form.Text},
		{Name: schema.Plants.SEODescription, Label: "Meta Description", Kind: form.Text, Multiline: true},
		{Name: schema.Plants.SEOImageAlt, Label: "Image Alt Text", Kind: form.Text},
	},
	Upload: &form.UploadTarget{Field: schema.Plants.ImageURL},
}

// FormValues renders the plant back into form text.
// A zero price shows as empty, like an unset one.
func (plant Plant) FormValues() map[string]string {
	price := ""
	if plant.Price != nil && *plant.Price != 0 {
		price = strconv.FormatFloat(*plant.Price, 'f', -1, 64)
	}
	return map[string]string{
		schema.Plants.Name:           plant.Name,
		schema.Plants.Description:    plant.Description,
		schema.Plants.Price:          price,
		schema.Plants.Stock:          strconv.Itoa(plant.Stock),
		schema.Plants.ImageURL:       pointer.Val(plant.ImageURL),
		schema.Plants.SEOTitle:       plant.SEOTitle,
		schema.Plants.SEODescription: plant.SEODescription,
		schema.Plants.SEOImageAlt:    plant.SEOImageAlt,
	}
}

// # Presentation

// Category is derived from the plant name.
func (plant Plant) Category() string {
	name := strings.ToLower(plant.Name)
	switch {
	case containsAny(name, "succulent", "aloe", "cactus"):
		return "Low Maintenance"
	case containsAny(name, "fern", "orchid"):
		return "Moderate Care"
	default:
		return "Indoor"
	}
}

// InStock reports whether the plant can be bought.
func (plant Plant) InStock() bool { return plant.Stock > 0 }

// StockBadge is the catalog card flag: "Out of Stock", "Limited Stock" or "".
func (plant Plant) StockBadge() string {
	switch {
	case plant.Stock <= 0:
		return "Out of Stock"
	case plant.Stock <= LimitedStock:
		return "Limited Stock"
	default:
		return ""
	}
}

// Availability is the detail page stock line.
func (plant Plant) Availability() string {
	if plant.InStock() {
		return "In Stock (" + strconv.Itoa(plant.Stock) + ")"
	}
	return "Out of Stock"
}

// CurrencySymbol prefixes every price on the storefront.
const CurrencySymbol = "$"

// PriceLabel shows the price, or asks to get in touch when there is none.
// Cards and the detail page share it, so both show the same currency.
func (plant Plant) PriceLabel() string {
	if plant.Price == nil || *plant.Price == 0 {
		return "Contact for Price"
	}
	return CurrencySymbol + strconv.FormatFloat(*plant.Price, 'f', -1, 64)
}

// Image returns the image address or "".
func (plant Plant) Image() string { return pointer.Val(plant.ImageURL) }

// Title is the page title, defaulting to the plant name.
func (plant Plant) Title() string {
	return fallback(plant.SEOTitle, plant.Name)
}

// MetaDescription defaults to the description.
func (plant Plant) MetaDescription() string {
	return fallback(plant.SEODescription, plant.Description)
}

// ImageAlt defaults to the plant name.
func (plant Plant) ImageAlt() string {
	return fallback(plant.SEOImageAlt, plant.Name)
}

// DescriptionOrDefault never leaves the detail page blank.
func (plant Plant) DescriptionOrDefault() string {
	return fallback(plant.Description, "No description available for this plant.")
}

func fallback(value, otherwise string) string {
	if strings.TrimSpace(value) == "" {
		return otherwise
	}
	return value
}

func containsAny(s string, keywords ...string) bool {
	for _, keyword := range keywords {
		if strings.Contains(s, keyword) {
			return true
		}
	}
	return false
}
