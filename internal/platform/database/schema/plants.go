package schema

// PlantsTable represents the 'plants' table
type PlantsTable struct {
	Table          string
	ID             string
	Name           string
	Description    string
	Price          string
	Stock          string
	ImageURL       string
	SEOTitle       string
	SEODescription string
	SEOImageAlt    string
	CreatedAt      string
}

var Plants = PlantsTable{
	Table:          "plants",
	ID:             "id",
	Name:           "name",
	Description:    "description",
	Price:          "price",
	Stock:          "stock",
	ImageURL:       "image_url",
	SEOTitle:       "seo_title",
	SEODescription: "seo_description",
	SEOImageAlt:    "seo_image_alt",
	CreatedAt:      "created_at",
}

func (t PlantsTable) Columns() []string {
	return []string{t.ID, t.Name, t.Description, t.Price, t.Stock, t.ImageURL, t.SEOTitle, t.SEODescription, t.SEOImageAlt, t.CreatedAt}
}
