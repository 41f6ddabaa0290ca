package schema

// TestimonialsTable represents the 'testimonials' table
type TestimonialsTable struct {
	Table     string
	ID        string
	Name      string
	Location  string
	Rating    string
	Text      string
	AvatarURL string
	CreatedAt string
}

var Testimonials = TestimonialsTable{
	Table:     "testimonials",
	ID:        "id",
	Name:      "name",
	Location:  "location",
	Rating:    "rating",
	Text:      "text",
	AvatarURL: "avatar_url",
	CreatedAt: "created_at",
}

func (t TestimonialsTable) Columns() []string {
	return []string{t.ID, t.Name, t.Location, t.Rating, t.Text, t.AvatarURL, t.CreatedAt}
}
