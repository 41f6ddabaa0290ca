package schema

// BlogsTable represents the 'blogs' table
type BlogsTable struct {
	Table     string
	ID        string
	Title     string
	Content   string
	BannerURL string
	CreatedAt string
}

var Blogs = BlogsTable{
	Table:     "blogs",
	ID:        "id",
	Title:     "title",
	Content:   "content",
	BannerURL: "banner_url",
	CreatedAt: "created_at",
}

func (t BlogsTable) Columns() []string {
	return []string{t.ID, t.Title, t.Content, t.BannerURL, t.CreatedAt}
}
