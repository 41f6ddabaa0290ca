// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package blog implements blog posts: the entity, its admin form and the
// storefront reads.
package blog

import (
	"context"
	"html"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/taibuivan/mknursery/internal/backend"
	"github.com/taibuivan/mknursery/internal/form"
	"github.com/taibuivan/mknursery/internal/platform/database/schema"
	"github.com/taibuivan/mknursery/internal/repository"
	"github.com/taibuivan/mknursery/pkg/pointer"
)

// Resource names a post in messages ("Article not found").
const Resource = "Article"

// ExcerptLength is how many characters of content the blog list shows.
const ExcerptLength = 150

// UploadPrefix starts the key of every banner image.
const UploadPrefix = "blog-"

// plainText strips every tag. bluemonday policies are safe for concurrent use.
var plainText = bluemonday.StrictPolicy()

// Post is one blog article.
type Post struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	BannerURL *string   `json:"banner_url"`
	CreatedAt time.Time `json:"created_at"`
}

// Identity returns the post id.
func Identity(post Post) string { return post.ID }

// Schema is the admin form of a post.
var Schema = form.Schema{
	Resource: Resource,
	Fields: []form.Field{
		{Name: schema.Blogs.Title, Label: "Title", Kind: form.Text, Required: true},
		{Name: schema.Blogs.Content, Label: "Content", Kind: form.Text, Required: true, Multiline: true},
		{Name: schema.Blogs.BannerURL, Label: "Banner Image", Kind: form.Asset},
	},
	Upload: &form.UploadTarget{Field: schema.Blogs.BannerURL, Prefix: UploadPrefix},
}

// FormValues renders the post back into form text.
func (post Post) FormValues() map[string]string {
	return map[string]string{
		schema.Blogs.Title:     post.Title,
		schema.Blogs.Content:   post.Content,
		schema.Blogs.BannerURL: pointer.Val(post.BannerURL),
	}
}

// Banner returns the banner address or "".
func (post Post) Banner() string { return pointer.Val(post.BannerURL) }

// Date is the publication date as shown on pages.
func (post Post) Date() string {
	if post.CreatedAt.IsZero() {
		return ""
	}
	return post.CreatedAt.Format("January 2, 2006")
}

// Excerpt is the first [ExcerptLength] characters of the plain-text content, followed by "...".
func (post Post) Excerpt() string {
	text := html.UnescapeString(plainText.Sanitize(post.Content))
	runes := []rune(text)
	if len(runes) > ExcerptLength {
		runes = runes[:ExcerptLength]
	}
	return string(runes) + "..."
}

// Paragraph is one line of content. Empty lines render as breaks.
type Paragraph struct {
	Text  string
	Break bool
}

// Paragraphs splits the content on newlines.
func (post Post) Paragraphs() []Paragraph {
	lines := strings.Split(strings.ReplaceAll(post.Content, "\r\n", "\n"), "\n")
	paragraphs := make([]Paragraph, len(lines))
	for i, line := range lines {
		paragraphs[i] = Paragraph{Text: line, Break: line == ""}
	}
	return paragraphs
}

// # Service

// NewRepository binds a post repository to the data provider.
func NewRepository(data backend.Data, timeout time.Duration) *repository.Repository[Post] {
	return repository.New[Post](data, schema.Blogs.Table, Resource, timeout)
}

// Service is the storefront's read side of the blog.
type Service struct {
	posts *repository.Repository[Post]
}

func NewService(posts *repository.Repository[Post]) *Service {
	return &Service{posts: posts}
}

// Posts returns every post, newest first.
func (service *Service) Posts(context context.Context) ([]Post, error) {
	return service.posts.List(context, repository.Newest(0))
}

// Post returns one post or "Article not found".
func (service *Service) Post(context context.Context, id string) (Post, error) {
	return service.posts.Get(context, id)
}
