// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package web

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/taibuivan/mknursery/internal/blog"
	"github.com/taibuivan/mknursery/internal/catalog"
	"github.com/taibuivan/mknursery/internal/contact"
	"github.com/taibuivan/mknursery/internal/platform/apperr"
	"github.com/taibuivan/mknursery/internal/platform/ctxutil"
	requestutil "github.com/taibuivan/mknursery/internal/platform/request"
	"github.com/taibuivan/mknursery/internal/testimonial"
)

// # Home

type slide struct {
	Item   testimonial.Testimonial
	Slider testimonial.Slider

	// AutoplayMillis drives the page script that advances to Slider.Next.
	AutoplayMillis int64
}

type homeData struct {
	Featured      []catalog.Plant
	FeaturedError string
	Testimonial   *slide
}

// home shows the newest plants and one testimonial; ?t=N selects the slide.
func (server *Server) home(writer http.ResponseWriter, request *http.Request) {
	ctx := request.Context()
	data := homeData{}

	featured, err := server.catalog.Featured(ctx)
	if err != nil {
		ctxutil.GetLogger(ctx).WarnContext(ctx, "featured_fetch_failed", slog.Any("error", err))
		data.FeaturedError = apperr.PublicMessage(err)
	}
	data.Featured = featured

	testimonials, err := server.testimonials.All(ctx)
	if err != nil {
		ctxutil.GetLogger(ctx).WarnContext(ctx, "testimonials_fetch_failed", slog.Any("error", err))
	}
	start, _ := strconv.Atoi(request.URL.Query().Get("t"))
	slider := testimonial.NewSlider(len(testimonials), start)
	if !slider.Empty() {
		data.Testimonial = &slide{
			Item:           testimonials[slider.Index()],
			Slider:         slider,
			AutoplayMillis: testimonial.AutoplayInterval.Milliseconds(),
		}
	}

	server.render(writer, request, http.StatusOK, "pages/home.html", page{
		Description: "Healthy indoor and garden plants, care guides and friendly advice.",
		Data:        data,
	})
}

// # Catalog

type catalogData struct {
	Plants []catalog.Plant
	Error  string
}

func (server *Server) catalogPage(writer http.ResponseWriter, request *http.Request) {
	ctx := request.Context()
	plants, err := server.catalog.Catalog(ctx)
	data := catalogData{Plants: plants}
	if err != nil {
		ctxutil.GetLogger(ctx).WarnContext(ctx, "catalog_fetch_failed", slog.Any("error", err))
		data.Error = apperr.PublicMessage(err)
	}
	server.render(writer, request, http.StatusOK, "pages/catalog.html", page{
		Title:       "Catalog",
		Description: "Browse every plant we grow.",
		Data:        data,
	})
}

type plantData struct {
	Plant catalog.Plant
}

// plantPage issues exactly one read; a missing plant ends on the not-found page.
func (server *Server) plantPage(writer http.ResponseWriter, request *http.Request) {
	ctx := request.Context()
	plant, err := server.catalog.Plant(ctx, requestutil.Param(request, "id"))
	if err != nil {
		if apperr.IsNotFound(err) {
			server.notFound(writer, request, apperr.PublicMessage(err), "/catalog", "Back to catalog")
			return
		}
		ctxutil.GetLogger(ctx).WarnContext(ctx, "plant_fetch_failed", slog.Any("error", err))
		server.failure(writer, request, http.StatusBadGateway, apperr.PublicMessage(err))
		return
	}

	server.render(writer, request, http.StatusOK, "pages/plant.html", page{
		Title:       plant.Title(),
		Description: plant.MetaDescription(),
		Image:       plant.Image(),
		Data:        plantData{Plant: plant},
	})
}

// # Blog

type blogsData struct {
	Posts []blog.Post
	Error string
}

func (server *Server) blogsPage(writer http.ResponseWriter, request *http.Request) {
	ctx := request.Context()
	posts, err := server.blog.Posts(ctx)
	data := blogsData{Posts: posts}
	if err != nil {
		ctxutil.GetLogger(ctx).WarnContext(ctx, "blogs_fetch_failed", slog.Any("error", err))
		data.Error = apperr.PublicMessage(err)
	}
	server.render(writer, request, http.StatusOK, "pages/blogs.html", page{
		Title:       "Blog",
		Description: "Plant care tips and nursery news.",
		Data:        data,
	})
}

type postData struct {
	Post blog.Post
}

func (server *Server) postPage(writer http.ResponseWriter, request *http.Request) {
	ctx := request.Context()
	post, err := server.blog.Post(ctx, requestutil.Param(request, "id"))
	if err != nil {
		if apperr.IsNotFound(err) {
			server.notFound(writer, request, apperr.PublicMessage(err), "/blogs", "Back to blog")
			return
		}
		ctxutil.GetLogger(ctx).WarnContext(ctx, "post_fetch_failed", slog.Any("error", err))
		server.failure(writer, request, http.StatusBadGateway, apperr.PublicMessage(err))
		return
	}

	server.render(writer, request, http.StatusOK, "pages/post.html", page{
		Title:       post.Title,
		Description: post.Excerpt(),
		Image:       post.Banner(),
		Data:        postData{Post: post},
	})
}

// # Contact

type contactData struct {
	contact.State
	SentTitle string
	SentBody  string
}

func (server *Server) renderContact(writer http.ResponseWriter, request *http.Request, status int, state contact.State) {
	server.render(writer, request, status, "pages/contact.html", page{
		Title:       "Contact",
		Description: "Get in touch with the nursery.",
		Data:        contactData{State: state, SentTitle: contact.MsgSentTitle, SentBody: contact.MsgSentBody},
	})
}

func (server *Server) contactPage(writer http.ResponseWriter, request *http.Request) {
	server.renderContact(writer, request, http.StatusOK, contact.Empty())
}

func (server *Server) contactSubmit(writer http.ResponseWriter, request *http.Request) {
	if err := requestutil.ParseForm(request); err != nil {
		server.renderContact(writer, request, http.StatusBadRequest, contact.Empty())
		return
	}

	message := contact.FromValues(requestutil.FormValues(request, contact.Fields...))
	state := contact.Submit(request.Context(), message)

	status := http.StatusOK
	if !state.Submitted {
		status = http.StatusUnprocessableEntity
	}
	server.renderContact(writer, request, status, state)
}

// contactReset leaves the confirmation for a fresh form.
func (server *Server) contactReset(writer http.ResponseWriter, request *http.Request) {
	http.Redirect(writer, request, "/contact", http.StatusSeeOther)
}
