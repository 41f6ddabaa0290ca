// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package web renders the storefront and the admin panel as server-side HTML.

Pages are html/template sets parsed from the embedded templates: base.html
plus one page file. Every public page reads the site settings; every admin page
sits behind the session guard and reads its list afresh on each render.
*/
package web

import (
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/mknursery/internal/backend"
	"github.com/taibuivan/mknursery/internal/blog"
	"github.com/taibuivan/mknursery/internal/catalog"
	"github.com/taibuivan/mknursery/internal/dashboard"
	"github.com/taibuivan/mknursery/internal/form"
	"github.com/taibuivan/mknursery/internal/platform/constants"
	"github.com/taibuivan/mknursery/internal/platform/ctxutil"
	"github.com/taibuivan/mknursery/internal/session"
	"github.com/taibuivan/mknursery/internal/settings"
	"github.com/taibuivan/mknursery/internal/testimonial"
	"github.com/taibuivan/mknursery/internal/upload"
	"github.com/taibuivan/mknursery/internal/web/templates"
)

// # Dependencies

// Recorder collects the form and upload outcomes for metrics.
type Recorder interface {
	form.MutationRecorder
	upload.Recorder
}

// Options wires a [Server]. Auth, Data, Storage and Guard are required.
type Options struct {
	Auth    backend.Auth
	Data    backend.Data
	Storage backend.Storage
	Guard   *session.Guard
	Cookies session.Cookies

	// Recovery carries the short-lived session of a password reset link.
	Recovery session.Cookies

	// Locker rejects a second submission of the same rendered form.
	Locker form.Locker

	Recorder Recorder

	// PublicURL is the origin reset links point back to.
	PublicURL string

	Bucket         string
	UploadMaxBytes int64
	Timeout        time.Duration

	// LoginLimiter throttles credential attempts. Optional.
	LoginLimiter func(http.Handler) http.Handler

	Logger *slog.Logger
}

// Server holds the page renderers and the domain services behind them.
type Server struct {
	options Options
	pages   map[string]*template.Template
	logger  *slog.Logger

	catalog      *catalog.Service
	blog         *blog.Service
	testimonials *testimonial.Service
	settings     *settings.Service
	dashboard    *dashboard.Service

	admins []adminRoutes
}

// NewServer parses every page and binds the services to the data provider.
func NewServer(options Options) (*Server, error) {
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if options.Locker == nil {
		options.Locker = form.NewMemoryLocker()
	}
	if options.Recovery.Name == "" {
		options.Recovery = session.Cookies{Name: constants.RecoveryCookieName, Secure: options.Cookies.Secure}
	}

	pages, err := parsePages(templates.FS)
	if err != nil {
		return nil, err
	}

	plants := catalog.NewRepository(options.Data, options.Timeout)
	posts := blog.NewRepository(options.Data, options.Timeout)
	testimonials := testimonial.NewRepository(options.Data, options.Timeout)
	settingsRepository := settings.NewRepository(options.Data, options.Timeout)

	server := &Server{
		options:      options,
		pages:        pages,
		logger:       logger,
		catalog:      catalog.NewService(plants),
		blog:         blog.NewService(posts),
		testimonials: testimonial.NewService(testimonials),
		settings:     settings.NewService(settingsRepository),
		dashboard:    dashboard.NewService(plants, posts, testimonials),
	}

	server.admins = []adminRoutes{
		&entityAdmin[catalog.Plant]{
			server: server, kind: "plants", title: "Plants",
			repository: plants, schema: catalog.Schema, identity: catalog.Identity,
			values:  catalog.Plant.FormValues,
			label:   func(plant catalog.Plant) string { return plant.Name },
			columns: []string{"Name", "Price", "Stock", "Category"},
			cells: func(plant catalog.Plant) []string {
				return []string{plant.Name, plant.PriceLabel(), fmt.Sprint(plant.Stock), plant.Category()}
			},
		},
		&entityAdmin[blog.Post]{
			server: server, kind: "blogs", title: "Blog Posts",
			repository: posts, schema: blog.Schema, identity: blog.Identity,
			values:  blog.Post.FormValues,
			label:   func(post blog.Post) string { return post.Title },
			columns: []string{"Title", "Published"},
			cells: func(post blog.Post) []string {
				return []string{post.Title, post.Date()}
			},
		},
		&entityAdmin[testimonial.Testimonial]{
			server: server, kind: "testimonials", title: "Testimonials",
			repository: testimonials, schema: testimonial.Schema, identity: testimonial.Identity,
			values:  testimonial.Testimonial.FormValues,
			label:   func(item testimonial.Testimonial) string { return item.Name },
			columns: []string{"Name", "Location", "Rating"},
			cells: func(item testimonial.Testimonial) []string {
				return []string{item.Name, item.Location, fmt.Sprintf("%d / 5", item.Stars())}
			},
		},
	}
	return server, nil
}

// # Routing

// Routes returns the storefront, the auth pages and the guarded admin panel.
// The admin session stream is served by the guard itself and mounted by the caller.
func (server *Server) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", server.home)
	r.Get("/catalog", server.catalogPage)
	r.Get("/catalog/{id}", server.plantPage)
	r.Get("/blogs", server.blogsPage)
	r.Get("/blogs/{id}", server.postPage)
	r.Get("/contact", server.contactPage)
	r.Post("/contact", server.contactSubmit)
	r.Post("/contact/reset", server.contactReset)

	r.Get("/login", server.loginPage)
	r.With(server.loginLimiter()).Post("/login", server.login)
	r.Post("/logout", server.logout)
	r.Get("/forgot-password", server.forgotPage)
	r.With(server.loginLimiter()).Post("/forgot-password", server.forgot)
	r.Get("/reset-password", server.resetPage)
	r.Post("/reset-password", server.reset)

	r.Route("/admin", func(admin chi.Router) {
		admin.Use(server.options.Guard.Protect)
		admin.Get("/", func(writer http.ResponseWriter, request *http.Request) {
			http.Redirect(writer, request, "/admin/dashboard", http.StatusSeeOther)
		})
		admin.Get("/dashboard", server.dashboardPage)
		admin.Get("/settings", server.settingsPage)
		admin.Post("/settings", server.settingsSubmit)
		for _, routes := range server.admins {
			routes.mount(admin)
		}
	})

	r.NotFound(func(writer http.ResponseWriter, request *http.Request) {
		server.notFound(writer, request, "Page not found", "/", "Return home")
	})
	return r
}

func (server *Server) loginLimiter() func(http.Handler) http.Handler {
	if server.options.LoginLimiter != nil {
		return server.options.LoginLimiter
	}
	return func(next http.Handler) http.Handler { return next }
}

// # Rendering

// page is the data every template receives.
type page struct {
	Title       string
	Description string
	Image       string
	Site        settings.Settings
	CSRF        string
	Admin       bool
	Data        any
}

// parsePages builds one template set per page file, each with base.html and the partials.
func parsePages(files fs.FS) (map[string]*template.Template, error) {
	names, err := fs.Glob(files, "pages/*.html")
	if err != nil {
		return nil, err
	}
	adminNames, err := fs.Glob(files, "admin/*.html")
	if err != nil {
		return nil, err
	}

	pages := make(map[string]*template.Template, len(names)+len(adminNames))
	for _, name := range append(names, adminNames...) {
		tmpl, err := template.New("").ParseFS(files, "base.html", "partials/*.html", name)
		if err != nil {
			return nil, fmt.Errorf("web: parse %s: %w", name, err)
		}
		pages[name] = tmpl
	}
	return pages, nil
}

// render writes a full page. Settings and the CSRF token are filled in here.
func (server *Server) render(writer http.ResponseWriter, request *http.Request, status int, name string, data page) {
	ctx := request.Context()
	tmpl, ok := server.pages[name]
	if !ok {
		ctxutil.GetLogger(ctx).ErrorContext(ctx, "template_missing", slog.String("template", name))
		http.Error(writer, "template error", http.StatusInternalServerError)
		return
	}

	data.Site = server.settings.Current(ctx)
	data.CSRF = ctxutil.GetCSRFToken(ctx)

	writer.Header().Set("Content-Type", "text/html; charset=utf-8")
	writer.WriteHeader(status)
	if err := tmpl.ExecuteTemplate(writer, "base", data); err != nil {
		ctxutil.GetLogger(ctx).ErrorContext(ctx, "render_page_failed",
			slog.String("template", name),
			slog.Any("error", err),
		)
	}
}

type notFoundData struct {
	Message   string
	Back      string
	BackLabel string
}

func (server *Server) notFound(writer http.ResponseWriter, request *http.Request, message, back, backLabel string) {
	server.render(writer, request, http.StatusNotFound, "pages/notfound.html", page{
		Title: message,
		Data:  notFoundData{Message: message, Back: back, BackLabel: backLabel},
	})
}

type errorData struct {
	Message string
}

func (server *Server) failure(writer http.ResponseWriter, request *http.Request, status int, message string) {
	server.render(writer, request, status, "pages/error.html", page{
		Title: "Error",
		Data:  errorData{Message: message},
	})
}
