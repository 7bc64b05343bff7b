package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/fieldline/fieldline/app"
	"github.com/fieldline/fieldline/routes/middlewares"
)

func Wire(app app.App) http.Handler {
	root := chi.NewRouter()
	root.Use(middleware.Logger, middleware.Recoverer)

	root.Mount("/api", apiRouter(app))

	root.
		With(middlewares.CookieAuth(app.BearerServer), middlewares.Admin(app.TokenSecret)).
		Mount("/admin", servePrivateFiles("/admin"))
	root.Mount("/", servePublicFiles())

	return root
}

func apiRouter(app app.App) http.Handler {
	api := chi.NewRouter()

	// public fill surface
	api.Get("/forms/{id}", PublicGetForm(app))
	api.Get("/forms/{id}/draft", LoadDraft(app))
	api.Put("/forms/{id}/draft", SaveDraft(app))
	api.Delete("/forms/{id}/draft", ClearDraft(app))
	api.Post("/forms/{id}/validate", ValidateFormSection(app))
	api.Post("/forms/{id}/responses", SubmitResponse(app))

	api.Route("/admin", func(r chi.Router) {
		r.Use(middlewares.Admin(app.TokenSecret))

		// CRUD form
		r.Post("/forms", CreateForm(app))
		r.Get("/forms", ListForms(app))
		r.Get("/forms/{id}", GetFormById(app))
		r.Put("/forms/{id}", UpdateForm(app))
		r.Delete("/forms/{id}", DeleteForm(app))
		r.Put("/forms/{id}/status", SetFormStatus(app))

		r.Post("/forms/import", ImportForm(app))

		r.Get("/forms/{id}/responses", ListFormResponses(app))
		r.Get("/forms/{id}/responses/export", ExportFormResponses(app))
	})

	api.Post("/login", Login(app))
	api.Post("/refresh", Refresh(app))

	return api
}

func servePublicFiles() http.Handler {
	return http.FileServer(http.Dir("public"))
}

func servePrivateFiles(path string) http.Handler {
	return http.StripPrefix(path, http.FileServer(http.Dir("private")))
}
