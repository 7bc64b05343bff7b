package routes

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/fieldline/fieldline/app"
	"github.com/fieldline/fieldline/engine"
	"github.com/fieldline/fieldline/httpx"
	"github.com/fieldline/fieldline/log"
	"github.com/fieldline/fieldline/model"
	"github.com/fieldline/fieldline/store"
)

// fillKeyHeader identifies one respondent's pass through a form so drafts
// survive page reloads. The client generates the key and sends it on every
// fill request.
const fillKeyHeader = "X-Fill-Key"

func PublicGetForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId := chi.URLParam(r, "id")

		form, err := app.GetPublishedForm(r.Context(), formId)
		if errors.Is(err, store.ErrNotFound) {
			httpx.LogNotFound(w, "get_public_form", formId)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.get_public_form", err)
			return
		}

		render.JSON(w, r, form)
	}
}

func LoadDraft(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId := chi.URLParam(r, "id")
		fillKey := r.Header.Get(fillKeyHeader)
		if fillKey == "" {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.fill_key.missing")
			return
		}

		draft, err := app.Load(r.Context(), formId, fillKey)
		if err != nil {
			httpx.LogInternalError(w, "db.load_draft", err)
			return
		}
		if draft == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		render.JSON(w, r, draft)
	}
}

func SaveDraft(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId := chi.URLParam(r, "id")
		fillKey := r.Header.Get(fillKeyHeader)
		if fillKey == "" {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.fill_key.missing")
			return
		}

		form, err := app.GetPublishedForm(r.Context(), formId)
		if errors.Is(err, store.ErrNotFound) {
			httpx.LogNotFound(w, "save_draft", formId)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.save_draft.get_form", err)
			return
		}

		draft := model.Draft{}
		if err = render.DecodeJSON(r.Body, &draft); err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		draft.FormID = formId
		if draft.CurrentSectionIndex < 0 || draft.CurrentSectionIndex >= len(form.Sections) {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.section_index.range")
			return
		}
		now := time.Now().UTC()
		if draft.StartedAt.IsZero() {
			draft.StartedAt = now
		}
		draft.LastActivityAt = now

		if err = app.Save(r.Context(), formId, fillKey, draft); err != nil {
			httpx.LogInternalError(w, "db.save_draft", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func ClearDraft(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId := chi.URLParam(r, "id")
		fillKey := r.Header.Get(fillKeyHeader)
		if fillKey == "" {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.fill_key.missing")
			return
		}

		if err := app.Clear(r.Context(), formId, fillKey); err != nil {
			httpx.LogInternalError(w, "db.clear_draft", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

type validateRequest struct {
	Responses map[string]any `json:"responses"`
}

// ValidateFormSection runs the section validator server side, so clients can
// gate forward navigation with the same rules the final submit enforces.
func ValidateFormSection(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId := chi.URLParam(r, "id")

		sectionIndex, err := strconv.Atoi(r.URL.Query().Get("section"))
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_query_param.section")
			return
		}

		form, err := app.GetPublishedForm(r.Context(), formId)
		if errors.Is(err, store.ErrNotFound) {
			httpx.LogNotFound(w, "validate_section", formId)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.validate_section.get_form", err)
			return
		}
		if sectionIndex < 0 || sectionIndex >= len(form.Sections) {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.section_index.range")
			return
		}

		req := validateRequest{}
		if err = render.DecodeJSON(r.Body, &req); err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		errs := engine.ValidateSection(form.Sections[sectionIndex], engine.Responses(req.Responses))
		render.JSON(w, r, map[string]any{
			"valid":  len(errs) == 0,
			"errors": errs,
		})
	}
}

type submitRequest struct {
	Responses       map[string]any `json:"responses"`
	RespondentEmail string         `json:"respondentEmail"`
}

// SubmitResponse finalizes a pass through a form. The submitted answer map is
// merged over any stored draft, the section walk is replayed with the same
// forward gating a live session has, and the finalized response is stored.
// Validation failures come back as a 422 error map and leave the draft
// intact, so the respondent can fix and retry.
func SubmitResponse(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId := chi.URLParam(r, "id")
		fillKey := r.Header.Get(fillKeyHeader)
		if fillKey == "" {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.fill_key.missing")
			return
		}

		form, err := app.GetPublishedForm(r.Context(), formId)
		if errors.Is(err, store.ErrNotFound) {
			httpx.LogNotFound(w, "submit_response", formId)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.submit_response.get_form", err)
			return
		}

		req := submitRequest{}
		if err = render.DecodeJSON(r.Body, &req); err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		session := engine.NewSession(form, fillKey, app.Store)
		if err = session.Restore(r.Context()); err != nil {
			httpx.LogInternalError(w, "db.submit_response.restore", err)
			return
		}
		if err = session.Merge(r.Context(), req.Responses); err != nil {
			httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "request.responses", "%s", err)
			return
		}

		for !session.OnLastSection() {
			if errs := session.Next(r.Context()); len(errs) > 0 {
				httpx.ValidationErrors(w, r, errs)
				return
			}
		}

		response, errs, err := session.Submit(r.Context(), req.RespondentEmail, app.Store)
		if len(errs) > 0 {
			httpx.ValidationErrors(w, r, errs)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.submit_response", err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"id":          response.ID,
			"isComplete":  response.IsComplete,
			"submittedAt": response.SubmittedAt,
		})
	}
}
