package routes

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/goccy/go-json"

	"github.com/fieldline/fieldline/app"
	"github.com/fieldline/fieldline/httpx"
	"github.com/fieldline/fieldline/importer"
	"github.com/fieldline/fieldline/log"
	"github.com/fieldline/fieldline/model"
	"github.com/fieldline/fieldline/store"
)

func CreateForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		form := model.Form{}
		err := render.DecodeJSON(r.Body, &form)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		if err = form.Validate(); err != nil {
			httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "form.validate", "%s", err)
			return
		}
		form.AssignIDs()

		if err = app.CreateForm(r.Context(), &form); err != nil {
			httpx.LogInternalError(w, "db.insert_form", err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"id":      form.ID,
			"version": form.Version,
		})
	}
}

func ListForms(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		forms, err := app.Store.ListForms(r.Context(), r.URL.Query().Get("project"))
		if err != nil {
			httpx.LogInternalError(w, "db.get_forms", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"forms": forms,
		})
	}
}

func GetFormById(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId := chi.URLParam(r, "id")

		form, err := app.GetForm(r.Context(), formId)
		if errors.Is(err, store.ErrNotFound) {
			httpx.LogNotFound(w, "get_form", formId)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.get_form", err)
			return
		}

		render.JSON(w, r, form)
	}
}

func UpdateForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId := chi.URLParam(r, "id")

		form := model.Form{}
		err := render.DecodeJSON(r.Body, &form)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		form.ID = formId

		if err = form.Validate(); err != nil {
			httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "form.validate", "%s", err)
			return
		}
		form.AssignIDs()

		err = app.Store.UpdateForm(r.Context(), &form)
		switch {
		case errors.Is(err, store.ErrNotFound):
			httpx.LogNotFound(w, "update_form", formId)
			return
		case errors.Is(err, store.ErrVersionConflict):
			// optimistic lock: a concurrent edit bumped the version first
			httpx.LogStatus(w, http.StatusConflict, log.DebugLevel, "db.update_form.verify.conflict")
			return
		case err != nil:
			httpx.LogInternalError(w, "db.update_form", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

type statusRequest struct {
	Status model.FormStatus `json:"status"`
}

func SetFormStatus(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId := chi.URLParam(r, "id")

		req := statusRequest{}
		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		form, err := app.GetForm(r.Context(), formId)
		if errors.Is(err, store.ErrNotFound) {
			httpx.LogNotFound(w, "set_form_status", formId)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.set_form_status.get_form", err)
			return
		}

		if !model.ValidTransition(form.Status, req.Status) {
			httpx.LogStatusMsg(w, http.StatusConflict, log.DebugLevel, "form.status.transition",
				"cannot change status from %s to %s", form.Status, req.Status)
			return
		}

		if err = app.Store.SetFormStatus(r.Context(), formId, req.Status); err != nil {
			httpx.LogInternalError(w, "db.set_form_status", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func DeleteForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId := chi.URLParam(r, "id")

		err := app.Store.DeleteForm(r.Context(), formId)
		if errors.Is(err, store.ErrNotFound) {
			httpx.LogNotFound(w, "delete_form", formId)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.delete_form", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// ImportForm accepts a YAML or JSON form definition, validates it whole and
// stores it as a new form.
func ImportForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(r.Body)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.read_body")
			return
		}

		form, err := importer.Parse(data)
		if err != nil {
			httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "form.import", "%s", err)
			return
		}

		if err = app.CreateForm(r.Context(), form); err != nil {
			httpx.LogInternalError(w, "db.import_form", err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"id":      form.ID,
			"version": form.Version,
		})
	}
}

func ListFormResponses(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId := chi.URLParam(r, "id")

		if _, err := app.GetForm(r.Context(), formId); errors.Is(err, store.ErrNotFound) {
			httpx.LogNotFound(w, "get_responses", formId)
			return
		} else if err != nil {
			httpx.LogInternalError(w, "db.get_responses.get_form", err)
			return
		}

		responses, err := app.ListResponses(r.Context(), formId)
		if err != nil {
			httpx.LogInternalError(w, "db.get_responses", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"responses": responses,
		})
	}
}

// ExportFormResponses streams the form's responses as long-format CSV: one
// row per answered question.
func ExportFormResponses(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId := chi.URLParam(r, "id")

		if _, err := app.GetForm(r.Context(), formId); errors.Is(err, store.ErrNotFound) {
			httpx.LogNotFound(w, "export_responses", formId)
			return
		} else if err != nil {
			httpx.LogInternalError(w, "db.export_responses.get_form", err)
			return
		}

		responses, err := app.ListResponses(r.Context(), formId)
		if err != nil {
			httpx.LogInternalError(w, "db.export_responses", err)
			return
		}

		w.Header().Set("content-type", "text/csv")
		w.Header().Set("content-disposition", fmt.Sprintf(`attachment; filename="responses-%s.csv"`, formId))

		cw := csv.NewWriter(w)
		_ = cw.Write([]string{"response_id", "form_version", "respondent_email", "submitted_at", "question_id", "value"})
		for _, response := range responses {
			submittedAt := ""
			if response.SubmittedAt != nil {
				submittedAt = response.SubmittedAt.UTC().Format("2006-01-02T15:04:05Z")
			}
			for questionId, value := range response.Data {
				record := []string{
					response.ID,
					fmt.Sprint(response.FormVersion),
					response.RespondentEmail,
					submittedAt,
					questionId,
					csvValue(value),
				}
				if err := cw.Write(record); err != nil {
					log.Errorf("export_responses.write: %s", err)
					return
				}
			}
		}
		cw.Flush()
		if err := cw.Error(); err != nil {
			log.Errorf("export_responses.flush: %s", err)
		}
	}
}

func csvValue(value any) string {
	if s, ok := value.(string); ok {
		return s
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprint(value)
	}
	return string(encoded)
}
