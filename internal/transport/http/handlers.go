package http

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"quiz-share-service/internal/app"
	"quiz-share-service/internal/domain"
	"quiz-share-service/internal/validation"
)

type quizEnvelope struct {
	Quiz domain.Quiz `json:"quiz"`
}

type successBody struct {
	Success bool `json:"success"`
}

type cloneBody struct {
	QuizID string `json:"quizId"`
}

// QuizHandler exposes the quiz use cases over JSON.
type QuizHandler struct {
	quizzes *app.QuizService
	takes   *app.TakeService
	reports *app.ReportService
	logger  *slog.Logger
}

func NewQuizHandler(quizzes *app.QuizService, takes *app.TakeService, reports *app.ReportService, logger *slog.Logger) *QuizHandler {
	return &QuizHandler{quizzes: quizzes, takes: takes, reports: reports, logger: logger}
}

func (h *QuizHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload validation.QuizPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	quiz, err := h.quizzes.Create(r.Context(), identityFrom(r.Context()), payload)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, quizEnvelope{Quiz: quiz})
}

func (h *QuizHandler) Get(w http.ResponseWriter, r *http.Request) {
	quiz, err := h.quizzes.Get(r.Context(), identityFrom(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, quizEnvelope{Quiz: quiz})
}

func (h *QuizHandler) Update(w http.ResponseWriter, r *http.Request) {
	var payload validation.QuizPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	quiz, err := h.quizzes.Update(r.Context(), identityFrom(r.Context()), mux.Vars(r)["id"], payload)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, quizEnvelope{Quiz: quiz})
}

func (h *QuizHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.quizzes.Delete(r.Context(), identityFrom(r.Context()), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, successBody{Success: true})
}

func (h *QuizHandler) Publish(w http.ResponseWriter, r *http.Request) {
	quiz, err := h.quizzes.Publish(r.Context(), identityFrom(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, quizEnvelope{Quiz: quiz})
}

func (h *QuizHandler) Clone(w http.ResponseWriter, r *http.Request) {
	quiz, err := h.quizzes.Clone(r.Context(), identityFrom(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, cloneBody{QuizID: quiz.ID})
}

func (h *QuizHandler) Report(w http.ResponseWriter, r *http.Request) {
	report, err := h.reports.QuizReport(r.Context(), identityFrom(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *QuizHandler) Take(w http.ResponseWriter, r *http.Request) {
	view, err := h.takes.View(r.Context(), identityFrom(r.Context()), mux.Vars(r)["shareableId"])
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *QuizHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var payload validation.AnswerPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := h.takes.Submit(r.Context(), identityFrom(r.Context()), mux.Vars(r)["shareableId"], payload); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, successBody{Success: true})
}

func (h *QuizHandler) Results(w http.ResponseWriter, r *http.Request) {
	results, err := h.takes.Results(r.Context(), identityFrom(r.Context()), mux.Vars(r)["shareableId"])
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (h *QuizHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	created := validation.ClampPage(q.Get("createdLimit"), q.Get("createdSkip"))
	taken := validation.ClampPage(q.Get("takenLimit"), q.Get("takenSkip"))
	dashboard, err := h.reports.Dashboard(r.Context(), identityFrom(r.Context()), created, taken)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dashboard)
}
