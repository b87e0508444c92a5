package rest

import (
	"errors"
	"net/http"
	"strconv"

	"ahlan-reserve/internal/clients"
	"ahlan-reserve/internal/domain"
	"ahlan-reserve/internal/service"
	"ahlan-reserve/internal/transport/auth"
	"ahlan-reserve/internal/transport/websocket"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func (h *Handler) openReservation(w http.ResponseWriter, r *http.Request) {
	sess, err := auth.GetSession(r.Context())
	if err != nil {
		ErrorUnauthorized(w, msgUnauthorized)
		return
	}

	var req OpenReservationRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	rs, err := h.reservations.Open(r.Context(), sess, req.ApartmentID)
	if err != nil {
		h.logger.Warn("open reservation failed", zap.Int64("apartment_id", req.ApartmentID), zap.Error(err))
		status, msg := statusFor(err)
		if rs != nil && errors.Is(err, domain.ErrDataLoad) && status == http.StatusBadGateway {
			ErrorWithData(w, msg, sessionView(rs), status)
			return
		}
		Error(w, msg, status, status)
		return
	}

	SuccessCreated(w, "Bron qilish sessiyasi ochildi", sessionView(rs))
}

func (h *Handler) getReservation(w http.ResponseWriter, r *http.Request) {
	rs, err := h.reservations.Get(r.Context(), chi.URLParam(r, "session_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	Success(w, "ok", sessionView(rs))
}

func (h *Handler) cancelReservation(w http.ResponseWriter, r *http.Request) {
	if err := h.reservations.Cancel(r.Context(), chi.URLParam(r, "session_id")); err != nil {
		writeError(w, err)
		return
	}
	Success(w, "Bron qilish bekor qilindi", nil)
}

func (h *Handler) readForm(w http.ResponseWriter, r *http.Request) (service.Form, bool) {
	var req FormRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return service.Form{}, false
	}
	form, err := req.ToForm()
	if err != nil {
		writeError(w, err)
		return service.Form{}, false
	}
	return form, true
}

func (h *Handler) quote(w http.ResponseWriter, r *http.Request) {
	form, ok := h.readForm(w, r)
	if !ok {
		return
	}
	q, err := h.reservations.Preview(r.Context(), chi.URLParam(r, "session_id"), form)
	if err != nil {
		writeError(w, err)
		return
	}
	Success(w, "ok", quoteView(q))
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	sess, err := auth.GetSession(r.Context())
	if err != nil {
		ErrorUnauthorized(w, msgUnauthorized)
		return
	}
	form, ok := h.readForm(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "session_id")
	rs, err := h.reservations.Submit(r.Context(), sess, id, form)
	if err != nil {
		status, msg := statusFor(err)
		if rs != nil && rs.State == service.StateReady {
			// The form stays on the session so staff can correct and resend it.
			ErrorWithData(w, msg, sessionView(rs), status)
			return
		}
		Error(w, msg, status, status)
		return
	}

	data := sessionView(rs)
	data.Contract = contractView(rs.Contract, true)
	Success(w, "Shartnoma tayyor", data)
}

func (h *Handler) dismiss(w http.ResponseWriter, r *http.Request) {
	rs, err := h.reservations.Dismiss(r.Context(), chi.URLParam(r, "session_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	Success(w, "ok", sessionView(rs))
}

func (h *Handler) contract(w http.ResponseWriter, r *http.Request) {
	c, err := h.reservations.Contract(r.Context(), chi.URLParam(r, "session_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	Success(w, "ok", contractView(c, true))
}

func (h *Handler) printContract(w http.ResponseWriter, r *http.Request) {
	page, err := h.artifacts.PrintView(r.Context(), chi.URLParam(r, "session_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(page)); err != nil {
		h.logger.Warn("write print view failed", zap.Error(err))
	}
}

func (h *Handler) renderArtifact(w http.ResponseWriter, r *http.Request) {
	kind, err := service.ParseArtifactKind(chi.URLParam(r, "kind"))
	if err != nil {
		ErrorBadRequest(w, err.Error())
		return
	}
	art, err := h.artifacts.Render(r.Context(), chi.URLParam(r, "session_id"), kind)
	if err != nil {
		writeError(w, err)
		return
	}
	Success(w, "Fayl tayyor", art)
}

func (h *Handler) journal(w http.ResponseWriter, r *http.Request) {
	apartmentID, err := strconv.ParseInt(chi.URLParam(r, "apartment_id"), 10, 64)
	if err != nil || apartmentID <= 0 {
		writeError(w, &ValidationError{Field: "apartment_id", Message: "apartment_id must be a positive integer"})
		return
	}
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		limit, err = strconv.Atoi(s)
		if err != nil || limit < 0 || limit > 500 {
			writeError(w, &ValidationError{Field: "limit", Message: "limit must be an integer between 0 and 500"})
			return
		}
	}

	entries, err := h.reservations.JournalFor(r.Context(), apartmentID, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	Success(w, "ok", journalView(entries))
}

// serveWebSocket subscribes the socket to one reservation session's events.
func (h *Handler) serveWebSocket(hub *websocket.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("session_id")
		if id == "" {
			ErrorBadRequest(w, "session_id required")
			return
		}
		if _, err := h.reservations.Get(r.Context(), id); err != nil {
			writeError(w, err)
			return
		}
		h.logger.Debug("websocket connected", zap.String("session_id", id))
		hub.HandleWebSocket(w, r, id)
	}
}

// FilesHandler serves stored artifacts under their original file name.
func FilesHandler(storage *clients.LocalStorage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		file := chi.URLParam(r, "file")
		path, err := storage.Path(file)
		if err != nil {
			ErrorNotFound(w, msgNotFound)
			return
		}
		w.Header().Set("Content-Disposition", "attachment; filename=\""+clients.OriginalName(file)+"\"")
		http.ServeFile(w, r, path)
	}
}
