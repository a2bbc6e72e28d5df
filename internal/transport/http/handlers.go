package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"medsched/backend/internal/domain"
	"medsched/backend/internal/service/scheduling"
	"medsched/backend/internal/store"
)

type schedulingService interface {
	Book(ctx context.Context, patientID, doctorID uuid.UUID, at time.Time) (domain.Appointment, error)
	ListByDay(ctx context.Context, actorID uuid.UUID, role domain.Role, day time.Time) ([]domain.AppointmentView, error)
	GetBySlot(ctx context.Context, actorID uuid.UUID, role domain.Role, at time.Time) (domain.AppointmentView, error)
	Reschedule(ctx context.Context, patientID, doctorID uuid.UUID, oldAt, newAt time.Time) (domain.Appointment, error)
	Cancel(ctx context.Context, patientID, doctorID uuid.UUID, at time.Time) error
	MarkOutcome(ctx context.Context, appointmentID, doctorID uuid.UUID, completed bool) (domain.Appointment, error)
}

type handlers struct {
	svc schedulingService
	log *slog.Logger
}

func (h *handlers) book(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}
	patientID, doctorID, ok := parseParties(w, req.PatientID, req.DoctorID)
	if !ok {
		return
	}

	appt, err := h.svc.Book(r.Context(), patientID, doctorID, req.ScheduledAt)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAppointmentResponse(appt, domain.StateConfirmed))
}

func (h *handlers) reschedule(w http.ResponseWriter, r *http.Request) {
	var req rescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}
	patientID, doctorID, ok := parseParties(w, req.PatientID, req.DoctorID)
	if !ok {
		return
	}

	appt, err := h.svc.Reschedule(r.Context(), patientID, doctorID, req.OldTime, req.NewTime)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt, domain.StateConfirmed))
}

func (h *handlers) cancel(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}
	patientID, doctorID, ok := parseParties(w, req.PatientID, req.DoctorID)
	if !ok {
		return
	}

	if err := h.svc.Cancel(r.Context(), patientID, doctorID, req.ScheduledAt); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) markOutcome(w http.ResponseWriter, r *http.Request) {
	appointmentID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
		return
	}

	var req outcomeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}
	doctorID, err := uuid.Parse(req.DoctorID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
		return
	}

	appt, err := h.svc.MarkOutcome(r.Context(), appointmentID, doctorID, req.Completed)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	state := domain.StateMissed
	if req.Completed {
		state = domain.StateCompleted
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt, state))
}

func (h *handlers) listByDay(w http.ResponseWriter, r *http.Request) {
	actorID, role, ok := parseActor(w, r)
	if !ok {
		return
	}
	day, err := time.Parse("2006-01-02", r.URL.Query().Get("day"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_day", "day must be formatted YYYY-MM-DD")
		return
	}

	views, err := h.svc.ListByDay(r.Context(), actorID, role, day)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	out := make([]appointmentViewResponse, 0, len(views))
	for _, v := range views {
		out = append(out, toViewResponse(v))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) getBySlot(w http.ResponseWriter, r *http.Request) {
	actorID, role, ok := parseActor(w, r)
	if !ok {
		return
	}
	at, err := time.Parse(time.RFC3339, r.URL.Query().Get("at"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_time", "at must be an RFC3339 timestamp")
		return
	}

	view, err := h.svc.GetBySlot(r.Context(), actorID, role, at)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toViewResponse(view))
}

func parseParties(w http.ResponseWriter, patientID, doctorID string) (uuid.UUID, uuid.UUID, bool) {
	pid, err := uuid.Parse(patientID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
		return uuid.Nil, uuid.Nil, false
	}
	did, err := uuid.Parse(doctorID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
		return uuid.Nil, uuid.Nil, false
	}
	return pid, did, true
}

func parseActor(w http.ResponseWriter, r *http.Request) (uuid.UUID, domain.Role, bool) {
	actorID, err := uuid.Parse(chi.URLParam(r, "actorID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_actor_id", "actor id must be a valid UUID")
		return uuid.Nil, "", false
	}

	switch chi.URLParam(r, "role") {
	case "doctor":
		return actorID, domain.RoleDoctor, true
	case "patient":
		return actorID, domain.RolePatient, true
	default:
		writeError(w, http.StatusBadRequest, "invalid_role", "role must be doctor or patient")
		return uuid.Nil, "", false
	}
}

func (h *handlers) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var vErr *scheduling.ValidationError
	var sErr *domain.SlotError
	var cErr *store.ConfigurationError

	switch {
	case errors.As(err, &vErr):
		writeError(w, http.StatusBadRequest, "invalid_request", vErr.Error())
	case errors.As(err, &sErr):
		writeError(w, http.StatusUnprocessableEntity, string(sErr.Reason), sErr.Error())
	case errors.Is(err, store.ErrSlotTaken):
		writeError(w, http.StatusConflict, "slot_taken", "that slot already has a confirmed appointment")
	case errors.Is(err, store.ErrDoctorNotFound):
		writeError(w, http.StatusNotFound, "doctor_not_found", err.Error())
	case errors.Is(err, store.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", "no confirmed appointment matches")
	case errors.Is(err, scheduling.ErrNotOwner):
		writeError(w, http.StatusForbidden, "not_owner", err.Error())
	case errors.Is(err, scheduling.ErrTooEarly):
		writeError(w, http.StatusConflict, "too_early", err.Error())
	case errors.Is(err, scheduling.ErrAlreadyFinalized):
		writeError(w, http.StatusConflict, "already_finalized", err.Error())
	case errors.As(err, &cErr):
		h.log.Error("status catalog misconfigured", slog.Any("err", err), slog.String("request_id", GetRequestID(r.Context())))
		writeError(w, http.StatusInternalServerError, "configuration_error", "status catalog is misconfigured")
	default:
		h.log.Error("scheduling operation failed", slog.Any("err", err), slog.String("request_id", GetRequestID(r.Context())))
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, errorResponse{Error: code, Details: details})
}
