package http

import (
	"time"

	"github.com/google/uuid"

	"medsched/backend/internal/domain"
)

type bookRequest struct {
	PatientID   string    `json:"patient_id"`
	DoctorID    string    `json:"doctor_id"`
	ScheduledAt time.Time `json:"scheduled_at"`
}

type rescheduleRequest struct {
	PatientID string    `json:"patient_id"`
	DoctorID  string    `json:"doctor_id"`
	OldTime   time.Time `json:"old_time"`
	NewTime   time.Time `json:"new_time"`
}

type cancelRequest struct {
	PatientID   string    `json:"patient_id"`
	DoctorID    string    `json:"doctor_id"`
	ScheduledAt time.Time `json:"scheduled_at"`
}

type outcomeRequest struct {
	DoctorID  string `json:"doctor_id"`
	Completed bool   `json:"completed"`
}

type appointmentResponse struct {
	ID          uuid.UUID `json:"id"`
	DoctorID    uuid.UUID `json:"doctor_id"`
	PatientID   uuid.UUID `json:"patient_id"`
	ScheduledAt time.Time `json:"scheduled_at"`
	State       string    `json:"state"`
}

type appointmentViewResponse struct {
	ID          uuid.UUID `json:"id"`
	DoctorID    uuid.UUID `json:"doctor_id"`
	DoctorName  string    `json:"doctor_name"`
	PatientID   uuid.UUID `json:"patient_id"`
	PatientName string    `json:"patient_name"`
	ScheduledAt time.Time `json:"scheduled_at"`
	State       string    `json:"state"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func toAppointmentResponse(a domain.Appointment, state domain.State) appointmentResponse {
	return appointmentResponse{
		ID:          a.ID,
		DoctorID:    a.DoctorID,
		PatientID:   a.PatientID,
		ScheduledAt: a.ScheduledAt,
		State:       string(state),
	}
}

func toViewResponse(v domain.AppointmentView) appointmentViewResponse {
	return appointmentViewResponse{
		ID:          v.ID,
		DoctorID:    v.DoctorID,
		DoctorName:  v.DoctorName,
		PatientID:   v.PatientID,
		PatientName: v.PatientName,
		ScheduledAt: v.ScheduledAt,
		State:       string(v.State),
	}
}
