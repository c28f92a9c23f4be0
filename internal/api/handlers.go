package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-appointment-booking/internal/appointment"
	"github.com/hackgods/clinic-appointment-booking/internal/catalog"
)

// BookingService is the appointment workflow surface the handlers call.
type BookingService interface {
	Book(ctx context.Context, req appointment.BookingRequest) (*appointment.BookingResult, error)
	Cancel(ctx context.Context, req appointment.CancelRequest) (*appointment.CancelResult, error)
	AvailableSlots(ctx context.Context, doctorID int, date string) ([]catalog.Slot, error)
	Appointments(ctx context.Context, doctorID int, date string) ([]appointment.Appointment, error)
	RegisterPatient(ctx context.Context, req appointment.PatientRequest) (int, error)
}

func bookAppointmentHandler(svc BookingService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req appointment.BookingRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		res, err := svc.Book(r.Context(), req)
		if err != nil {
			handleBookError(w, r, log, err)
			return
		}

		writeJSON(w, http.StatusOK, BookingResponse{
			Success:       true,
			Message:       "Appointment booked successfully",
			PatientID:     res.PatientID,
			AppointmentID: res.AppointmentID,
		})
	}
}

func cancelAppointmentHandler(svc BookingService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req appointment.CancelRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		if _, err := svc.Cancel(r.Context(), req); err != nil {
			handleCancelError(w, r, log, err)
			return
		}

		writeJSON(w, http.StatusOK, Response{
			Success: true,
			Message: "Appointment cancelled successfully",
		})
	}
}

func availableSlotsHandler(svc BookingService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := intParam(w, r, "doctor_id")
		if !ok {
			return
		}

		slots, err := svc.AvailableSlots(r.Context(), doctorID, chi.URLParam(r, "date"))
		if err != nil {
			writeKindError(w, r, log, err)
			return
		}

		writeJSON(w, http.StatusOK, toSlotResponses(slots))
	}
}

func listAppointmentsHandler(svc BookingService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := intParam(w, r, "doctor_id")
		if !ok {
			return
		}

		appts, err := svc.Appointments(r.Context(), doctorID, chi.URLParam(r, "date"))
		if err != nil {
			writeKindError(w, r, log, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponses(appts))
	}
}

func addPatientHandler(svc BookingService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req appointment.PatientRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		id, err := svc.RegisterPatient(r.Context(), req)
		if err != nil {
			writeKindError(w, r, log, err)
			return
		}

		writeJSON(w, http.StatusOK, PatientResponse{
			Success:   true,
			Message:   "Patient added successfully",
			PatientID: id,
		})
	}
}

func intParam(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	v, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || v <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_"+name, name+" must be a positive integer")
		return 0, false
	}
	return v, true
}

// handleBookError reports unknown doctors and slots as 400: they are bad
// references in the request body rather than missing resources.
func handleBookError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	switch {
	case errors.Is(err, catalog.ErrDoctorNotFound):
		writeError(w, http.StatusBadRequest, "doctor_not_found", "Doctor not found")
	case errors.Is(err, catalog.ErrSlotNotFound):
		writeError(w, http.StatusBadRequest, "slot_not_found", "Time slot not found")
	case errors.Is(err, appointment.ErrSlotAlreadyBooked):
		writeError(w, http.StatusConflict, "slot_already_booked", "This slot is already booked")
	case errors.Is(err, appointment.ErrSlotBeingBooked):
		writeError(w, http.StatusConflict, "slot_being_booked", "Slot is currently being booked, please retry shortly")
	default:
		writeKindError(w, r, log, err)
	}
}

func handleCancelError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	switch {
	case errors.Is(err, appointment.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", "No appointment found with given ID and patient ID")
	case errors.Is(err, appointment.ErrIdentityMismatch):
		writeError(w, http.StatusForbidden, "identity_mismatch", "Patient details do not match")
	default:
		writeKindError(w, r, log, err)
	}
}

func writeKindError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	var vErr *appointment.ValidationError
	if errors.As(err, &vErr) {
		writeError(w, http.StatusBadRequest, "validation_failed", "Missing or invalid fields", vErr.Fields...)
		return
	}

	switch appointment.KindOf(err) {
	case appointment.KindBadRequest:
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
	case appointment.KindNotFound:
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case appointment.KindConflict:
		writeError(w, http.StatusConflict, "conflict", err.Error())
	case appointment.KindForbidden:
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
	default:
		log.Error("request failed",
			zap.String("request_id", GetRequestID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
	}
}
