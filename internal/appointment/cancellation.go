package appointment

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hackgods/clinic-appointment-booking/internal/config"
	"github.com/hackgods/clinic-appointment-booking/internal/notify"
)

// Cancel cancels a BOOKED appointment owned by the given patient. Under the
// soft policy the appointment is marked CANCELLED and the patient's note is
// overwritten; under the hard policy both rows are deleted. With identity
// verification enabled the submitted name and email (and age, when given)
// must match the stored patient before anything is changed.
//
// Cancelling an appointment that is already cancelled or deleted reports
// ErrAppointmentNotFound.
func (s *Service) Cancel(ctx context.Context, req CancelRequest) (*CancelResult, error) {
	policy := string(s.opts.CancellationPolicy)

	res, err := s.cancel(ctx, req)
	if err != nil {
		kind := KindOf(err)
		s.metrics.ObserveCancellation(policy, kind.String())
		fields := []zap.Field{
			zap.Int("appointment_id", req.AppointmentID),
			zap.Int("patient_id", req.PatientID),
			zap.Error(err),
		}
		if kind == KindInternal {
			s.log.Error("cancellation failed", fields...)
		} else {
			s.log.Info("cancellation rejected", append(fields, zap.Stringer("kind", kind))...)
		}

		if kind == KindNotFound || kind == KindForbidden {
			s.notifier.Notify(notify.Event{
				Event:         notify.EventFailed,
				Status:        notify.EventFailed,
				PatientID:     req.PatientID,
				AppointmentID: req.AppointmentID,
				Reason:        err.Error(),
				OccurredAt:    time.Now().UTC(),
			})
		}
		return nil, err
	}

	s.metrics.ObserveCancellation(policy, "cancelled")
	s.log.Info("appointment cancelled",
		zap.Int("appointment_id", res.Appointment.ID),
		zap.Int("patient_id", res.Patient.ID),
		zap.String("policy", policy),
	)

	s.notifier.Notify(notify.Event{
		Event:           notify.EventCancelled,
		Status:          notify.EventCancelled,
		PatientID:       res.Patient.ID,
		AppointmentID:   res.Appointment.ID,
		Name:            res.Patient.Name,
		Age:             res.Patient.Age,
		Email:           res.Patient.Email,
		Gender:          res.Patient.Gender,
		Request:         res.Patient.Request,
		DoctorID:        res.Appointment.DoctorID,
		ScheduleID:      res.Appointment.ScheduleID,
		AppointmentDate: dateString(res.Appointment.Date),
		OccurredAt:      time.Now().UTC(),
	})

	return res, nil
}

func (s *Service) cancel(ctx context.Context, req CancelRequest) (*CancelResult, error) {
	if req.AppointmentID <= 0 || req.PatientID <= 0 {
		return nil, ErrInvalidIDs
	}
	if s.opts.VerifyIdentity {
		var missing []string
		if strings.TrimSpace(req.Name) == "" {
			missing = append(missing, "name is required")
		}
		if strings.TrimSpace(req.Email) == "" {
			missing = append(missing, "email is required")
		}
		if len(missing) > 0 {
			return nil, &ValidationError{Fields: missing}
		}
	}

	hard := s.opts.CancellationPolicy == config.CancelHard
	var res CancelResult

	err := s.repo.WithTx(ctx, func(tx Repository) error {
		appt, err := tx.GetAppointment(ctx, req.AppointmentID, req.PatientID)
		if err != nil {
			return err
		}
		if appt.Status != StatusBooked {
			return ErrAppointmentNotFound
		}

		// snapshot before any delete destroys it
		patient, err := tx.GetPatient(ctx, req.PatientID)
		if err != nil {
			return err
		}

		if s.opts.VerifyIdentity && !identityMatches(patient, req) {
			return ErrIdentityMismatch
		}

		if hard {
			if err := tx.DeleteAppointment(ctx, appt.ID, patient.ID); err != nil {
				return err
			}
			if err := tx.DeletePatient(ctx, patient.ID); err != nil {
				return err
			}
		} else {
			if err := tx.UpdateAppointmentStatus(ctx, appt.ID, patient.ID, StatusCancelled); err != nil {
				return err
			}
			if err := tx.UpdatePatientNote(ctx, patient.ID, CancelledNote); err != nil {
				return err
			}
			appt.Status = StatusCancelled
		}

		res = CancelResult{Patient: *patient, Appointment: *appt, Deleted: hard}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &res, nil
}

func identityMatches(p *Patient, req CancelRequest) bool {
	if strings.TrimSpace(p.Name) != strings.TrimSpace(req.Name) {
		return false
	}
	if !strings.EqualFold(strings.TrimSpace(p.Email), strings.TrimSpace(req.Email)) {
		return false
	}
	if req.Age > 0 && req.Age != p.Age {
		return false
	}
	return true
}
