package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hackgods/clinic-appointment-booking/internal/catalog"
	"github.com/hackgods/clinic-appointment-booking/internal/idgen"
	"github.com/hackgods/clinic-appointment-booking/internal/notify"
	redisclient "github.com/hackgods/clinic-appointment-booking/internal/redis"
)

// Book validates the request, resolves the doctor and slot, and creates the
// patient and appointment in a single transaction. Concurrent bookers of the
// same doctor, slot and date are serialised by the slot lock; the store's
// unique index rejects anything that slips past it.
//
// The booked event is handed to the notifier after the transaction commits.
func (s *Service) Book(ctx context.Context, req BookingRequest) (*BookingResult, error) {
	res, err := s.book(ctx, req)
	if err != nil {
		kind := KindOf(err)
		s.metrics.ObserveBooking(kind.String())
		fields := []zap.Field{
			zap.String("doctor_name", req.DoctorName),
			zap.String("date", req.Date),
			zap.String("time_slot", req.TimeSlot),
			zap.Error(err),
		}
		if kind == KindInternal {
			s.log.Error("booking failed", fields...)
		} else {
			s.log.Info("booking rejected", append(fields, zap.Stringer("kind", kind))...)
		}
		return nil, err
	}

	s.metrics.ObserveBooking("booked")
	s.log.Info("appointment booked",
		zap.Int("appointment_id", res.AppointmentID),
		zap.Int("patient_id", res.PatientID),
		zap.Int("doctor_id", res.DoctorID),
		zap.Int("schedule_id", res.ScheduleID),
		zap.String("date", dateString(res.Date)),
	)

	s.notifier.Notify(notify.Event{
		Event:           notify.EventBooked,
		Status:          strings.ToLower(string(StatusBooked)),
		PatientID:       res.PatientID,
		AppointmentID:   res.AppointmentID,
		Name:            req.Name,
		Age:             *req.Age,
		Email:           req.Email,
		Gender:          req.Gender,
		Request:         req.Request,
		DoctorID:        res.DoctorID,
		DoctorName:      req.DoctorName,
		ScheduleID:      res.ScheduleID,
		TimeSlot:        req.TimeSlot,
		AppointmentDate: dateString(res.Date),
		OccurredAt:      time.Now().UTC(),
	})

	return res, nil
}

func (s *Service) book(ctx context.Context, req BookingRequest) (*BookingResult, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	date, err := ParseDate(req.Date)
	if err != nil {
		return nil, err
	}

	doctorID, err := s.catalog.FindDoctorIDByName(ctx, strings.TrimSpace(req.DoctorName))
	if err != nil {
		if errors.Is(err, catalog.ErrDoctorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("resolve doctor: %w", err)
	}
	s.log.Debug("doctor resolved", zap.String("doctor_name", req.DoctorName), zap.Int("doctor_id", doctorID))

	scheduleID, err := s.catalog.FindScheduleIDBySlot(ctx, strings.TrimSpace(req.TimeSlot))
	if err != nil {
		if errors.Is(err, catalog.ErrSlotNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("resolve slot: %w", err)
	}
	s.log.Debug("slot resolved", zap.String("time_slot", req.TimeSlot), zap.Int("schedule_id", scheduleID))

	res := &BookingResult{DoctorID: doctorID, ScheduleID: scheduleID, Date: date}

	persist := func(ctx context.Context) error {
		return s.repo.WithTx(ctx, func(tx Repository) error {
			taken, err := tx.IsSlotTaken(ctx, doctorID, scheduleID, date)
			if err != nil {
				return err
			}
			if taken {
				return ErrSlotAlreadyBooked
			}

			patientID, err := idgen.NextFree(ctx, s.ids, tx.PatientExists)
			if err != nil {
				return fmt.Errorf("generate patient id: %w", err)
			}
			err = tx.CreatePatient(ctx, Patient{
				ID:      patientID,
				Name:    req.Name,
				Age:     *req.Age,
				Email:   req.Email,
				Gender:  req.Gender,
				Request: req.Request,
			})
			if err != nil {
				return fmt.Errorf("persist patient: %w", err)
			}

			appointmentID, err := idgen.NextFree(ctx, s.ids, tx.AppointmentExists)
			if err != nil {
				return fmt.Errorf("generate appointment id: %w", err)
			}
			err = tx.CreateAppointment(ctx, Appointment{
				ID:         appointmentID,
				PatientID:  patientID,
				DoctorID:   doctorID,
				ScheduleID: scheduleID,
				Date:       date,
				Status:     StatusBooked,
			})
			if err != nil {
				return fmt.Errorf("persist appointment: %w", err)
			}

			res.PatientID = patientID
			res.AppointmentID = appointmentID
			return nil
		})
	}

	if s.locker == nil {
		err = persist(ctx)
	} else {
		err = s.locker.WithSlotLock(ctx, redisclient.SlotKey(doctorID, scheduleID, date), persist)
		switch {
		case errors.Is(err, redisclient.ErrLockNotAcquired):
			return nil, ErrSlotBeingBooked
		case errors.Is(err, redisclient.ErrLockUnavailable):
			// the unique index still rejects a second booking of the slot
			s.log.Warn("slot lock unavailable, booking without it",
				zap.Int("doctor_id", doctorID),
				zap.Int("schedule_id", scheduleID),
				zap.Error(err),
			)
			err = persist(ctx)
		}
	}
	if err != nil {
		return nil, err
	}

	return res, nil
}
