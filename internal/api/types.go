package api

import (
	"github.com/hackgods/clinic-appointment-booking/internal/appointment"
	"github.com/hackgods/clinic-appointment-booking/internal/catalog"
)

// Response is the envelope shared by every non-list endpoint.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

type BookingResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	PatientID     int    `json:"patient_id"`
	AppointmentID int    `json:"appointment_id"`
}

type PatientResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	PatientID int    `json:"patient_id"`
}

type CreatedResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	ID      int    `json:"id"`
}

type SlotResponse struct {
	ScheduleID int    `json:"schedule_id"`
	TimeSlot   string `json:"time_slot"`
}

type CategoryResponse struct {
	CategoryID   int    `json:"category_id"`
	CategoryName string `json:"category_name"`
	Description  string `json:"description,omitempty"`
}

type DoctorResponse struct {
	DoctorID        int     `json:"doctor_id"`
	DoctorName      string  `json:"doctor_name"`
	ExperienceYears string  `json:"experience_years"`
	Qualifications  string  `json:"qualifications"`
	Ratings         float64 `json:"ratings"`
}

type AppointmentResponse struct {
	AppointmentID   int    `json:"appointment_id"`
	PatientID       int    `json:"patient_id"`
	DoctorID        int    `json:"doctor_id"`
	ScheduleID      int    `json:"schedule_id"`
	AppointmentDate string `json:"appointment_date"`
	Status          string `json:"status"`
}

type CreateCategoryRequest struct {
	CategoryName string `json:"category_name"`
	Description  string `json:"description"`
}

type CreateDoctorRequest struct {
	DoctorName      string  `json:"doctor_name"`
	ExperienceYears string  `json:"experience_years"`
	Qualifications  string  `json:"qualifications"`
	Ratings         float64 `json:"ratings"`
	CategoryID      int     `json:"category_id"`
}

type CreateSlotRequest struct {
	TimeSlot string `json:"time_slot"`
}

func toSlotResponses(slots []catalog.Slot) []SlotResponse {
	out := make([]SlotResponse, 0, len(slots))
	for _, s := range slots {
		out = append(out, SlotResponse{ScheduleID: s.ID, TimeSlot: s.TimeSlot})
	}
	return out
}

func toAppointmentResponses(appts []appointment.Appointment) []AppointmentResponse {
	out := make([]AppointmentResponse, 0, len(appts))
	for _, a := range appts {
		out = append(out, AppointmentResponse{
			AppointmentID:   a.ID,
			PatientID:       a.PatientID,
			DoctorID:        a.DoctorID,
			ScheduleID:      a.ScheduleID,
			AppointmentDate: a.Date.Format("2006-01-02"),
			Status:          string(a.Status),
		})
	}
	return out
}
