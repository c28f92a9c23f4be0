package notify

import "time"

const (
	EventBooked    = "booked"
	EventCancelled = "cancelled"
	EventFailed    = "failed"
)

// Event is the JSON document posted to the automation webhook.
type Event struct {
	Event           string    `json:"event"`
	Status          string    `json:"status"`
	PatientID       int       `json:"patient_id"`
	AppointmentID   int       `json:"appointment_id"`
	Name            string    `json:"name,omitempty"`
	Age             int       `json:"age,omitempty"`
	Email           string    `json:"email,omitempty"`
	Gender          string    `json:"gender,omitempty"`
	Request         string    `json:"request,omitempty"`
	DoctorID        int       `json:"doctor_id,omitempty"`
	DoctorName      string    `json:"doctor_name,omitempty"`
	ScheduleID      int       `json:"schedule_id,omitempty"`
	TimeSlot        string    `json:"time_slot,omitempty"`
	AppointmentDate string    `json:"appointment_date,omitempty"`
	Reason          string    `json:"reason,omitempty"`
	OccurredAt      time.Time `json:"occurred_at"`
}
