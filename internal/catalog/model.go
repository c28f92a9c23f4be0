package catalog

type Category struct {
	ID          int
	Name        string
	Description string
}

type Doctor struct {
	ID              int
	Name            string
	ExperienceYears string
	Qualifications  string
	Ratings         float64
	CategoryID      int
}

// Slot is a recurring time-of-day label such as "10:00". It only becomes a
// bookable unit once combined with a doctor and a calendar date.
type Slot struct {
	ID       int
	TimeSlot string
}
