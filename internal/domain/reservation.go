package domain

// TimeSlot is a bookable hour of the court, formatted HH:MM.
type TimeSlot string

// TimeSlots lists every bookable slot in display order. There is no slot over the lunch break.
var TimeSlots = []TimeSlot{
	"07:00", "08:00", "09:00", "10:00", "11:00",
	"14:00", "15:00", "16:00", "17:00", "18:00", "19:00", "20:00",
}

// Valid reports whether s is one of TimeSlots.
func (s TimeSlot) Valid() bool {
	for _, slot := range TimeSlots {
		if slot == s {
			return true
		}
	}
	return false
}

// Reservation books one slot of the court in a city on a given day.
type Reservation struct {
	ID           int64    `json:"id"`
	Date         Date     `json:"date"`
	TimeSlot     TimeSlot `json:"timeSlot"`
	CustomerName string   `json:"customerName"`
	City         string   `json:"city"`
}

// DayStatus classifies a calendar day for highlighting.
type DayStatus string

const (
	DayStatusPast     DayStatus = "past"
	DayStatusToday    DayStatus = "today"
	DayStatusReserved DayStatus = "reserved"
	DayStatusOpen     DayStatus = "open"
)

// StatusOf returns the highlighting status of day relative to today.
// Past days never show as reserved.
func StatusOf(day, today Date, reserved map[Date]struct{}) DayStatus {
	switch {
	case day.Before(today):
		return DayStatusPast
	case day == today:
		return DayStatusToday
	}
	if _, ok := reserved[day]; ok {
		return DayStatusReserved
	}
	return DayStatusOpen
}
