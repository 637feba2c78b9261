package services

import "time"

// Canteen service hours, local time: open from 06:00, closed from 19:00.
const (
	OpeningHour = 6
	ClosingHour = 19
)

type CanteenHours struct {
	location *time.Location
}

func NewCanteenHours(loc *time.Location) *CanteenHours {
	if loc == nil {
		loc = time.Local
	}
	return &CanteenHours{location: loc}
}

// IsOpen reports whether the canteen serves at t.
func (h *CanteenHours) IsOpen(t time.Time) bool {
	hour := t.In(h.location).Hour()
	return hour >= OpeningHour && hour < ClosingHour
}

// CanteenStatus is the payload of the public canteen status endpoint.
type CanteenStatus struct {
	Open      bool   `json:"open"`
	Opens     string `json:"opens"`
	Closes    string `json:"closes"`
	LocalTime string `json:"local_time"`
}

func (h *CanteenHours) Status(t time.Time) CanteenStatus {
	return CanteenStatus{
		Open:      h.IsOpen(t),
		Opens:     "06:00",
		Closes:    "19:00",
		LocalTime: t.In(h.location).Format("15:04"),
	}
}
