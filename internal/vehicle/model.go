package vehicle

import "time"

// Vehicle is a rentable unit of the fleet. AccessToken is the vehicle-scoped
// credential its onboard unit uses to push ride telemetry.
type Vehicle struct {
	ID          string
	Available   bool
	Latitude    float64
	Longitude   float64
	AccessToken string
	CreatedAt   time.Time
}
