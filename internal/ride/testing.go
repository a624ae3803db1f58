package ride

import "time"

// BackdateStart is a test helper that rewrites a ride's start time on the
// in-memory store so elapsed-time pricing can be exercised without sleeping.
func BackdateStart(s Store, rideID string, start time.Time) {
	if mem, ok := s.(*memoryStore); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		if r, found := mem.rides[rideID]; found {
			r.StartTime = start.UTC()
			mem.rides[rideID] = r
		}
	}
}
