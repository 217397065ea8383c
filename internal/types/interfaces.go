package types

import (
	"context"
	"time"
)

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the real system time (always UTC).
type RealClock struct{}

// Now returns the current time in UTC.
func (RealClock) Now() time.Time { return time.Now().UTC() }

// AlertSink accepts threshold alerts for insertion with window-scoped
// deduplication. InsertIfAbsent must perform the existence check and the
// insert as one logical operation so that concurrent evaluations for the
// same farm cannot produce duplicates within the window.
type AlertSink interface {
	// InsertIfAbsent inserts the alert unless one with the same
	// (farm_id, alert_type, category) was created after `since`. Returns
	// true when a row was inserted.
	InsertIfAbsent(ctx context.Context, alert *Alert, since time.Time) (bool, error)
}

// StateStore is the key->timestamp map backing dismissal and notification
// bookkeeping.
type StateStore interface {
	Get(ctx context.Context, farmID, key string) (time.Time, bool, error)
	Put(ctx context.Context, farmID, key string, ts time.Time) error
}

// ContactLog answers whether a human expert was contacted for a farm at or
// after a given time. Advisory context only; it does not gate the urgent
// notification flag.
type ContactLog interface {
	ContactedSince(ctx context.Context, farmID string, since time.Time) (bool, error)
}

// WeatherSource retrieves the current + daily forecast for a coordinate.
type WeatherSource interface {
	Forecast(ctx context.Context, lat, lon float64) (*WeatherSnapshot, error)
}

// NotificationDispatcher publishes a critical-pest notification to the
// delivery side channel. Delivery itself is out of process; the dispatcher
// only exposes the signal.
type NotificationDispatcher interface {
	DispatchCriticalPest(ctx context.Context, farmID string, rec Recommendation, report PestReport) error
}
