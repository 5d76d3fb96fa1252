package alerts

import (
	"context"
	"fmt"
	"time"

	"github.com/cordonnx/cordonnx/pkg/telematics"
	"github.com/rs/zerolog/log"
)

const idleLookback = 24 * time.Hour

// checkIdle raises an alert each time a stationary vehicle with the
// ignition on crosses into a new idle duration bucket. Buckets widen
// with duration, so a vehicle idling all day raises a handful of
// alerts rather than one per packet.
func (e *Engine) checkIdle(ctx context.Context, packet *telematics.Packet) []telematics.AlertEvent {
	ignitionOn, known := packet.IgnitionOn()
	if !known {
		return nil
	}

	if !ignitionOn || packet.Speed() > 0 {
		e.mu.Lock()
		delete(e.idleBucket, packet.IMEI)
		e.mu.Unlock()
		return nil
	}

	now := e.Now()

	history, err := e.History.RecentLocations(ctx, packet.IMEI, now.Add(-idleLookback))
	if err != nil {
		log.Error().Err(err).Str("imei", packet.IMEI).Msg("Failed to load history for idle check")
		return nil
	}

	idleSince := idleStart(history, packet.Timestamp)
	bucket := idleBucketLabel(now.Sub(idleSince))
	if bucket == "" {
		return nil
	}

	e.mu.Lock()
	previous := e.idleBucket[packet.IMEI]
	e.idleBucket[packet.IMEI] = bucket
	e.mu.Unlock()

	if bucket == previous {
		return nil
	}

	return []telematics.AlertEvent{
		e.newEvent(packet, telematics.AlertTypeIdle, fmt.Sprintf("Vehicle idle for %s", bucket)),
	}
}

// idleStart walks the newest-first history back to the last packet
// that was not idling with the ignition on. Ignition-off parking does
// not count as idle time, so an ignition-off sample terminates the
// walk the same as movement does. When the whole window is idle, the
// oldest idle packet wins.
func idleStart(history []telematics.Packet, fallback time.Time) time.Time {
	idleSince := fallback

	for i := range history {
		ignitionOn, known := history[i].IgnitionOn()
		if !known || !ignitionOn || history[i].Speed() > 0 {
			break
		}
		idleSince = history[i].Timestamp
	}

	return idleSince
}

// idleBucketLabel maps an idle duration onto its reporting bucket:
// 10 minute steps inside the first hour, hourly inside the first day,
// daily beyond.
func idleBucketLabel(idle time.Duration) string {
	switch {
	case idle < 10*time.Minute:
		return ""
	case idle < time.Hour:
		return fmt.Sprintf("%d minutes", int(idle/(10*time.Minute))*10)
	case idle < 24*time.Hour:
		hours := int(idle / time.Hour)
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	default:
		days := int(idle / (24 * time.Hour))
		if days == 1 {
			return "1 day"
		}
		return fmt.Sprintf("%d days", days)
	}
}
