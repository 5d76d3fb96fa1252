package listener

import (
	"context"

	"github.com/cordonnx/cordonnx/pkg/sink"
	"github.com/cordonnx/cordonnx/pkg/stats"
	"github.com/cordonnx/cordonnx/pkg/telematics"
	"github.com/rs/zerolog/log"
)

// AlertEvaluator is the alert engine surface the router needs.
type AlertEvaluator interface {
	Evaluate(ctx context.Context, packet *telematics.Packet)
}

// Router fans each decoded packet out to the persistence sinks and the
// alert engine.
type Router struct {
	History *sink.Sink
	Latest  *sink.Sink
	Health  *sink.Sink
	SOS     *sink.Sink
	RawLog  *sink.Sink

	Alerts        AlertEvaluator
	Subscriptions *RawLogSubscriptions
}

// sosPacketID flags a location packet sent because the panic button
// was pressed.
const sosPacketID = "10"

func (r *Router) Route(ctx context.Context, packet *telematics.Packet) {
	if packet.IMEI != "" && r.Subscriptions != nil && r.Subscriptions.Contains(packet.IMEI) {
		r.RawLog.Enqueue(sink.RawLog(packet.IMEI, packet.Raw, packet.IngestedAt))
	}

	switch packet.Type {
	case telematics.PacketTypeLocation:
		r.History.Enqueue(sink.Insert(packet))

		if packet.Packet != nil && packet.Packet.ID == sosPacketID {
			r.SOS.Enqueue(sink.Insert(packet))
		}

		if packet.HasValidFix() {
			r.Latest.Enqueue(sink.UpsertLatest(packet))

			if r.Alerts != nil {
				r.Alerts.Evaluate(ctx, packet)
			}
		}

	case telematics.PacketTypeHealth:
		r.Health.Enqueue(sink.Insert(packet))

	case telematics.PacketTypeEmergency:
		r.History.Enqueue(sink.Insert(packet))
		r.SOS.Enqueue(sink.Insert(packet))

		if r.Alerts != nil {
			r.Alerts.Evaluate(ctx, packet)
		}

	default:
		stats.DecodeErrors.Inc()
		log.Debug().Str("raw", packet.Raw).Msg("Unparseable frame")
	}
}
