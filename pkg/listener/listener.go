package listener

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/cordonnx/cordonnx/pkg/ais140"
	"github.com/cordonnx/cordonnx/pkg/framer"
	"github.com/cordonnx/cordonnx/pkg/stats"
	"github.com/cordonnx/cordonnx/pkg/telematics"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/panics"
)

// readDeadline is how long a device may stay silent before the
// connection is dropped. Trackers report at most every few minutes, so
// anything quieter than this is gone.
const readDeadline = 300 * time.Second

// Listener accepts tracker TCP connections on one port and pushes
// every decoded packet through the router.
type Listener struct {
	Address    string
	Terminator framer.Terminator

	// Ack echoes a short acknowledgement line back to the device for
	// every recognised frame. Most tracker firmware ignores it, so it
	// stays off unless configured.
	Ack bool

	Decoder *ais140.Decoder
	Router  *Router

	listener net.Listener
}

// Run accepts connections until the context is cancelled. Each
// connection gets its own goroutine and framer, a panicking handler
// only takes its own connection down.
func (l *Listener) Run(ctx context.Context) error {
	var err error
	l.listener, err = net.Listen("tcp", l.Address)
	if err != nil {
		return err
	}

	log.Info().Str("address", l.Address).Msg("Listening for tracker connections")

	go func() {
		<-ctx.Done()
		l.listener.Close()
	}()

	for {
		conn, err := l.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}

			log.Error().Err(err).Msg("Failed to accept connection")
			continue
		}

		go func(conn net.Conn) {
			var catcher panics.Catcher
			catcher.Try(func() {
				l.handleConnection(ctx, conn)
			})

			if recovered := catcher.Recovered(); recovered != nil {
				log.Error().
					Str("remote", conn.RemoteAddr().String()).
					Str("panic", recovered.String()).
					Msg("Connection handler panicked")
			}
		}(conn)
	}
}

func (l *Listener) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	stats.TCPConnections.Inc()
	stats.TCPConnectionsActive.Inc()
	defer stats.TCPConnectionsActive.Dec()

	log.Debug().Str("remote", conn.RemoteAddr().String()).Msg("Tracker connected")

	streamFramer := framer.New(l.Terminator)
	buffer := make([]byte, 4096)

	for {
		if err := conn.SetReadDeadline(time.Now().Add(readDeadline)); err != nil {
			return
		}

		n, err := conn.Read(buffer)
		if err != nil {
			if err != io.EOF {
				log.Debug().Err(err).Str("remote", conn.RemoteAddr().String()).Msg("Tracker disconnected")
			}
			return
		}

		for _, frame := range streamFramer.Push(buffer[:n]) {
			stats.FramesReceived.Inc()
			l.handleFrame(ctx, conn, string(frame))
		}

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

func (l *Listener) handleFrame(ctx context.Context, conn net.Conn, raw string) {
	packet := l.Decoder.Decode(ctx, raw)

	stats.PacketsDecoded.WithLabelValues(string(packet.Type)).Inc()

	l.Router.Route(ctx, packet)

	if l.Ack && packet.Type != telematics.PacketTypeUnknown && packet.IMEI != "" {
		if _, err := fmt.Fprintf(conn, "$ACK,%s*\r\n", packet.IMEI); err != nil {
			log.Debug().Err(err).Str("imei", packet.IMEI).Msg("Failed to write acknowledgement")
		}
	}
}
