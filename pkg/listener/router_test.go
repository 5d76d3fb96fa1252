package listener

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cordonnx/cordonnx/pkg/sink"
	"github.com/cordonnx/cordonnx/pkg/telematics"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type countingCollection struct {
	mu     sync.Mutex
	writes int
}

func (c *countingCollection) BulkWrite(ctx context.Context, models []mongo.WriteModel, opts ...*options.BulkWriteOptions) (*mongo.BulkWriteResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.writes += len(models)
	return &mongo.BulkWriteResult{}, nil
}

func (c *countingCollection) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.writes
}

type recordingAlerts struct {
	mu      sync.Mutex
	packets []*telematics.Packet
}

func (a *recordingAlerts) Evaluate(ctx context.Context, packet *telematics.Packet) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.packets = append(a.packets, packet)
}

type routerFixture struct {
	router  *Router
	history *countingCollection
	latest  *countingCollection
	health  *countingCollection
	sos     *countingCollection
	alerts  *recordingAlerts
	cancel  context.CancelFunc
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()

	fixture := &routerFixture{
		history: &countingCollection{},
		latest:  &countingCollection{},
		health:  &countingCollection{},
		sos:     &countingCollection{},
		alerts:  &recordingAlerts{},
	}

	ctx, cancel := context.WithCancel(context.Background())
	fixture.cancel = cancel

	historySink := sink.New("history", fixture.history)
	latestSink := sink.New("latest", fixture.latest)
	healthSink := sink.New("health", fixture.health)
	sosSink := sink.New("sos", fixture.sos)

	for _, s := range []*sink.Sink{historySink, latestSink, healthSink, sosSink} {
		s.Start(ctx)
	}

	fixture.router = &Router{
		History: historySink,
		Latest:  latestSink,
		Health:  healthSink,
		SOS:     sosSink,
		RawLog:  sink.New("rawlog", &countingCollection{}),
		Alerts:  fixture.alerts,
	}

	return fixture
}

func waitForCount(t *testing.T, collection *countingCollection, want int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if collection.count() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("count = %d, want %d", collection.count(), want)
}

func validLocationPacket() *telematics.Packet {
	status := 1
	lat := 18.5083
	lon := 73.7542

	return &telematics.Packet{
		Type:      telematics.PacketTypeLocation,
		IMEI:      "123456789012345",
		Timestamp: time.Now().UTC(),
		Packet:    &telematics.PacketMeta{ID: "1"},
		GPS: &telematics.GPSData{
			Status:    &status,
			Latitude:  &lat,
			Longitude: &lon,
		},
	}
}

func TestRouteValidLocation(t *testing.T) {
	fixture := newRouterFixture(t)
	defer fixture.cancel()

	fixture.router.Route(context.Background(), validLocationPacket())

	waitForCount(t, fixture.history, 1)
	waitForCount(t, fixture.latest, 1)

	if len(fixture.alerts.packets) != 1 {
		t.Errorf("alert engine saw %d packets, want 1", len(fixture.alerts.packets))
	}
}

func TestRouteInvalidFixSkipsLatest(t *testing.T) {
	fixture := newRouterFixture(t)
	defer fixture.cancel()

	packet := validLocationPacket()
	noFix := 0
	packet.GPS.Status = &noFix

	fixture.router.Route(context.Background(), packet)

	waitForCount(t, fixture.history, 1)

	time.Sleep(300 * time.Millisecond)
	if fixture.latest.count() != 0 {
		t.Errorf("latest written for invalid fix")
	}
	if len(fixture.alerts.packets) != 0 {
		t.Errorf("alert engine evaluated an invalid fix")
	}
}

func TestRouteSOSLocation(t *testing.T) {
	fixture := newRouterFixture(t)
	defer fixture.cancel()

	packet := validLocationPacket()
	packet.Packet.ID = "10"

	fixture.router.Route(context.Background(), packet)

	waitForCount(t, fixture.history, 1)
	waitForCount(t, fixture.sos, 1)
}

func TestRouteHealthAndEmergency(t *testing.T) {
	fixture := newRouterFixture(t)
	defer fixture.cancel()

	fixture.router.Route(context.Background(), &telematics.Packet{
		Type: telematics.PacketTypeHealth,
		IMEI: "123456789012345",
	})
	fixture.router.Route(context.Background(), &telematics.Packet{
		Type: telematics.PacketTypeEmergency,
		IMEI: "123456789012345",
	})

	waitForCount(t, fixture.health, 1)
	waitForCount(t, fixture.sos, 1)
	waitForCount(t, fixture.history, 1)

	if len(fixture.alerts.packets) != 1 {
		t.Errorf("alert engine saw %d packets, want 1 (emergency)", len(fixture.alerts.packets))
	}
}
