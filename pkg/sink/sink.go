package sink

import (
	"context"
	"sync"
	"time"

	"github.com/cordonnx/cordonnx/pkg/stats"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	queueCapacity  = 50000
	flushBatchSize = 500
	flushInterval  = 200 * time.Millisecond
)

// Collection is the slice of mongo.Collection the sink writes through.
type Collection interface {
	BulkWrite(ctx context.Context, models []mongo.WriteModel, opts ...*options.BulkWriteOptions) (*mongo.BulkWriteResult, error)
}

// Sink batches write models into bulk Mongo writes. Producers block
// when the queue is full, so a slow database applies backpressure to
// the TCP readers instead of growing memory without bound.
type Sink struct {
	name       string
	collection Collection

	queue chan mongo.WriteModel
	wg    sync.WaitGroup
}

func New(name string, collection Collection) *Sink {
	return &Sink{
		name:       name,
		collection: collection,
		queue:      make(chan mongo.WriteModel, queueCapacity),
	}
}

// Enqueue queues one write model, blocking when the sink is saturated.
func (s *Sink) Enqueue(model mongo.WriteModel) {
	s.queue <- model
	stats.SinkQueueDepth.WithLabelValues(s.name).Set(float64(len(s.queue)))
}

// Start runs the flush worker until the context is cancelled, then
// drains whatever is still queued.
func (s *Sink) Start(ctx context.Context) {
	s.wg.Add(1)

	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()
}

// Wait blocks until the worker has drained and exited.
func (s *Sink) Wait() {
	s.wg.Wait()
}

func (s *Sink) run(ctx context.Context) {
	batch := make([]mongo.WriteModel, 0, flushBatchSize)
	timer := time.NewTimer(flushInterval)
	defer timer.Stop()

	for {
		select {
		case model := <-s.queue:
			batch = append(batch, model)

			if len(batch) >= flushBatchSize {
				s.flush(batch)
				batch = batch[:0]

				if !timer.Stop() {
					<-timer.C
				}
				timer.Reset(flushInterval)
			}
		case <-timer.C:
			if len(batch) > 0 {
				s.flush(batch)
				batch = batch[:0]
			}
			timer.Reset(flushInterval)
		case <-ctx.Done():
			s.drain(batch)
			return
		}
	}
}

func (s *Sink) drain(batch []mongo.WriteModel) {
	for {
		select {
		case model := <-s.queue:
			batch = append(batch, model)

			if len(batch) >= flushBatchSize {
				s.flush(batch)
				batch = batch[:0]
			}
		default:
			if len(batch) > 0 {
				s.flush(batch)
			}
			return
		}
	}
}

// flush bulk writes the batch unordered. When the bulk write fails the
// models are retried one at a time so a single poison document cannot
// take the rest of the batch down with it.
func (s *Sink) flush(batch []mongo.WriteModel) {
	stats.SinkFlushes.WithLabelValues(s.name).Inc()
	stats.SinkQueueDepth.WithLabelValues(s.name).Set(float64(len(s.queue)))

	opts := options.BulkWrite().SetOrdered(false)

	startTime := time.Now()
	_, err := s.collection.BulkWrite(context.Background(), batch, opts)
	if err == nil {
		stats.SinkDocuments.WithLabelValues(s.name).Add(float64(len(batch)))
		log.Debug().
			Str("sink", s.name).
			Int("length", len(batch)).
			Str("time", time.Since(startTime).String()).
			Msg("Bulk write")
		return
	}

	log.Error().Err(err).Str("sink", s.name).Int("length", len(batch)).Msg("Bulk write failed, retrying per document")

	for _, model := range batch {
		if _, err := s.collection.BulkWrite(context.Background(), []mongo.WriteModel{model}, opts); err != nil {
			stats.SinkDrops.WithLabelValues(s.name).Inc()
			log.Error().Err(err).Str("sink", s.name).Msg("Dropped document after write failure")
		} else {
			stats.SinkDocuments.WithLabelValues(s.name).Inc()
		}
	}
}
