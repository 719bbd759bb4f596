package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/roadwatch/damage-portal/internal/core/ports"
	"github.com/roadwatch/damage-portal/internal/pkg/metrics"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
)

// Dispatcher routes batch-submitted damage reports to a fixed set of workers
// using consistent hashing on the location, so reports for one location are
// stored in submission order.
type Dispatcher struct {
	workers []chan ports.CreateDamageInput
	service ports.DamageService
	log     zerolog.Logger
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, service ports.DamageService, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan ports.CreateDamageInput, numWorkers),
		service: service,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan ports.CreateDamageInput, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		go d.runWorker(ctx, i, ch)
	}
}

// Enqueue hands a report to the worker responsible for its location. It blocks
// while that worker's buffer is full, until ctx is done.
func (d *Dispatcher) Enqueue(ctx context.Context, input ports.CreateDamageInput) error {
	idx := d.shardIndex(input.Location)
	select {
	case d.workers[idx] <- input:
		metrics.IngestQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// EnqueueBatch enqueues reports in order and returns how many were accepted.
func (d *Dispatcher) EnqueueBatch(ctx context.Context, inputs []ports.CreateDamageInput) (int, error) {
	for i, in := range inputs {
		if err := d.Enqueue(ctx, in); err != nil {
			return i, err
		}
	}
	return len(inputs), nil
}

// shardIndex maps a location deterministically to a worker index.
func (d *Dispatcher) shardIndex(location string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(strings.TrimSpace(location))))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan ports.CreateDamageInput) {
	depth := metrics.IngestQueueDepth.WithLabelValues(strconv.Itoa(id))
	for {
		select {
		case <-ctx.Done():
			return
		case input, ok := <-ch:
			if !ok {
				return
			}
			depth.Set(float64(len(ch)))
			if _, err := d.service.Create(ctx, input); err != nil {
				metrics.IngestErrorsTotal.Inc()
				d.log.Error().Err(err).
					Str("location", input.Location).
					Str("type", input.Type).
					Int("worker_id", id).
					Msg("damage ingestion failed")
			}
		}
	}
}
