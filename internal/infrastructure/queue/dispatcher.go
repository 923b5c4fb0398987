package queue

import (
	"context"
	"hash/fnv"

	"github.com/rs/zerolog"
)

const (
	defaultWorkers = 8
	channelBuffer  = 256
)

// Broadcast is one room-directed frame awaiting fan-out.
type Broadcast struct {
	Room  string
	Event string
	Frame []byte
}

// DeliverFunc performs the actual fan-out of a single broadcast.
type DeliverFunc func(Broadcast)

// Dispatcher routes broadcasts to a fixed set of workers using consistent
// hashing on the room id, guaranteeing per-room delivery ordering.
type Dispatcher struct {
	workers []chan Broadcast
	deliver DeliverFunc
	log     zerolog.Logger
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, deliver DeliverFunc, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan Broadcast, numWorkers),
		deliver: deliver,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan Broadcast, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		go d.runWorker(ctx, i, ch)
	}
}

// Enqueue hands a broadcast to the worker responsible for its room. The call
// blocks only when the shard's buffer is full.
func (d *Dispatcher) Enqueue(b Broadcast) {
	d.workers[d.shardIndex(b.Room)] <- b
}

// shardIndex maps a room id deterministically to a worker index.
func (d *Dispatcher) shardIndex(room string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(room))
	return int(h.Sum32()) % len(d.workers)
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan Broadcast) {
	for {
		select {
		case <-ctx.Done():
			return
		case b, ok := <-ch:
			if !ok {
				return
			}
			d.deliver(b)
			d.log.Trace().
				Str("room", b.Room).
				Str("event", b.Event).
				Int("worker_id", id).
				Msg("broadcast delivered")
		}
	}
}
