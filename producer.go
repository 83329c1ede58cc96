package kcoop

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/arloliu/kcoop/internal/logging"
	"github.com/arloliu/kcoop/internal/metrics"
	"github.com/arloliu/kcoop/partitioner"
	"github.com/arloliu/kcoop/types"
)

// errNoResult is reported when a Sender returns fewer results than records.
var errNoResult = errors.New("sender returned no result for record")

// Callback receives the outcome of a Send. It is invoked exactly once per Send,
// on the partition's lane goroutine, in submission order within a partition.
type Callback func(DeliveryResult)

// Delivery is the pending outcome of a Send.
type Delivery struct {
	record ProducerRecord
	cb     Callback
	start  time.Time
	done   chan struct{}
	result DeliveryResult
}

func newDelivery(rec ProducerRecord, cb Callback) *Delivery {
	return &Delivery{record: rec, cb: cb, start: time.Now(), done: make(chan struct{})}
}

// Done is closed once the delivery resolved and its callback returned.
func (d *Delivery) Done() <-chan struct{} {
	return d.done
}

// Result blocks until the delivery resolves and returns its outcome.
func (d *Delivery) Result() DeliveryResult {
	<-d.done

	return d.result
}

// Wait blocks until the delivery resolves or ctx is done.
//
// Returns:
//   - DeliveryResult: The outcome (zero value when ctx ended first)
//   - error: ctx.Err() when ctx ended first; a failed delivery is reported in the result
func (d *Delivery) Wait(ctx context.Context) (DeliveryResult, error) {
	select {
	case <-d.done:
		return d.result, nil
	case <-ctx.Done():
		return DeliveryResult{}, ctx.Err()
	}
}

func (d *Delivery) resolve(res DeliveryResult) {
	res.Record = d.record
	d.result = res
	if d.cb != nil {
		d.cb(res)
	}
	close(d.done)
}

// Producer sends records asynchronously.
//
// Records are routed to a partition and queued on that partition's lane. Each
// lane batches records for up to Linger and hands batches to the Sender in
// submission order, so records with the same key are delivered and reported in
// the order they were sent. Failed deliveries are reported, never retried.
//
// Thread Safety:
//   - All methods are safe for concurrent use
//   - Ordering is guaranteed only between Sends made from the same goroutine
type Producer struct {
	cfg         ProducerConfig
	sender      Sender
	partitioner partitioner.Partitioner
	metrics     MetricsCollector
	logger      Logger

	// counts caches partition counts per topic.
	counts *xsync.Map[string, int32]

	// ctx is cancelled when Close gives up on flushing, aborting in-flight sends.
	ctx    context.Context
	cancel context.CancelFunc

	lanesMu      sync.Mutex
	lanes        map[TopicPartition]*lane
	lanesStopped bool
	wg           sync.WaitGroup

	// pending counts unresolved Sends; drained is closed whenever it is zero.
	mu      sync.Mutex
	closed  bool
	pending int
	drained chan struct{}

	closeOnce sync.Once
	closeErr  error
}

// NewProducer creates a Producer.
//
// Parameters:
//   - cfg: Producer configuration (copied, defaults applied)
//   - sender: Transport that writes record batches
//   - opts: Optional configuration (logger, metrics, partitioner)
//
// Returns:
//   - *Producer: Ready producer
//   - error: ErrInvalidConfig or ErrSenderRequired
//
// Example:
//
//	cfg := kcoop.DefaultProducerConfig()
//	p, err := kcoop.NewProducer(&cfg, cluster)
//	p.Send(ctx, kcoop.NewProducerRecord("demo_java", "id_0", "hello world 0"), func(res kcoop.DeliveryResult) {
//	    log.Println(res.Metadata.Partition, res.Metadata.Offset, res.Err)
//	})
//	defer p.Close(context.Background())
func NewProducer(cfg *ProducerConfig, sender Sender, opts ...Option) (*Producer, error) {
	if cfg == nil {
		return nil, ErrInvalidConfig
	}
	if sender == nil {
		return nil, ErrSenderRequired
	}

	conf := *cfg
	conf.SetDefaults()
	if err := conf.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	options := &clientOptions{}
	for _, opt := range opts {
		opt(options)
	}

	loggerInstance := options.logger
	if loggerInstance == nil {
		loggerInstance = logging.NewNop()
	}
	conf.ValidateWithWarnings(loggerInstance)

	metricsCollector := options.metrics
	if metricsCollector == nil {
		metricsCollector = metrics.NewNop()
	}

	part := options.partitioner
	if part == nil {
		part = partitioner.NewDefault()
	}

	drained := make(chan struct{})
	close(drained)

	ctx, cancel := context.WithCancel(context.Background())

	return &Producer{
		cfg:         conf,
		sender:      sender,
		partitioner: part,
		metrics:     metricsCollector,
		logger:      loggerInstance,
		counts:      xsync.NewMap[string, int32](),
		ctx:         ctx,
		cancel:      cancel,
		lanes:       make(map[TopicPartition]*lane),
		drained:     drained,
	}, nil
}

// Send queues rec for delivery and returns without waiting for the broker.
//
// The first Send to a topic without an explicit partition looks up the topic's
// partition count; later Sends use the cached count.
//
// Parameters:
//   - ctx: Bounds partition resolution only; delivery is bounded by RequestTimeout
//   - rec: Record to send; Partition AnyPartition lets the partitioner choose
//   - cb: Optional callback, invoked exactly once with the outcome
//
// Returns:
//   - *Delivery: Future resolved with the same outcome passed to cb
func (p *Producer) Send(ctx context.Context, rec ProducerRecord, cb Callback) *Delivery {
	d := newDelivery(rec, cb)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.metrics.RecordDelivery(rec.Topic, false, 0)
		d.resolve(DeliveryResult{Err: ErrProducerClosed})

		return d
	}
	p.pending++
	if p.pending == 1 {
		p.drained = make(chan struct{})
	}
	p.metrics.SetInFlight(p.pending)
	p.mu.Unlock()

	tp, err := p.route(ctx, &rec)
	if err != nil {
		p.logger.Warn("failed to route record", "topic", rec.Topic, "error", err)
		p.complete(d, DeliveryResult{Err: &types.DeliveryError{Topic: rec.Topic, Partition: rec.Partition, Err: err}})

		return d
	}

	l := p.laneFor(tp)
	if l == nil || !l.push(d) {
		p.complete(d, DeliveryResult{Err: ErrProducerClosed})
	}

	return d
}

// Flush blocks until every Send made before it has resolved and its callback returned.
//
// Sends made while Flush waits are not waited for. Each lane resolves its
// deliveries in queue order, so Flush only waits for the last delivery queued on
// every lane at the time of the call.
//
// Returns:
//   - error: ctx.Err() if ctx ends first
func (p *Producer) Flush(ctx context.Context) error {
	p.lanesMu.Lock()
	tails := make([]*Delivery, 0, len(p.lanes))
	for _, l := range p.lanes {
		if d := l.tail(); d != nil {
			tails = append(tails, d)
		}
	}
	p.lanesMu.Unlock()

	for _, d := range tails {
		select {
		case <-d.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return nil
}

// waitDrained blocks until no Send is pending. After close the pending count
// only falls.
func (p *Producer) waitDrained(ctx context.Context) error {
	p.mu.Lock()
	if p.pending == 0 {
		p.mu.Unlock()
		return nil
	}
	drained := p.drained
	p.mu.Unlock()

	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close rejects new sends, flushes queued records and stops all lanes.
//
// When ctx ends before the flush completes, in-flight sends are aborted; their
// callbacks still fire, with an error. Close is idempotent.
//
// Returns:
//   - error: ctx.Err() when the flush was cut short
func (p *Producer) Close(ctx context.Context) error {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		p.mu.Unlock()

		p.logger.Debug("producer closing, flushing pending records")
		if err := p.waitDrained(ctx); err != nil {
			p.logger.Warn("flush interrupted during close; aborting in-flight sends", "error", err)
			p.closeErr = err
		}
		p.cancel()

		p.lanesMu.Lock()
		p.lanesStopped = true
		for _, l := range p.lanes {
			close(l.stop)
		}
		p.lanesMu.Unlock()
		p.wg.Wait()

		p.logger.Debug("producer closed")
	})

	return p.closeErr
}

// route resolves the destination partition of rec.
//
// An explicit partition must lie below the topic's partition count, so no lane
// is ever started for a partition the broker does not have.
func (p *Producer) route(ctx context.Context, rec *ProducerRecord) (TopicPartition, error) {
	n, err := p.partitionCount(ctx, rec.Topic)
	if err != nil {
		return TopicPartition{}, err
	}

	if rec.Partition >= 0 {
		if rec.Partition >= n {
			return TopicPartition{}, fmt.Errorf("%w: %s has %d partitions, record asked for %d",
				types.ErrUnknownPartition, rec.Topic, n, rec.Partition)
		}

		return TopicPartition{Topic: rec.Topic, Partition: rec.Partition}, nil
	}

	partition, err := p.partitioner.Partition(rec, n)
	if err != nil {
		return TopicPartition{}, err
	}

	return TopicPartition{Topic: rec.Topic, Partition: partition}, nil
}

// partitionCount returns the cached partition count of topic, looking it up on first use.
func (p *Producer) partitionCount(ctx context.Context, topic string) (int32, error) {
	if n, ok := p.counts.Load(topic); ok {
		return n, nil
	}

	lookupCtx, cancel := context.WithTimeout(ctx, p.cfg.RequestTimeout)
	n, err := p.sender.Partitions(lookupCtx, topic)
	cancel()
	if err != nil {
		return 0, fmt.Errorf("failed to look up partitions of %s: %w", topic, err)
	}
	p.counts.Store(topic, n)

	return n, nil
}

// laneFor returns the lane of tp, starting it on first use. It returns nil
// once Close has stopped the lanes.
func (p *Producer) laneFor(tp TopicPartition) *lane {
	p.lanesMu.Lock()
	defer p.lanesMu.Unlock()

	if p.lanesStopped {
		return nil
	}

	l, ok := p.lanes[tp]
	if !ok {
		l = &lane{
			producer: p,
			tp:       tp,
			signal:   make(chan struct{}, 1),
			stop:     make(chan struct{}),
		}
		p.lanes[tp] = l
		p.wg.Add(1)
		go l.run()
		p.logger.Debug("partition lane started", "partition", tp.String())
	}

	return l
}

// sendBatch hands batch to the sender and resolves every delivery in order.
func (p *Producer) sendBatch(tp TopicPartition, batch []*Delivery) {
	records := make([]ProducerRecord, len(batch))
	for i, d := range batch {
		records[i] = d.record
		records[i].Partition = tp.Partition
	}

	ctx, cancel := context.WithTimeout(p.ctx, p.cfg.RequestTimeout)
	results := p.sender.Send(ctx, tp, records)
	cancel()
	p.metrics.RecordBatch(len(batch))

	for i, d := range batch {
		res := DeliveryResult{Err: errNoResult}
		if i < len(results) {
			res = results[i]
		}
		if res.Err != nil {
			res.Metadata = RecordMetadata{}
			if !errors.Is(res.Err, ErrDeliveryFailed) {
				res.Err = &types.DeliveryError{Topic: tp.Topic, Partition: tp.Partition, Err: res.Err}
			}
			p.logger.Warn("record delivery failed", "partition", tp.String(), "error", res.Err)
		}
		p.complete(d, res)
	}
}

// complete resolves d and releases its pending slot.
func (p *Producer) complete(d *Delivery, res DeliveryResult) {
	p.metrics.RecordDelivery(d.record.Topic, res.Err == nil, time.Since(d.start).Seconds())
	d.resolve(res)

	p.mu.Lock()
	p.pending--
	if p.pending == 0 {
		close(p.drained)
	}
	p.metrics.SetInFlight(p.pending)
	p.mu.Unlock()
}

// lane serializes sends to one partition.
type lane struct {
	producer *Producer
	tp       TopicPartition

	mu      sync.Mutex
	queue   []*Delivery
	last    *Delivery
	stopped bool
	signal  chan struct{}
	stop    chan struct{}
}

// push queues d. It returns false once the lane has stopped; the caller then
// owns the resolution of d.
func (l *lane) push(d *Delivery) bool {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, d)
	l.last = d
	l.mu.Unlock()

	select {
	case l.signal <- struct{}{}:
	default:
	}

	return true
}

// tail returns the most recently queued delivery, or nil when it already resolved.
func (l *lane) tail() *Delivery {
	l.mu.Lock()
	d := l.last
	l.mu.Unlock()

	if d == nil {
		return nil
	}
	select {
	case <-d.done:
		return nil
	default:
		return d
	}
}

func (l *lane) queued() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.queue)
}

// take removes up to n queued deliveries.
func (l *lane) take(n int) []*Delivery {
	l.mu.Lock()
	defer l.mu.Unlock()

	k := min(n, len(l.queue))
	batch := make([]*Delivery, k)
	copy(batch, l.queue[:k])
	l.queue = l.queue[k:]

	return batch
}

func (l *lane) run() {
	defer l.producer.wg.Done()
	batchSize := l.producer.cfg.BatchSize

	for {
		select {
		case <-l.signal:
		case <-l.stop:
			l.shutdown(batchSize)
			l.producer.logger.Debug("partition lane stopped", "partition", l.tp.String())

			return
		}

		l.linger(batchSize)
		l.drain(batchSize)
	}
}

// linger waits up to Linger for the queue to fill a batch.
func (l *lane) linger(batchSize int) {
	if l.producer.cfg.Linger <= 0 || l.queued() >= batchSize {
		return
	}

	timer := time.NewTimer(l.producer.cfg.Linger)
	defer timer.Stop()

	for l.queued() < batchSize {
		select {
		case <-l.signal:
		case <-timer.C:
			return
		case <-l.stop:
			return
		}
	}
}

// shutdown drains the queue and marks the lane stopped once it is empty.
// Pushes after that are refused.
func (l *lane) shutdown(batchSize int) {
	for {
		l.drain(batchSize)

		l.mu.Lock()
		if len(l.queue) == 0 {
			l.stopped = true
			l.mu.Unlock()

			return
		}
		l.mu.Unlock()
	}
}

func (l *lane) drain(batchSize int) {
	for {
		batch := l.take(batchSize)
		if len(batch) == 0 {
			return
		}
		l.producer.sendBatch(l.tp, batch)
	}
}
