package kcoop

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/arloliu/kcoop/internal/backoff"
	"github.com/arloliu/kcoop/internal/hooks"
	"github.com/arloliu/kcoop/internal/ledger"
	"github.com/arloliu/kcoop/internal/logging"
	"github.com/arloliu/kcoop/internal/metrics"
	"github.com/arloliu/kcoop/strategy"
	"github.com/arloliu/kcoop/types"
)

// maxRetryBackoff caps the delay between failed fetches.
const maxRetryBackoff = 5 * time.Second

// RecordHandler processes records delivered by a Consumer.
//
// Handle is called synchronously on the poll loop, one record at a time, in
// offset order within each partition. Returning an error stops the consumer.
type RecordHandler interface {
	Handle(ctx context.Context, rec *ConsumerRecord) error
}

// RecordHandlerFunc adapts a function to RecordHandler.
type RecordHandlerFunc func(ctx context.Context, rec *ConsumerRecord) error

// Handle implements RecordHandler.
func (f RecordHandlerFunc) Handle(ctx context.Context, rec *ConsumerRecord) error {
	return f(ctx, rec)
}

// Consumer is a cooperative consumer group member.
//
// Consumer runs a single poll loop that joins the group, applies rebalance plans,
// fetches records for owned partitions and dispatches them to a RecordHandler.
// Consumed positions live in an offset ledger that is committed periodically,
// before a partition is released, and on shutdown.
//
// Thread Safety:
//   - Run, Start and Stop manage one loop; a Consumer runs at most once
//   - Wakeup, State, Assignment, Offsets and the other accessors are safe from any goroutine
//   - The RecordHandler and the partition hooks run on the loop goroutine
//
// Lifecycle:
//   - Create with NewConsumer()
//   - Call Run() on a dedicated goroutine, or Start()
//   - Call Wakeup() from any goroutine to request shutdown, or Stop() to request and wait
type Consumer struct {
	cfg        ConsumerConfig
	broker     ConsumerBroker
	source     PartitionSource
	handler    RecordHandler
	rebalancer Rebalancer
	hooks      Hooks
	metrics    MetricsCollector
	logger     Logger
	memberID   string

	ledger  *ledger.Ledger
	backoff *backoff.Backoff

	// Loop-owned state
	session    types.GroupSession
	lastCommit time.Time
	hookCtx    context.Context

	state      atomic.Int32 // ConsumerState
	stateSince atomic.Int64 // unix nanoseconds
	generation atomic.Int64

	mu       sync.Mutex
	started  bool
	err      error
	wakeOnce sync.Once
	wakeup   chan struct{}
	done     chan struct{}
}

// NewConsumer creates a Consumer.
//
// The configuration is completed with defaults and validated. The rebalance
// protocol is selected by cfg.AssignmentStrategy unless WithRebalancer is given.
//
// Parameters:
//   - cfg: Consumer configuration (copied)
//   - broker: Group coordinator, fetcher and offset store
//   - handler: Application record handler
//   - opts: Optional configuration (hooks, metrics, logger, member ID, rebalancer)
//
// Returns:
//   - *Consumer: Initialized consumer
//   - error: ErrInvalidConfig, ErrBrokerRequired or ErrHandlerRequired
//
// Example:
//
//	cfg := kcoop.DefaultConsumerConfig()
//	cfg.GroupID = "my-third-application"
//	cfg.Topics = []string{"demo_java"}
//	c, err := kcoop.NewConsumer(&cfg, broker, kcoop.RecordHandlerFunc(handle))
func NewConsumer(cfg *ConsumerConfig, broker ConsumerBroker, handler RecordHandler, opts ...Option) (*Consumer, error) {
	if cfg == nil {
		return nil, ErrInvalidConfig
	}
	if broker == nil {
		return nil, ErrBrokerRequired
	}
	if handler == nil {
		return nil, ErrHandlerRequired
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

	rebalancer := options.rebalancer
	if rebalancer == nil {
		r, err := strategy.ForID(conf.AssignmentStrategy)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		rebalancer = r
	}

	source := options.source
	if source == nil {
		source = broker
	}

	memberID := options.memberID
	if memberID == "" {
		prefix := conf.ClientID
		if prefix == "" {
			prefix = "consumer"
		}
		memberID = prefix + "-" + uuid.NewString()
	}

	c := &Consumer{
		cfg:        conf,
		broker:     broker,
		source:     source,
		handler:    handler,
		rebalancer: rebalancer,
		hooks:      hooks.Merge(options.hooks),
		metrics:    metricsCollector,
		logger:     loggerInstance,
		memberID:   memberID,
		ledger:     ledger.New(),
		backoff:    backoff.New(conf.RetryBackoff, maxRetryBackoff),
		hookCtx:    context.Background(),
		wakeup:     make(chan struct{}),
		done:       make(chan struct{}),
	}
	c.state.Store(int32(StateInit))
	c.stateSince.Store(time.Now().UnixNano())

	return c, nil
}

// Run joins the group and runs the poll loop on the calling goroutine until
// the consumer is woken up, ctx is cancelled, or a fatal error occurs.
//
// Cancelling ctx has the same effect as Wakeup: the loop drains, commits
// consumed offsets on a context bounded by CommitTimeout and leaves the group.
//
// Parameters:
//   - ctx: Loop context; cancellation requests a graceful shutdown
//
// Returns:
//   - error: nil after a graceful shutdown, a *ProcessingError when the handler
//     failed, or the join, fetch or rebalance error that stopped the loop
func (c *Consumer) Run(ctx context.Context) error {
	if err := c.markStarted(); err != nil {
		return err
	}

	err := c.run(ctx)
	c.finish(err)

	return err
}

// Start runs the poll loop on a new goroutine.
//
// Returns:
//   - error: ErrAlreadyStarted if the consumer was started before
func (c *Consumer) Start(ctx context.Context) error {
	if err := c.markStarted(); err != nil {
		return err
	}

	go func() {
		c.finish(c.run(ctx))
	}()

	return nil
}

// Wakeup asks the poll loop to stop. An in-flight fetch returns early and
// dispatch stops before the next record.
//
// Safe to call from any goroutine, any number of times, before or after Run.
func (c *Consumer) Wakeup() {
	c.wakeOnce.Do(func() {
		close(c.wakeup)
	})
}

// Stop calls Wakeup and waits for the loop to close.
//
// Parameters:
//   - ctx: Bounds the wait; the loop keeps shutting down when ctx expires first
//
// Returns:
//   - error: The loop's terminal error, ctx.Err() on timeout, or ErrNotStarted
func (c *Consumer) Stop(ctx context.Context) error {
	c.mu.Lock()
	started := c.started
	c.mu.Unlock()
	if !started {
		return ErrNotStarted
	}

	c.Wakeup()

	select {
	case <-c.done:
		return c.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed once the loop has reached StateClosed.
func (c *Consumer) Done() <-chan struct{} {
	return c.done
}

// Err returns the loop's terminal error. It is nil while the loop runs.
func (c *Consumer) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.err
}

// State returns the current consumer state.
func (c *Consumer) State() ConsumerState {
	return ConsumerState(c.state.Load())
}

// MemberID returns the consumer's group member ID.
func (c *Consumer) MemberID() string {
	return c.memberID
}

// Generation returns the group generation of the last applied rebalance.
func (c *Consumer) Generation() int64 {
	return c.generation.Load()
}

// Assignment returns the partitions currently owned, sorted.
func (c *Consumer) Assignment() []TopicPartition {
	return c.ledger.Owned()
}

// Offsets returns the ledger entry of every owned partition, sorted.
func (c *Consumer) Offsets() []OffsetEntry {
	return c.ledger.Snapshot()
}

// WaitState waits for the consumer to reach the expected state within the timeout period.
//
// The returned channel receives exactly one value and is then closed:
//   - nil if the expected state is reached within the timeout
//   - context.DeadlineExceeded if the timeout expires first
//
// Parameters:
//   - expectedState: The state to wait for
//   - timeout: Maximum duration to wait for the state
//
// Returns:
//   - <-chan error: A channel that receives the result
//
// Example:
//
//	if err := <-consumer.WaitState(kcoop.StatePolling, 10*time.Second); err != nil {
//	    return fmt.Errorf("consumer did not start polling: %w", err)
//	}
func (c *Consumer) WaitState(expectedState ConsumerState, timeout time.Duration) <-chan error {
	ch := make(chan error, 1)

	go func() {
		defer close(ch)

		if c.State() == expectedState {
			ch <- nil
			return
		}

		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()

		timeoutTimer := time.NewTimer(timeout)
		defer timeoutTimer.Stop()

		for {
			select {
			case <-ticker.C:
				if c.State() == expectedState {
					ch <- nil
					return
				}
			case <-timeoutTimer.C:
				ch <- context.DeadlineExceeded
				return
			}
		}
	}()

	return ch
}

func (c *Consumer) markStarted() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return ErrAlreadyStarted
	}
	c.started = true

	return nil
}

func (c *Consumer) wokenUp() bool {
	select {
	case <-c.wakeup:
		return true
	default:
		return false
	}
}

func (c *Consumer) finish(err error) {
	c.mu.Lock()
	c.err = err
	c.mu.Unlock()
	close(c.done)
}

// run is the body of the poll loop.
func (c *Consumer) run(parent context.Context) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	c.hookCtx = context.WithoutCancel(parent)

	go func() {
		select {
		case <-c.wakeup:
			cancel()
		case <-ctx.Done():
		}
	}()

	if c.wokenUp() || ctx.Err() != nil {
		c.logger.Info("consumer woken up before joining", "member_id", c.memberID)
		c.transitionState(StateClosed)

		return nil
	}

	session, err := c.broker.JoinGroup(ctx, c.cfg.GroupID, c.memberID, c.cfg.Topics, c.cfg.AssignmentStrategy)
	if err != nil {
		c.transitionState(StateClosed)
		if ctx.Err() != nil && IsCancelled(err) {
			return nil
		}
		c.logger.Error("failed to join group", "group_id", c.cfg.GroupID, "member_id", c.memberID, "error", err)

		return fmt.Errorf("failed to join group %s: %w", c.cfg.GroupID, err)
	}
	c.session = session
	c.lastCommit = time.Now()
	c.logger.Info("joined consumer group",
		"group_id", c.cfg.GroupID,
		"member_id", c.memberID,
		"topics", c.cfg.Topics,
		"strategy", c.cfg.AssignmentStrategy,
	)
	c.transitionState(StateSubscribed)

	loopErr := c.handleChange(ctx, session.Membership(), true)
	if loopErr == nil {
		loopErr = c.poll(ctx)
	}

	if ctx.Err() != nil && (loopErr == nil || IsCancelled(loopErr)) {
		c.logger.Info("consumer wakeup observed, draining", "member_id", c.memberID)
		c.transitionState(StateDraining)

		return c.close("drain")
	}

	var procErr *types.ProcessingError
	if errors.As(loopErr, &procErr) {
		c.logger.Error("record handler failed, closing consumer",
			"member_id", c.memberID,
			"partition", procErr.Record.TopicPartition().String(),
			"offset", procErr.Record.Offset,
			"error", procErr.Err,
		)
	} else {
		c.logger.Error("consumer loop failed, closing consumer", "member_id", c.memberID, "error", loopErr)
	}
	c.reportError(loopErr)

	if closeErr := c.close("fatal"); closeErr != nil {
		c.logger.Warn("errors while closing failed consumer", "member_id", c.memberID, "error", closeErr)
	}

	return loopErr
}

// poll fetches and dispatches records until ctx is cancelled or a fatal error occurs.
func (c *Consumer) poll(ctx context.Context) error {
	changes := c.session.Changes()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		select {
		case m, ok := <-changes:
			if err := c.handleChange(ctx, m, ok); err != nil {
				return err
			}

			continue
		default:
		}

		if c.ledger.Len() == 0 {
			if err := c.idle(ctx, changes); err != nil {
				return err
			}

			continue
		}

		records, err := c.fetch(ctx)
		if err != nil {
			return err
		}
		if err := c.dispatch(ctx, records); err != nil {
			return err
		}

		c.maybeAutoCommit()
	}
}

// idle waits up to one poll timeout for a membership change while nothing is owned.
func (c *Consumer) idle(ctx context.Context, changes <-chan types.Membership) error {
	timer := time.NewTimer(c.cfg.PollTimeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case m, ok := <-changes:
		return c.handleChange(ctx, m, ok)
	case <-timer.C:
		return nil
	}
}

// fetch runs one bounded fetch. Transient failures return no records after a
// jittered backoff; they become fatal once MaxFetchRetries is exceeded.
func (c *Consumer) fetch(ctx context.Context) ([]ConsumerRecord, error) {
	start := time.Now()
	records, err := c.broker.Fetch(ctx, c.ledger.Positions(), c.cfg.MaxPollRecords, c.cfg.PollTimeout)
	c.metrics.RecordFetch(len(records), time.Since(start).Seconds())

	if err == nil {
		c.backoff.Reset()
		return records, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if c.backoff.Attempt() >= c.cfg.MaxFetchRetries {
		return nil, fmt.Errorf("fetch failed after %d attempts: %w", c.backoff.Attempt()+1, err)
	}

	delay := c.backoff.Next()
	c.logger.Warn("fetch failed, retrying",
		"member_id", c.memberID,
		"attempt", c.backoff.Attempt(),
		"backoff", delay,
		"error", err,
	)

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, nil
	}
}

// dispatch hands records to the handler one at a time.
//
// Membership changes are applied between records, so a record of a partition
// revoked mid-batch is dropped instead of processed by a non-owner.
func (c *Consumer) dispatch(ctx context.Context, records []ConsumerRecord) error {
	if len(records) == 0 {
		return nil
	}

	consumed := make(map[TopicPartition]int)
	defer func() {
		for tp, n := range consumed {
			c.metrics.RecordRecordsConsumed(tp, n)
		}
	}()

	changes := c.session.Changes()
	for i := range records {
		if err := ctx.Err(); err != nil {
			return err
		}

		select {
		case m, ok := <-changes:
			if err := c.handleChange(ctx, m, ok); err != nil {
				return err
			}
		default:
		}

		rec := &records[i]
		tp := rec.TopicPartition()
		pos, owned := c.ledger.Position(tp)
		if !owned || rec.Offset < pos {
			continue
		}

		if err := c.handler.Handle(ctx, rec); err != nil {
			if ctx.Err() != nil && IsCancelled(err) {
				return ctx.Err()
			}

			return &types.ProcessingError{Record: rec, Err: err}
		}

		if err := c.ledger.Advance(tp, rec.Offset+1); err != nil {
			return err
		}
		consumed[tp]++
	}

	return nil
}

func (c *Consumer) maybeAutoCommit() {
	if c.cfg.DisableAutoCommit || time.Since(c.lastCommit) < c.cfg.AutoCommitInterval {
		return
	}
	c.lastCommit = time.Now()
	_ = c.commit("auto")
}

// handleChange applies a membership snapshot unless it is not newer than the
// last applied generation.
func (c *Consumer) handleChange(ctx context.Context, m types.Membership, ok bool) error {
	if !ok {
		if err := ctx.Err(); err != nil {
			return err
		}

		return fmt.Errorf("membership stream closed: %w", types.ErrGroupClosed)
	}
	if m.Generation <= c.generation.Load() {
		return nil
	}

	c.transitionState(StateRebalancing)
	if err := c.rebalance(ctx, m); err != nil {
		return err
	}
	c.transitionState(StatePolling)

	return nil
}

// rebalance computes the plan for m and applies this member's share of it.
//
// Revoked partitions are committed and released before the new ownership is
// synced; added partitions start at their committed offset or the reset position.
func (c *Consumer) rebalance(ctx context.Context, m types.Membership) error {
	start := time.Now()

	partitions, err := c.source.ListPartitions(ctx, c.cfg.Topics)
	if err != nil {
		return fmt.Errorf("failed to list partitions: %w", err)
	}

	plan, err := c.rebalancer.Rebalance(ctx, c.currentView(m), m.Members, partitions)
	if err != nil {
		return fmt.Errorf("rebalance of generation %d failed: %w", m.Generation, err)
	}

	revoked := plan.RevokedFor(c.memberID)
	added := plan.AddedFor(c.memberID)

	_ = c.revoke("revoke", revoked)

	owned := append(c.ledger.Owned(), added...)
	types.SortPartitions(owned)
	accepted, err := c.session.SyncAssignment(ctx, owned)
	if err != nil {
		return fmt.Errorf("failed to sync assignment for generation %d: %w", m.Generation, err)
	}

	if lost := missingFrom(c.ledger.Owned(), accepted); len(lost) > 0 {
		c.logger.Warn("coordinator rejected owned partitions; dropping them without commit",
			"member_id", c.memberID,
			"partitions", lost,
		)
		c.ledger.Release(lost...)
	}

	granted := intersect(added, accepted)
	if err := c.assign(ctx, granted); err != nil {
		return err
	}

	c.generation.Store(m.Generation)
	c.metrics.RecordRebalance(m.Generation, len(revoked), len(granted), time.Since(start).Seconds())
	c.metrics.SetOwnedPartitions(c.ledger.Len())

	c.logger.Info("rebalance applied",
		"member_id", c.memberID,
		"generation", m.Generation,
		"members", len(m.Members),
		"revoked_count", len(revoked),
		"revoked", revoked,
		"added_count", len(granted),
		"added", granted,
		"owned", c.ledger.Len(),
	)

	return nil
}

// currentView returns the group ownership with this member's entries replaced
// by the ledger, which is authoritative for the local member.
func (c *Consumer) currentView(m types.Membership) []PartitionAssignment {
	current := make([]PartitionAssignment, 0, len(m.Current)+c.ledger.Len())
	for _, a := range m.Current {
		if a.OwnerClientID != c.memberID {
			current = append(current, a)
		}
	}
	for _, tp := range c.ledger.Owned() {
		current = append(current, PartitionAssignment{TopicPartition: tp, OwnerClientID: c.memberID})
	}
	types.SortAssignments(current)

	return current
}

// revoke runs the revoke hook, commits and releases tps.
//
// A failed commit does not keep the partition: it is released anyway and the
// records after its last commit may be delivered again to the next owner.
func (c *Consumer) revoke(reason string, tps []TopicPartition) error {
	if len(tps) == 0 {
		return nil
	}

	hookCtx, cancel := context.WithTimeout(c.hookCtx, c.cfg.CommitTimeout)
	if err := c.hooks.OnPartitionsRevoked(hookCtx, slices.Clone(tps)); err != nil {
		c.logger.Warn("partitions revoked hook failed", "member_id", c.memberID, "error", err)
	}
	cancel()

	err := c.commit(reason, tps...)
	released := c.ledger.Release(tps...)
	c.metrics.SetOwnedPartitions(c.ledger.Len())

	c.logger.Info("partitions released",
		"member_id", c.memberID,
		"reason", reason,
		"partitions", tps,
		"entries", len(released),
	)

	return err
}

// assign starts tracking tps at their committed offsets, falling back to the
// auto-offset-reset position, and runs the assigned hook.
func (c *Consumer) assign(ctx context.Context, tps []TopicPartition) error {
	if len(tps) == 0 {
		return nil
	}

	committed, err := c.broker.CommittedOffsets(ctx, c.cfg.GroupID, tps)
	if err != nil {
		return fmt.Errorf("failed to load committed offsets: %w", err)
	}

	missing := make([]TopicPartition, 0)
	for _, tp := range tps {
		if _, ok := committed[tp]; !ok {
			missing = append(missing, tp)
		}
	}

	var reset map[TopicPartition]uint64
	if len(missing) > 0 {
		reset, err = c.broker.ListOffsets(ctx, missing, c.cfg.AutoOffsetReset)
		if err != nil {
			return fmt.Errorf("failed to resolve %s offsets: %w", c.cfg.AutoOffsetReset, err)
		}
	}

	for _, tp := range tps {
		start, ok := committed[tp]
		if !ok {
			start = reset[tp]
		}
		c.ledger.Assign(tp, start)
		c.logger.Debug("partition assigned", "member_id", c.memberID, "partition", tp.String(), "offset", start)
	}

	if err := c.hooks.OnPartitionsAssigned(ctx, slices.Clone(tps)); err != nil {
		c.logger.Warn("partitions assigned hook failed", "member_id", c.memberID, "error", err)
	}

	return nil
}

// commit writes the uncommitted ledger positions of tps, or of every owned
// partition when tps is empty.
//
// Commits run on their own context bounded by CommitTimeout so that they
// still complete after the loop context was cancelled.
func (c *Consumer) commit(reason string, tps ...TopicPartition) error {
	offsets := c.ledger.Uncommitted(tps...)
	if len(offsets) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.CommitTimeout)
	defer cancel()

	err := c.broker.CommitOffsets(ctx, c.cfg.GroupID, offsets)
	c.metrics.RecordCommit(reason, len(offsets), err == nil)
	if err != nil {
		commitErr := &types.CommitError{Offsets: offsets, Err: err}
		c.logger.Warn("offset commit failed; records after the last commit may be delivered again",
			"member_id", c.memberID,
			"reason", reason,
			"partitions", sortedKeys(offsets),
			"error", err,
		)
		c.reportError(commitErr)

		return commitErr
	}

	c.ledger.MarkCommitted(offsets)
	c.logger.Debug("offsets committed", "member_id", c.memberID, "reason", reason, "partitions", len(offsets))

	return nil
}

// close releases every partition, leaves the group and enters StateClosed.
func (c *Consumer) close(reason string) error {
	var errs []error

	if err := c.revoke(reason, c.ledger.Owned()); err != nil {
		errs = append(errs, err)
	}

	if c.session != nil {
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.CommitTimeout)
		if err := c.session.Leave(ctx); err != nil {
			c.logger.Warn("failed to leave group", "member_id", c.memberID, "error", err)
			errs = append(errs, fmt.Errorf("leave group failed: %w", err))
		}
		cancel()
	}

	c.transitionState(StateClosed)
	c.logger.Info("consumer closed", "member_id", c.memberID, "reason", reason)

	return errors.Join(errs...)
}

// transitionState moves to a new state and triggers hooks and metrics.
func (c *Consumer) transitionState(to ConsumerState) {
	from := c.State()
	if from == to {
		return
	}
	if !isValidTransition(from, to) {
		c.logger.Error("invalid state transition attempted", "from", from.String(), "to", to.String())
		return
	}

	now := time.Now()
	since := time.Unix(0, c.stateSince.Swap(now.UnixNano()))
	c.state.Store(int32(to)) //nolint:gosec // ConsumerState values are a controlled enum

	c.logger.Info("state transition", "from", from.String(), "to", to.String(), "member_id", c.memberID)

	go func() {
		if err := c.hooks.OnStateChanged(c.hookCtx, from, to); err != nil {
			c.logger.Warn("state change hook error", "from", from.String(), "to", to.String(), "error", err)
		}
	}()

	c.metrics.RecordStateTransition(from, to, now.Sub(since).Seconds())
}

func (c *Consumer) reportError(err error) {
	go func() {
		if hookErr := c.hooks.OnError(c.hookCtx, err); hookErr != nil {
			c.logger.Warn("error hook failed", "error", hookErr)
		}
	}()
}

// validTransitions lists the states reachable from each state.
var validTransitions = map[ConsumerState][]ConsumerState{
	StateInit:        {StateSubscribed, StateClosed},
	StateSubscribed:  {StateRebalancing, StateDraining, StateClosed},
	StateRebalancing: {StatePolling, StateDraining, StateClosed},
	StatePolling:     {StateRebalancing, StateDraining, StateClosed},
	StateDraining:    {StateClosed},
	StateClosed:      {},
}

func isValidTransition(from, to ConsumerState) bool {
	return slices.Contains(validTransitions[from], to)
}

// missingFrom returns the elements of have that are absent from keep.
func missingFrom(have, keep []TopicPartition) []TopicPartition {
	out := make([]TopicPartition, 0)
	for _, tp := range have {
		if !slices.Contains(keep, tp) {
			out = append(out, tp)
		}
	}

	return out
}

func intersect(a, b []TopicPartition) []TopicPartition {
	out := make([]TopicPartition, 0, len(a))
	for _, tp := range a {
		if slices.Contains(b, tp) {
			out = append(out, tp)
		}
	}

	return out
}

func sortedKeys(offsets map[TopicPartition]uint64) []TopicPartition {
	out := make([]TopicPartition, 0, len(offsets))
	for tp := range offsets {
		out = append(out, tp)
	}
	types.SortPartitions(out)

	return out
}
