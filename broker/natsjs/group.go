package natsjs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/arloliu/kcoop/internal/heartbeat"
	"github.com/arloliu/kcoop/types"
)

// watchDebounce coalesces bursts of member updates into one refresh.
const watchDebounce = 20 * time.Millisecond

// memberValue is the JSON stored under a member's key.
type memberValue struct {
	Topics   []string               `json:"topics"`
	Strategy string                 `json:"strategy"`
	Owned    []types.TopicPartition `json:"owned"`
}

// session is one member's handle on its group.
//
// Membership is rebuilt from the members bucket whenever a KV watcher reports
// an update, and on a fallback poll every MemberTTL/2 so that expired members
// are noticed too. A new generation is published only when the member set or
// the reported ownership actually changed.
type session struct {
	broker     *Broker
	groupID    string
	memberID   string
	topics     []string
	strategyID string
	hb         *heartbeat.Publisher
	logger     types.Logger

	// syncMu serializes SyncAssignment and Leave.
	syncMu sync.Mutex

	mu         sync.Mutex
	owned      []types.TopicPartition
	latest     types.Membership
	signature  string
	generation int64
	closed     bool
	changes    chan types.Membership

	cancel context.CancelFunc
	done   chan struct{}
}

var _ types.GroupSession = (*session)(nil)

// JoinGroup implements types.GroupCoordinator.
//
// The member's entry is created in the members bucket and kept alive by a
// heartbeat. The initial membership is available before JoinGroup returns.
func (b *Broker) JoinGroup(ctx context.Context, groupID, memberID string, topics []string, strategyID string) (types.GroupSession, error) {
	if err := checkName("group", groupID); err != nil {
		return nil, err
	}
	if err := checkName("member", memberID); err != nil {
		return nil, err
	}

	key := groupID + "." + memberID
	if _, err := b.members.Get(ctx, key); err == nil {
		return nil, fmt.Errorf("join %s: member %s already joined", groupID, memberID)
	} else if !errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil, fmt.Errorf("join %s: %w", groupID, err)
	}

	s := &session{
		broker:     b,
		groupID:    groupID,
		memberID:   memberID,
		topics:     slices.Clone(topics),
		strategyID: strategyID,
		logger:     b.logger,
		changes:    make(chan types.Membership, 1),
		done:       make(chan struct{}),
	}
	s.hb = heartbeat.New(b.members, key, b.cfg.HeartbeatInterval, s.encode, b.logger)

	if err := s.hb.Start(ctx); err != nil {
		return nil, fmt.Errorf("join %s: %w", groupID, err)
	}
	if err := s.refresh(ctx); err != nil {
		_ = s.hb.Stop()
		return nil, fmt.Errorf("join %s: %w", groupID, err)
	}

	monitorCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.monitor(monitorCtx)

	b.logger.Info("joined group", "group_id", groupID, "member_id", memberID, "generation", s.Membership().Generation)

	return s, nil
}

func (s *session) encode() ([]byte, error) {
	s.mu.Lock()
	v := memberValue{Topics: s.topics, Strategy: s.strategyID, Owned: slices.Clone(s.owned)}
	s.mu.Unlock()

	if v.Owned == nil {
		v.Owned = []types.TopicPartition{}
	}

	return json.Marshal(v)
}

// monitor refreshes the membership on watcher events and on a fallback tick.
func (s *session) monitor(ctx context.Context) {
	defer close(s.done)

	var updates <-chan jetstream.KeyValueEntry
	watcher, err := s.broker.members.Watch(ctx, s.groupID+".*", jetstream.UpdatesOnly())
	if err != nil {
		s.logger.Warn("failed to start member watcher, falling back to polling only", "group_id", s.groupID, "error", err)
	} else {
		defer func() { _ = watcher.Stop() }()
		updates = watcher.Updates()
	}

	ticker := time.NewTicker(s.broker.cfg.MemberTTL / 2)
	defer ticker.Stop()

	debounce := time.NewTimer(watchDebounce)
	debounce.Stop()
	pending := false

	for {
		select {
		case <-ctx.Done():
			return
		case entry, ok := <-updates:
			if !ok {
				updates = nil
				continue
			}
			if entry == nil || pending {
				continue
			}
			pending = true
			debounce.Reset(watchDebounce)
		case <-debounce.C:
			pending = false
			s.refreshLogged(ctx)
		case <-ticker.C:
			s.refreshLogged(ctx)
		}
	}
}

func (s *session) refreshLogged(ctx context.Context) {
	if err := s.refresh(ctx); err != nil && ctx.Err() == nil {
		s.logger.Warn("failed to refresh group membership", "group_id", s.groupID, "member_id", s.memberID, "error", err)
	}
}

// refresh rebuilds the membership and publishes it when it changed.
func (s *session) refresh(ctx context.Context) error {
	values, err := s.broker.groupMembers(ctx, s.groupID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	// Our own entry may be missing between an expiry and the next beat.
	values[s.memberID] = memberValue{Owned: s.owned}

	members := make([]string, 0, len(values))
	current := make([]types.PartitionAssignment, 0)
	for id, v := range values {
		members = append(members, id)
		for _, tp := range v.Owned {
			current = append(current, types.PartitionAssignment{TopicPartition: tp, OwnerClientID: id})
		}
	}
	slices.Sort(members)
	types.SortAssignments(current)

	signature := membershipSignature(members, current)
	if signature == s.signature {
		return nil
	}
	s.signature = signature
	s.generation++

	m := types.Membership{
		GroupID:    s.groupID,
		MemberID:   s.memberID,
		Generation: s.generation,
		Members:    members,
		Current:    current,
	}
	s.latest = m
	select {
	case <-s.changes:
	default:
	}
	s.changes <- m

	s.logger.Debug("group membership changed",
		"group_id", s.groupID,
		"member_id", s.memberID,
		"generation", m.Generation,
		"members", len(members),
	)

	return nil
}

func membershipSignature(members []string, current []types.PartitionAssignment) string {
	var sb strings.Builder
	sb.WriteString(strings.Join(members, ","))
	sb.WriteByte('|')
	for _, a := range current {
		fmt.Fprintf(&sb, "%s=%s;", a.TopicPartition, a.OwnerClientID)
	}

	return sb.String()
}

// Membership implements types.GroupSession.
func (s *session) Membership() types.Membership {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.latest
}

// Changes implements types.GroupSession.
func (s *session) Changes() <-chan types.Membership {
	return s.changes
}

// SyncAssignment implements types.GroupSession.
//
// Each partition is guarded by a claim key in the owners bucket. A claim held
// by a live member is respected; a claim left behind by a member whose entry
// expired is taken over. Released partitions are unclaimed before the new
// ownership is published, so other members can pick them up as soon as they
// see the update.
func (s *session) SyncAssignment(ctx context.Context, owned []types.TopicPartition) ([]types.TopicPartition, error) {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	s.mu.Lock()
	closed := s.closed
	prev := slices.Clone(s.owned)
	s.mu.Unlock()
	if closed {
		return nil, types.ErrGroupClosed
	}

	want := slices.Clone(owned)
	types.SortPartitions(want)
	want = slices.Compact(want)

	values, err := s.broker.groupMembers(ctx, s.groupID)
	if err != nil {
		return nil, err
	}

	var errs []error
	for _, tp := range prev {
		if !slices.Contains(want, tp) {
			errs = append(errs, s.broker.releaseClaim(ctx, s.groupID, tp, s.memberID))
		}
	}

	accepted := make([]types.TopicPartition, 0, len(want))
	for _, tp := range want {
		ok, err := s.broker.claim(ctx, s.groupID, tp, s.memberID, values)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			accepted = append(accepted, tp)
		}
	}

	s.mu.Lock()
	s.owned = accepted
	s.mu.Unlock()

	if err := s.hb.Beat(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return slices.Clone(accepted), err
	}

	return slices.Clone(accepted), nil
}

// Leave implements types.GroupSession. It is idempotent.
func (s *session) Leave(ctx context.Context) error {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	owned := slices.Clone(s.owned)
	close(s.changes)
	s.mu.Unlock()

	s.cancel()
	<-s.done

	var errs []error
	for _, tp := range owned {
		errs = append(errs, s.broker.releaseClaim(ctx, s.groupID, tp, s.memberID))
	}
	errs = append(errs, s.hb.Stop())

	s.logger.Info("left group", "group_id", s.groupID, "member_id", s.memberID)

	return errors.Join(errs...)
}

// groupMembers reads the live entries of groupID, keyed by member ID.
func (b *Broker) groupMembers(ctx context.Context, groupID string) (map[string]memberValue, error) {
	out := make(map[string]memberValue)

	keys, err := b.members.Keys(ctx)
	if errors.Is(err, jetstream.ErrNoKeysFound) {
		return out, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list members of %s: %w", groupID, err)
	}

	prefix := groupID + "."
	for _, key := range keys {
		memberID, ok := strings.CutPrefix(key, prefix)
		if !ok {
			continue
		}

		entry, err := b.members.Get(ctx, key)
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read member %s: %w", key, err)
		}

		var v memberValue
		if err := json.Unmarshal(entry.Value(), &v); err != nil {
			b.logger.Warn("skipping corrupt member entry", "key", key, "error", err)
			continue
		}
		out[memberID] = v
	}

	return out, nil
}

// claim tries to record memberID as the owner of tp.
func (b *Broker) claim(ctx context.Context, groupID string, tp types.TopicPartition, memberID string, live map[string]memberValue) (bool, error) {
	key := partitionKey(groupID, tp)

	entry, err := b.owners.Get(ctx, key)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		_, err = b.owners.Create(ctx, key, []byte(memberID))
		if errors.Is(err, jetstream.ErrKeyExists) {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("failed to claim %s: %w", tp, err)
		}

		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read claim of %s: %w", tp, err)
	}

	owner := string(entry.Value())
	if owner == memberID {
		return true, nil
	}
	if _, alive := live[owner]; alive {
		return false, nil
	}

	if _, err := b.owners.Update(ctx, key, []byte(memberID), entry.Revision()); err != nil {
		if isWrongRevision(err) {
			return false, nil
		}

		return false, fmt.Errorf("failed to take over %s from %s: %w", tp, owner, err)
	}
	b.logger.Info("took over partition from expired member", "partition", tp.String(), "previous_owner", owner, "member_id", memberID)

	return true, nil
}

// releaseClaim deletes the claim of tp if memberID still holds it.
func (b *Broker) releaseClaim(ctx context.Context, groupID string, tp types.TopicPartition, memberID string) error {
	key := partitionKey(groupID, tp)

	entry, err := b.owners.Get(ctx, key)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read claim of %s: %w", tp, err)
	}
	if string(entry.Value()) != memberID {
		return nil
	}

	if err := b.owners.Delete(ctx, key, jetstream.LastRevision(entry.Revision())); err != nil && !isWrongRevision(err) {
		return fmt.Errorf("failed to release %s: %w", tp, err)
	}

	return nil
}

func isWrongRevision(err error) bool {
	if errors.Is(err, jetstream.ErrKeyExists) {
		return true
	}

	var apiErr *jetstream.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode == jetstream.JSErrCodeStreamWrongLastSequence
	}

	return false
}
