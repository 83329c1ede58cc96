package memory

import (
	"context"
	"fmt"
	"slices"

	"github.com/arloliu/kcoop/types"
)

type group struct {
	id         string
	generation int64
	members    map[string]*session
}

// session is one member's handle on its group. All fields are guarded by Cluster.mu.
type session struct {
	cluster  *Cluster
	group    *group
	memberID string
	owned    []types.TopicPartition
	latest   types.Membership
	changes  chan types.Membership
	closed   bool
}

var _ types.GroupSession = (*session)(nil)

// JoinGroup implements types.GroupCoordinator.
//
// Joining bumps the group generation and publishes the new membership to every
// member, including the one joining.
func (c *Cluster) JoinGroup(ctx context.Context, groupID, memberID string, _ []string, _ string) (types.GroupSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if groupID == "" || memberID == "" {
		return nil, fmt.Errorf("join: group and member IDs are required: %w", types.ErrInvalidConfig)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	g, ok := c.groups[groupID]
	if !ok {
		g = &group{id: groupID, members: make(map[string]*session)}
		c.groups[groupID] = g
	}
	if _, exists := g.members[memberID]; exists {
		return nil, fmt.Errorf("join %s: member %s already joined", groupID, memberID)
	}

	s := &session{
		cluster:  c,
		group:    g,
		memberID: memberID,
		changes:  make(chan types.Membership, 1),
	}
	g.members[memberID] = s
	g.publishLocked()

	return s, nil
}

// Members returns the sorted live member IDs of groupID.
func (c *Cluster) Members(groupID string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	g, ok := c.groups[groupID]
	if !ok {
		return nil
	}

	return g.memberIDsLocked()
}

// Ownership returns the partitions each live member of groupID reported owning.
func (c *Cluster) Ownership(groupID string) []types.PartitionAssignment {
	c.mu.Lock()
	defer c.mu.Unlock()

	g, ok := c.groups[groupID]
	if !ok {
		return nil
	}

	return g.currentLocked()
}

func (g *group) memberIDsLocked() []string {
	ids := make([]string, 0, len(g.members))
	for id := range g.members {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	return ids
}

func (g *group) currentLocked() []types.PartitionAssignment {
	out := make([]types.PartitionAssignment, 0)
	for id, s := range g.members {
		for _, tp := range s.owned {
			out = append(out, types.PartitionAssignment{TopicPartition: tp, OwnerClientID: id})
		}
	}
	types.SortAssignments(out)

	return out
}

// publishLocked starts a new generation and offers it to every member.
func (g *group) publishLocked() {
	g.generation++
	members := g.memberIDsLocked()
	current := g.currentLocked()

	for id, s := range g.members {
		s.offerLocked(types.Membership{
			GroupID:    g.id,
			MemberID:   id,
			Generation: g.generation,
			Members:    slices.Clone(members),
			Current:    slices.Clone(current),
		})
	}
}

// offerLocked replaces any undelivered snapshot with m.
//
// The publisher holds Cluster.mu, so it is the only sender and the buffered
// channel always has room after the drain.
func (s *session) offerLocked(m types.Membership) {
	s.latest = m
	select {
	case <-s.changes:
	default:
	}
	s.changes <- m
}

// Membership implements types.GroupSession.
func (s *session) Membership() types.Membership {
	s.cluster.mu.Lock()
	defer s.cluster.mu.Unlock()

	return s.latest
}

// Changes implements types.GroupSession.
func (s *session) Changes() <-chan types.Membership {
	return s.changes
}

// SyncAssignment implements types.GroupSession.
//
// Partitions owned by another live member are rejected. When the accepted set
// releases partitions this member owned before, a new generation is published so
// the rest of the group can pick them up.
func (s *session) SyncAssignment(ctx context.Context, owned []types.TopicPartition) ([]types.TopicPartition, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.cluster.mu.Lock()
	defer s.cluster.mu.Unlock()

	if s.closed {
		return nil, types.ErrGroupClosed
	}
	if s.group.members[s.memberID] != s {
		return nil, types.ErrUnknownMember
	}

	taken := make(map[types.TopicPartition]struct{})
	for id, other := range s.group.members {
		if id == s.memberID {
			continue
		}
		for _, tp := range other.owned {
			taken[tp] = struct{}{}
		}
	}

	accepted := make([]types.TopicPartition, 0, len(owned))
	for _, tp := range owned {
		if _, ok := taken[tp]; !ok {
			accepted = append(accepted, tp)
		}
	}
	types.SortPartitions(accepted)
	accepted = slices.Compact(accepted)

	released := false
	for _, tp := range s.owned {
		if !slices.Contains(accepted, tp) {
			released = true
			break
		}
	}
	s.owned = accepted

	if released {
		s.group.publishLocked()
	}

	return slices.Clone(accepted), nil
}

// Leave implements types.GroupSession. It is idempotent.
func (s *session) Leave(_ context.Context) error {
	s.cluster.mu.Lock()
	defer s.cluster.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	close(s.changes)

	if s.group.members[s.memberID] == s {
		delete(s.group.members, s.memberID)
		if len(s.group.members) > 0 {
			s.group.publishLocked()
		}
	}

	return nil
}
