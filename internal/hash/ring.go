// Package hash provides the consistent hash ring used for partition placement.
package hash

import (
	"cmp"
	"encoding/binary"
	"slices"

	"github.com/zeebo/xxh3"

	"github.com/arloliu/kcoop/types"
)

// DefaultVirtualNodes is the number of virtual nodes per member when none is given.
const DefaultVirtualNodes = 150

// Ring implements a consistent hash ring with virtual nodes.
//
// The ring maps topic-partitions to group members. Adding or removing a member
// only moves the partitions adjacent to its virtual nodes.
type Ring struct {
	// nodes contains all virtual nodes on the ring, sorted by hash
	nodes []virtualNode

	// members holds the unique list of members present on the ring
	members []string

	// seed for hash function (0 means unseeded)
	seed uint64
}

type virtualNode struct {
	hash      uint64
	memberIdx int
}

// NewRing creates a new consistent hash ring.
//
// Parameters:
//   - members: Member IDs to place on the ring (duplicates are ignored)
//   - virtualNodesPerMember: Virtual nodes per member (<= 0 uses DefaultVirtualNodes)
//   - seed: Hash seed; every member of a group must use the same value
//
// Returns:
//   - *Ring: Initialized hash ring
//
// Example:
//
//	ring := hash.NewRing([]string{"member-a", "member-b"}, 150, 0)
//	owner := ring.Owner(types.TopicPartition{Topic: "demo_java", Partition: 0})
func NewRing(members []string, virtualNodesPerMember int, seed uint64) *Ring {
	if virtualNodesPerMember <= 0 {
		virtualNodesPerMember = DefaultVirtualNodes
	}

	ring := &Ring{seed: seed, members: make([]string, 0, len(members))}

	seen := make(map[string]struct{}, len(members))
	for _, m := range members {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		ring.members = append(ring.members, m)
	}

	ring.nodes = make([]virtualNode, 0, len(ring.members)*virtualNodesPerMember)
	for i, m := range ring.members {
		ring.addMember(m, i, virtualNodesPerMember)
	}

	slices.SortFunc(ring.nodes, func(a, b virtualNode) int {
		if c := cmp.Compare(a.hash, b.hash); c != 0 {
			return c
		}

		return cmp.Compare(ring.members[a.memberIdx], ring.members[b.memberIdx])
	})

	return ring
}

// Owner returns the member responsible for tp, or "" on an empty ring.
func (r *Ring) Owner(tp types.TopicPartition) string {
	idx := r.ownerIndex(r.HashPartition(tp))
	if idx < 0 {
		return ""
	}

	return r.members[idx]
}

// OwnerOfKey returns the member responsible for an arbitrary string key.
func (r *Ring) OwnerOfKey(key string) string {
	idx := r.ownerIndex(r.hashString(key))
	if idx < 0 {
		return ""
	}

	return r.members[idx]
}

// HashPartition folds the topic and the partition number into one xxh3 hash.
func (r *Ring) HashPartition(tp types.TopicPartition) uint64 {
	h := r.hashString(tp.Topic)

	var pb [4]byte
	binary.LittleEndian.PutUint32(pb[:], uint32(tp.Partition)) //nolint:gosec // sign bit is hashed as-is

	return xxh3.HashSeed(pb[:], h)
}

// Members returns the unique members on the ring.
func (r *Ring) Members() []string {
	return append([]string(nil), r.members...)
}

// Size returns the total number of virtual nodes on the ring.
func (r *Ring) Size() int {
	return len(r.nodes)
}

func (r *Ring) ownerIndex(h uint64) int {
	if len(r.nodes) == 0 {
		return -1
	}

	idx, _ := slices.BinarySearchFunc(r.nodes, h, func(node virtualNode, t uint64) int {
		return cmp.Compare(node.hash, t)
	})
	if idx >= len(r.nodes) {
		idx = 0
	}

	return r.nodes[idx].memberIdx
}

// addMember adds virtual nodes for a member, hashing (memberID, i) without building strings.
func (r *Ring) addMember(memberID string, memberIdx int, virtualNodes int) {
	base := r.hashString(memberID)
	for i := range virtualNodes {
		var ib [8]byte
		binary.LittleEndian.PutUint64(ib[:], uint64(i)) //nolint:gosec
		r.nodes = append(r.nodes, virtualNode{hash: xxh3.HashSeed(ib[:], base), memberIdx: memberIdx})
	}
}

func (r *Ring) hashString(s string) uint64 {
	if r.seed != 0 {
		return xxh3.HashStringSeed(s, r.seed)
	}

	return xxh3.HashString(s)
}
