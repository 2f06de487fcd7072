// Package clock provides the logical clocks that order replicated edits:
// per-replica sequence numbers, Lamport timestamps, and version vectors.
package clock

import "sort"

// ReplicaID identifies a mutation source (a local process or a remote
// collaborator). It is assigned once per buffer instance and is stable for
// the buffer's lifetime.
type ReplicaID uint16

// Lamport is a logical timestamp used to order concurrent operations
// deterministically across replicas.
type Lamport uint64

// Seq is a per-replica sequence number. Sequence numbers from one replica
// are contiguous starting at 1; Seq 0 is reserved for buffer creation.
type Seq uint32

// OpID uniquely identifies an operation: the replica that produced it plus
// that replica's sequence number.
type OpID struct {
	Replica ReplicaID
	Seq     Seq
}

// IsCreation reports whether the id denotes the initial buffer content,
// which every replica observes by construction.
func (id OpID) IsCreation() bool {
	return id.Seq == 0
}

// Timestamp pairs a Lamport time with the originating replica, forming a
// total order over operations: Lamport first, ReplicaID as tie-break.
type Timestamp struct {
	Lamport Lamport
	Replica ReplicaID
}

// Compare returns -1, 0, or 1 ordering t against other.
func (t Timestamp) Compare(other Timestamp) int {
	switch {
	case t.Lamport < other.Lamport:
		return -1
	case t.Lamport > other.Lamport:
		return 1
	case t.Replica < other.Replica:
		return -1
	case t.Replica > other.Replica:
		return 1
	default:
		return 0
	}
}

// Version is a vector clock: for each replica, the highest sequence number
// observed from that replica. Replicas absent from the map have observed
// sequence 0.
type Version map[ReplicaID]Seq

// NewVersion returns an empty version.
func NewVersion() Version {
	return make(Version)
}

// Seq returns the highest sequence observed from the given replica.
func (v Version) Seq(r ReplicaID) Seq {
	return v[r]
}

// Observed reports whether the operation identified by id has been observed.
// Creation ids are observed by every version.
func (v Version) Observed(id OpID) bool {
	if id.IsCreation() {
		return true
	}
	return v[id.Replica] >= id.Seq
}

// Observe records that the operation identified by id has been applied.
// Sequence numbers from one replica arrive contiguously, so observing an
// operation implies all earlier operations from its replica.
func (v Version) Observe(id OpID) {
	if id.Seq > v[id.Replica] {
		v[id.Replica] = id.Seq
	}
}

// Dominates reports whether v has observed everything other has.
func (v Version) Dominates(other Version) bool {
	for r, s := range other {
		if v[r] < s {
			return false
		}
	}
	return true
}

// Concurrent reports whether neither version dominates the other.
func (v Version) Concurrent(other Version) bool {
	return !v.Dominates(other) && !other.Dominates(v)
}

// Union folds other into v, keeping the maximum sequence per replica.
func (v Version) Union(other Version) {
	for r, s := range other {
		if s > v[r] {
			v[r] = s
		}
	}
}

// Clone returns an independent copy of v.
func (v Version) Clone() Version {
	out := make(Version, len(v))
	for r, s := range v {
		out[r] = s
	}
	return out
}

// Equal reports whether two versions observe exactly the same operations.
func (v Version) Equal(other Version) bool {
	return v.Dominates(other) && other.Dominates(v)
}

// Replicas returns the replica ids present in v in ascending order.
// Serialization and iteration use this to stay deterministic.
func (v Version) Replicas() []ReplicaID {
	ids := make([]ReplicaID, 0, len(v))
	for r := range v {
		ids = append(ids, r)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
