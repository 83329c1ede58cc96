// Package memory provides an in-process broker for tests, demos and single-process use.
//
// A Cluster holds partition logs, committed group offsets and consumer groups.
// It implements types.ConsumerBroker and types.Sender, so consumers and producers
// sharing a Cluster exchange records exactly as they would through a real broker.
//
// Group coordination follows the cooperative protocol: the coordinator publishes a
// new Membership generation when a member joins, leaves, or releases partitions in
// SyncAssignment. It never decides an assignment itself; every member runs the
// same deterministic rebalancer on the published snapshot.
//
// Fault injection (FailCommits, FailSends) and a send delay make failure paths and
// asynchronous delivery testable without a network.
package memory
