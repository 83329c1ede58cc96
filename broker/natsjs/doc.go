// Package natsjs implements the kcoop broker interfaces on NATS JetStream.
//
// # Layout
//
// For a prefix "kcoop" the broker uses:
//
//	stream  kcoop_{topic}_{partition}      subject kcoop.rec.{topic}.{partition}
//	bucket  kcoop-topics    {topic}                         -> partition count
//	bucket  kcoop-offsets   {group}.{topic}.{partition}     -> next offset to consume
//	bucket  kcoop-members   {group}.{member}                -> JSON, TTL-bound
//	bucket  kcoop-owners    {group}.{topic}.{partition}     -> owning member
//
// A record's offset is its stream sequence minus one. Keys travel base64 encoded
// in the Kcoop-Key header; application headers are copied verbatim.
//
// # Group Membership
//
// Members heartbeat their entry in the members bucket. Each session watches the
// group's keys and rebuilds the membership on every update, with a fallback
// poll every MemberTTL/2 to notice expired members. Partition ownership is
// guarded by compare-and-set claims in the owners bucket.
package natsjs
