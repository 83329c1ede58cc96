// Package kcooptest provides test utilities for kcoop.
//
// It follows the convention of net/http/httptest: helpers that set up
// throwaway brokers and collect what a consumer or producer observed.
//
// Key utilities:
//   - StartEmbeddedNATS: in-process NATS server with JetStream
//   - NewCluster: in-memory broker with topics created
//   - Collector: RecordHandler that records every dispatched record
//   - NewTestLogger: Logger writing to testing.T
//
// Example usage:
//
//	func TestMyHandler(t *testing.T) {
//	    cluster := kcooptest.NewCluster(t, map[string]int32{"demo_java": 3})
//	    collector := kcooptest.NewCollector()
//	    c, _ := kcoop.NewConsumer(&cfg, cluster, collector)
//	}
package kcooptest
