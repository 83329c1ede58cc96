// Package kcoop provides a cooperative consumer-group client and an async producer
// for partitioned logs.
//
// A Consumer joins a group, receives partitions through cooperative incremental
// rebalancing, hands records to a RecordHandler in offset order and commits the
// offsets it consumed. An owned partition is only revoked when the deterministic
// assignment moves it elsewhere; it is committed before another member may take it.
//
// # Quick Start
//
// Consuming with the in-memory broker:
//
//	import (
//	    "github.com/arloliu/kcoop"
//	    "github.com/arloliu/kcoop/broker/memory"
//	)
//
//	cluster := memory.NewCluster()
//	_ = cluster.CreateTopic("demo_java", 3)
//
//	cfg := kcoop.DefaultConsumerConfig()
//	cfg.GroupID = "my-java-application"
//	cfg.Topics = []string{"demo_java"}
//
//	handler := kcoop.RecordHandlerFunc(func(ctx context.Context, rec *kcoop.ConsumerRecord) error {
//	    log.Printf("key=%s value=%s offset=%d", rec.Key, rec.Value, rec.Offset)
//	    return nil
//	})
//
//	c, err := kcoop.NewConsumer(&cfg, cluster, handler)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	// Run blocks until Wakeup is called or ctx is cancelled, then commits and leaves.
//	if err := c.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Producing with delivery callbacks:
//
//	cfg := kcoop.DefaultProducerConfig()
//	p, err := kcoop.NewProducer(&cfg, cluster)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer p.Close(context.Background())
//
//	p.Send(ctx, kcoop.NewProducerRecord("demo_java", "id_1", "hello world"), func(res kcoop.DeliveryResult) {
//	    if res.Err != nil {
//	        log.Printf("delivery failed: %v", res.Err)
//	        return
//	    }
//	    log.Printf("partition=%d offset=%d", res.Metadata.Partition, res.Metadata.Offset)
//	})
//
// # Architecture
//
// A consumer progresses through a state machine:
//
//	INIT → SUBSCRIBED → REBALANCING ⇄ POLLING → DRAINING → CLOSED
//
// Every membership change published by the group coordinator triggers one
// rebalance. Each member computes the same plan from the shared ownership view,
// revokes what it loses (hook, commit, release), syncs its remaining ownership
// and then takes what it gains. Wakeup interrupts a blocking fetch from any
// goroutine; the loop then drains, commits and leaves the group.
//
// # Brokers
//
// The engine talks to brokers through the ConsumerBroker and Sender interfaces:
//
//   - broker/memory: in-process cluster for tests and demos
//   - broker/natsjs: NATS JetStream streams and KV buckets
//   - broker/franz: a Kafka Sender built on franz-go
//
// See the examples/ directory for complete working programs.
package kcoop
