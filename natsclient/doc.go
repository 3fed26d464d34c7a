// Package natsclient manages a single NATS connection for filestreams.
//
// Client wraps nats.Conn with:
//
//   - a circuit breaker that opens after a configurable number of consecutive
//     failures and doubles its backoff on every opening, capped by WithMaxBackoff
//   - optional periodic health checks (RTT) with a health-change callback
//   - JetStream helpers for streams and KV buckets (EnsureStream,
//     PublishToStream, KeyValueBucket)
//   - graceful Close that drains within the context deadline
//
// KVStore adds timeouts, retry of transient put failures and normalized
// not-found/conflict errors on top of a jetstream.KeyValue bucket. The file
// source uses it to persist its seen-set.
//
// Basic usage:
//
//	client, err := natsclient.NewClient("nats://localhost:4222",
//		natsclient.WithLogger(logger),
//		natsclient.WithMaxReconnects(-1),
//	)
//	if err != nil {
//		return err
//	}
//	if err := client.Connect(ctx); err != nil {
//		return err
//	}
//	defer client.Close(context.Background())
//
// # Testing
//
// NewTestClient and NewSharedTestClient start a NATS server with
// testcontainers. Integration tests in this repository only run with
// INTEGRATION_TESTS=1:
//
//	func TestMain(m *testing.M) {
//		if os.Getenv("INTEGRATION_TESTS") != "" {
//			tc, err := natsclient.NewSharedTestClient(natsclient.WithJetStream())
//			...
//		}
//		os.Exit(m.Run())
//	}
package natsclient
