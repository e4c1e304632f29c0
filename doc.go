// Package retryconn provides a transparent reconnecting wrapper around a TCP
// client connection.
//
// A Stream exposes the same readable/writable contract as a raw connection
// but, on any I/O error other than a would-block result, silently discards
// the broken connection and arms a fresh dial to the same address. The error
// is still returned to the caller; only the internal state is repaired, so
// the next read or write drives a new connection attempt instead of failing
// permanently.
//
// The stream never decides when to retry. That is the job of a collaborator
// such as Retryer, which observes the surfaced failures and schedules the
// next call according to a backoff policy:
//
//	stream := retryconn.Dial(addr, retryconn.Settings{NoDelay: true}, retryconn.Config{})
//	retryer := &retryconn.Retryer{}
//
//	err := retryer.Do(ctx, func(ctx context.Context) error {
//	    _, err := stream.Write(ctx, payload)
//	    return err
//	})
//
// Socket settings (no-delay, keep-alive) are cached on the stream and
// replayed onto every freshly established connection, so behavior is
// consistent across reconnects.
//
// A Stream is driven by a single logical caller at a time and performs no
// internal locking. Concurrent use requires external mutual exclusion.
package retryconn
