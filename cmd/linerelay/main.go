// linerelay connects to a TCP server and echoes every line it receives back
// to it, reconnecting forever. It demonstrates how a line-oriented consumer
// layers a retry policy over the self-healing stream: the stream repairs its
// state after each failure, the Retryer decides when to try again.
package main

import (
	"bytes"
	"context"
	"flag"
	"net/netip"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/pior/retryconn"
)

func main() {
	addrFlag := flag.String("addr", "127.0.0.1:8080", "server address (ip:port)")
	wait := flag.Duration("wait", 5*time.Second, "wait between retry attempts")
	verbose := flag.Bool("verbose", false, "log connection lifecycle events")
	flag.Parse()

	logger := logrus.New()
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	addr, err := netip.ParseAddrPort(*addrFlag)
	if err != nil {
		logger.Fatalf("invalid address %q: %v", *addrFlag, err)
	}

	stream := retryconn.Dial(addr, retryconn.Settings{NoDelay: true}, retryconn.Config{
		Sink: retryconn.NewLogrusSink(logger),
	})
	defer stream.Close()

	retryer := &retryconn.Retryer{
		NewBackOff: func() backoff.BackOff {
			return backoff.NewConstantBackOff(*wait)
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := relay(ctx, stream, retryer); err != nil && ctx.Err() == nil {
		logger.Fatalf("relay: %v", err)
	}
}

// relay forwards every full line read from the stream back to it.
func relay(ctx context.Context, stream *retryconn.Stream, retryer *retryconn.Retryer) error {
	var lines bytes.Buffer
	buf := make([]byte, 4096)

	for ctx.Err() == nil {
		var n int
		err := retryer.Do(ctx, func(ctx context.Context) error {
			var err error
			n, err = stream.Read(ctx, buf)
			return err
		})
		if err != nil {
			return err
		}
		lines.Write(buf[:n])

		for {
			i := bytes.IndexByte(lines.Bytes(), '\n')
			if i < 0 {
				break
			}
			line := make([]byte, i+1)
			lines.Read(line)

			err := retryer.Do(ctx, func(ctx context.Context) error {
				_, err := stream.Write(ctx, line)
				return err
			})
			if err != nil {
				return err
			}
		}
	}
	return ctx.Err()
}
