// Command p3gatewayd accepts P3 client connections over TCP, decodes
// their traffic, and publishes it on an in-process broker. If a Redis
// address is configured, wiretap and dead-letter traffic is also
// mirrored there for external observers.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/oldline/p3gateway/pkg/bridge"
	"github.com/oldline/p3gateway/pkg/broker"
	"github.com/oldline/p3gateway/pkg/endpoint"
	"github.com/oldline/p3gateway/pkg/gateway"
)

var (
	listenAddr = flag.String("listen", ":5190", "TCP address to accept P3 client connections on")
	redisAddr  = flag.String("redis-addr", "", "Redis address for wiretap/dead-letter bridging (disabled if empty)")
	redisPass  = flag.String("redis-pass", "", "Redis password")
	redisDB    = flag.Int("redis-db", 0, "Redis database number")
)

func main() {
	flag.Parse()

	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
	log.Printf("Starting P3 gateway")
	log.Printf("Listen address: %s", *listenAddr)

	b := broker.New()
	defer b.Close()

	var sink *bridge.RedisSink
	if *redisAddr != "" {
		var err error
		cfg := bridge.DefaultConfig(*redisAddr)
		cfg.Password = *redisPass
		cfg.DB = *redisDB
		sink, err = bridge.NewRedisSink(cfg, b)
		if err != nil {
			log.Fatalf("Failed to start Redis bridge: %v", err)
		}
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		sink.Run(ctx)
		defer sink.Close()
		log.Printf("Bridging wiretap/dead_letter to Redis at %s", *redisAddr)
	}

	listener, err := net.Listen("tcp", *listenAddr)
	if err != nil {
		log.Fatalf("Failed to listen on %s: %v", *listenAddr, err)
	}
	defer listener.Close()
	log.Printf("Listening for P3 clients")

	ctx, cancel := context.WithCancel(context.Background())
	scheduler := endpoint.NewScheduler()

	scheduler.StartJob(ctx, "accept-loop", func(ctx context.Context) error {
		acceptLoop(ctx, scheduler, listener, b)
		return nil
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Printf("Shutting down...")
	cancel()
	listener.Close()
	scheduler.Wait()
}

// acceptLoop accepts connections until ctx is cancelled, starting each
// one as its own scheduler job so shutdown can wait for every live
// session the same way it waits for the accept loop itself.
func acceptLoop(ctx context.Context, scheduler *endpoint.Scheduler, listener net.Listener, b *broker.Broker) {
	var sessionID int
	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
				log.Printf("Accept error: %v", err)
				continue
			}
		}

		sessionID++
		id := fmt.Sprintf("%d", sessionID)

		ep := endpoint.NewNetEndpoint(conn)
		session := gateway.NewSession(id, ep, b)
		log.Printf("Accepted session %s from %s", id, session.PeerAddr())

		scheduler.StartJob(ctx, fmt.Sprintf("session-%s", id), func(ctx context.Context) error {
			defer session.Close()
			if err := session.Run(ctx); err != nil {
				log.Printf("Session %s ended: %v", id, err)
			}
			return nil
		})
	}
}
