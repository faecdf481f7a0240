package notify

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func expectStream(t *testing.T, got <-chan string, want string) {
	t.Helper()
	select {
	case s := <-got:
		if s != want {
			t.Fatalf("expected %q, got %q", want, s)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %q", want)
	}
}

func exercise(t *testing.T, bus Bus) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan string, 4)
	if err := bus.Subscribe(ctx, func(stream string) { got <- stream }); err != nil {
		t.Fatal(err)
	}

	if err := bus.Publish(ctx, "messages"); err != nil {
		t.Fatal(err)
	}
	expectStream(t, got, "messages")

	if err := bus.Publish(ctx, "cursors"); err != nil {
		t.Fatal(err)
	}
	expectStream(t, got, "cursors")
}

func TestRedisBus(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	exercise(t, NewRedisBus(client, zerolog.Nop()))
}

func TestLocalBus(t *testing.T) {
	exercise(t, NewLocalBus())
}

func TestLocalBusUnsubscribesOnCancel(t *testing.T) {
	bus := NewLocalBus()
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	if err := bus.Subscribe(ctx, func(string) { calls++ }); err != nil {
		t.Fatal(err)
	}
	cancel()

	deadline := time.Now().Add(time.Second)
	for {
		bus.mu.Lock()
		n := len(bus.handlers)
		bus.mu.Unlock()
		if n == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("handler still registered after cancel")
		}
		time.Sleep(5 * time.Millisecond)
	}

	_ = bus.Publish(context.Background(), "messages")
	if calls != 0 {
		t.Fatalf("expected no calls after cancel, got %d", calls)
	}
}

func TestNATSBus(t *testing.T) {
	url := os.Getenv("NATS_TEST_URL")
	if url == "" {
		t.Skip("NATS_TEST_URL not set")
	}
	bus, err := NewNATSBus(url, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer bus.Close()

	exercise(t, bus)
}
