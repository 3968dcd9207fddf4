package transport

import (
	"bufio"
	"context"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/joshuafuller/dictd/internal/registry"
	"github.com/joshuafuller/dictd/internal/store"
	"github.com/joshuafuller/dictd/internal/workerpool"
)

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	m := store.New()
	if err := m.Insert("apple", []byte("A round fruit")); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := m.Finalize(); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	dict := &registry.Dictionary{ShortName: "web1913", LongName: "Webster 1913", Store: m}
	return registry.New([]*registry.Dictionary{dict}, workerpool.New(2))
}

func TestListenerRoundTrip(t *testing.T) {
	ln, err := Listen("127.0.0.1:0", testRegistry(t), zerolog.Nop())
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- ln.Serve(ctx) }()

	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	r := bufio.NewReader(conn)
	greet, err := r.ReadString('\n')
	if err != nil {
		t.Fatalf("read greeting: %v", err)
	}
	if greet != "220 dict 0.1.0\r\n" {
		t.Fatalf("greeting = %q", greet)
	}

	conn.Write([]byte("DEFINE web1913 apple\r\n"))

	want := []string{
		"150 1 definitions retrieved\r\n",
		"151 \"apple\" web1913 \"Webster 1913\"\r\n",
		"A round fruit\r\n",
		".\r\n",
		"250 ok\r\n",
	}
	for _, w := range want {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if line != w {
			t.Fatalf("line = %q, want %q", line, w)
		}
	}

	conn.Write([]byte("QUIT\r\n"))
	bye, err := r.ReadString('\n')
	if err != nil {
		t.Fatalf("read bye: %v", err)
	}
	if bye != "221 bye\r\n" {
		t.Fatalf("bye = %q", bye)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
