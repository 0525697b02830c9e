package server

import (
	"context"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

func startGRPC(t *testing.T) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := NewWithListeners(newTestHub(t, nil), nil, lis)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
		}
	})

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestGRPCHealth(t *testing.T) {
	conn := startGRPC(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	resp, err := grpc_health_v1.NewHealthClient(conn).Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: SessionServiceName})
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if resp.GetStatus() != grpc_health_v1.HealthCheckResponse_SERVING {
		t.Fatalf("status = %v", resp.GetStatus())
	}
}

func TestGRPCSessionFlow(t *testing.T) {
	client := NewSessionClient(startGRPC(t))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	created, err := client.Call(ctx, "Create", map[string]any{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	id, _ := created["id"].(string)
	if id == "" || created["phase"] != "idle" {
		t.Fatalf("created = %v", created)
	}

	if _, err := client.Call(ctx, "Start", map[string]any{"id": id}); err != nil {
		t.Fatalf("start: %v", err)
	}
	var snap map[string]any
	for i := 0; i < 2; i++ {
		if _, err := client.Call(ctx, "Drop", map[string]any{"id": id, "x": 200}); err != nil {
			t.Fatalf("drop: %v", err)
		}
		snap, err = client.Call(ctx, "Tick", map[string]any{"id": id, "dt": 16})
		if err != nil {
			t.Fatalf("tick: %v", err)
		}
	}
	if snap["score"] != float64(50) || snap["score_text"] != "점수 50" {
		t.Fatalf("score = %v %v", snap["score"], snap["score_text"])
	}
	events, _ := snap["events"].([]any)
	if len(events) != 1 {
		t.Fatalf("events = %v", snap["events"])
	}
	if ev, _ := events[0].(map[string]any); ev["type"] != "merge_resolved" {
		t.Fatalf("event = %v", events[0])
	}

	got, err := client.Call(ctx, "Get", map[string]any{"id": id})
	if err != nil || got["score"] != float64(50) {
		t.Fatalf("get = %v %v", got, err)
	}
	if _, err := client.Call(ctx, "Delete", map[string]any{"id": id}); err != nil {
		t.Fatalf("delete: %v", err)
	}
}

func TestGRPCStatusCodes(t *testing.T) {
	client := NewSessionClient(startGRPC(t))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := client.Call(ctx, "Get", map[string]any{"id": "missing"})
	if status.Code(err) != codes.NotFound {
		t.Fatalf("get missing = %v", err)
	}
	created, err := client.Call(ctx, "Create", nil)
	if err != nil {
		t.Fatal(err)
	}
	id := created["id"].(string)
	if _, err := client.Call(ctx, "Drop", map[string]any{"id": id}); status.Code(err) != codes.InvalidArgument {
		t.Fatalf("drop without x = %v", err)
	}
	if _, err := client.Call(ctx, "Tick", map[string]any{"id": id, "dt": -1}); status.Code(err) != codes.InvalidArgument {
		t.Fatalf("negative dt = %v", err)
	}
	if _, err := client.Call(ctx, "Create", map[string]any{"profile": "../etc"}); status.Code(err) != codes.InvalidArgument {
		t.Fatalf("bad profile = %v", err)
	}
	if _, err := client.Call(ctx, "Nope", nil); status.Code(err) != codes.Unimplemented {
		t.Fatalf("unknown method = %v", err)
	}
}
