package main

import (
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/signalsfoundry/intercept-simulator/internal/logging"
	"github.com/signalsfoundry/intercept-simulator/internal/rpc"
	"github.com/signalsfoundry/intercept-simulator/scenarios"
)

func startServer(t *testing.T, cfg Config) (context.Context, context.CancelFunc, *rpc.Client, <-chan error) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		cancel()
		t.Fatalf("net.Listen: %v", err)
	}
	cfg.ListenAddress = lis.Addr().String()

	log := logging.New(logging.Config{Level: "warn", Format: "text", Output: os.Stderr})

	errCh := make(chan error, 1)
	go func() {
		errCh <- run(ctx, cfg, log, lis)
	}()

	conn, err := grpc.NewClient(cfg.ListenAddress, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		cancel()
		t.Fatalf("grpc.NewClient: %v", err)
	}
	t.Cleanup(func() {
		_ = conn.Close()
		cancel()
	})
	return ctx, cancel, rpc.NewClient(conn), errCh
}

func TestSimServerStartupSmoke(t *testing.T) {
	ctx, cancel, client, errCh := startServer(t, Config{MaxSteps: rpc.DefaultMaxSteps})

	list, err := client.ListScenarios(ctx)
	if err != nil {
		t.Fatalf("ListScenarios: %v", err)
	}
	if want := len(scenarios.All()); len(list.Scenarios) != want {
		t.Fatalf("ListScenarios returned %d scenarios, want %d", len(list.Scenarios), want)
	}
	if list.Scenarios[0].Name != scenarios.PresetNames()[0] {
		t.Fatalf("first scenario = %q, want %q", list.Scenarios[0].Name, scenarios.PresetNames()[0])
	}

	def := json.RawMessage(`{
		"missile": {"velocity": [100,0,0], "max_acceleration": 30, "navigation_constant": 3, "max_closing_speed": 1000},
		"target": {"position": [1000,0,0]},
		"dt": 0.01, "total_time": 20, "hit_threshold": 1
	}`)
	resp, err := client.Run(ctx, rpc.RunRequest{Definition: def, Laws: []string{"ppn"}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(resp.Results) != 1 || !resp.Results[0].Hit {
		t.Fatalf("Run results = %+v, want one hit", resp.Results)
	}

	cancel()
	if err := <-errCh; err != nil {
		t.Fatalf("server returned error: %v", err)
	}
}

func TestSimServerLoadsScenarioFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenarios.json")
	doc := `{"scenarios": [{"name": "custom", "missile": {"velocity": [100,0,0], "max_acceleration": 30, "navigation_constant": 3}, "target": {"position": [1000,0,0]}, "dt": 0.01}]}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	ctx, _, client, _ := startServer(t, Config{ScenariosPath: path, NoPresets: true, MaxSteps: 1000})

	list, err := client.ListScenarios(ctx)
	if err != nil {
		t.Fatalf("ListScenarios: %v", err)
	}
	if len(list.Scenarios) != 1 || list.Scenarios[0].Name != "custom" {
		t.Fatalf("ListScenarios = %+v, want only custom", list.Scenarios)
	}

	// 60 s at 0.01 needs 6001 steps, over the configured limit
	_, err = client.Run(ctx, rpc.RunRequest{Scenario: "custom"})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("Run over step limit code = %v, want InvalidArgument", status.Code(err))
	}
}

func TestRunFailsOnBadScenarioFile(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}
	defer lis.Close()

	cfg := Config{ScenariosPath: filepath.Join(t.TempDir(), "missing.json"), NoPresets: true}
	if err := run(context.Background(), cfg, logging.Noop(), lis); err == nil {
		t.Fatal("run() with missing scenario file returned nil")
	}
}
