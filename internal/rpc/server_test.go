package rpc

import (
	"context"
	"encoding/json"
	"math"
	"net"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/signalsfoundry/intercept-simulator/guidance"
	"github.com/signalsfoundry/intercept-simulator/internal/logging"
	"github.com/signalsfoundry/intercept-simulator/internal/observability"
	"github.com/signalsfoundry/intercept-simulator/kb"
	"github.com/signalsfoundry/intercept-simulator/model"
	"github.com/signalsfoundry/intercept-simulator/sim"
)

type rpcTestEnv struct {
	ctx       context.Context
	catalog   *kb.Catalog
	collector *observability.RunCollector
	client    *Client
}

func headOnScenario(t *testing.T, name string) *sim.Scenario {
	t.Helper()
	s, err := sim.NewScenario(
		sim.WithName(name),
		sim.WithMissile(model.MissileConfig{
			Velocity:           mgl64.Vec3{100, 0, 0},
			MaxAcceleration:    30,
			NavigationConstant: 3,
			MaxClosingSpeed:    1000,
		}),
		sim.WithTarget(model.TargetConfig{Position: mgl64.Vec3{1000, 0, 0}}),
		sim.WithTimestep(0.01),
		sim.WithDuration(20),
		sim.WithHitThreshold(1),
	)
	if err != nil {
		t.Fatalf("NewScenario() error = %v", err)
	}
	return s
}

func newRPCTestEnv(t *testing.T, opts ...ServiceOption) *rpcTestEnv {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)

	catalog := kb.NewCatalog()
	if err := catalog.AddScenario(headOnScenario(t, "head-on")); err != nil {
		cancel()
		t.Fatalf("AddScenario() error = %v", err)
	}

	collector, err := observability.NewRunCollector(prometheus.NewRegistry())
	if err != nil {
		cancel()
		t.Fatalf("NewRunCollector() error = %v", err)
	}

	lis := bufconn.Listen(1 << 20)

	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(
		RequestIDUnaryServerInterceptor(logging.Noop()),
		TracingUnaryServerInterceptor(),
	))
	RegisterSimulationServer(grpcServer, NewService(catalog, logging.Noop(), append([]ServiceOption{WithRunCollector(collector)}, opts...)...))

	go func() { _ = grpcServer.Serve(lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		cancel()
		t.Fatalf("grpc.NewClient: %v", err)
	}

	t.Cleanup(func() {
		grpcServer.GracefulStop()
		_ = conn.Close()
		cancel()
	})

	return &rpcTestEnv{
		ctx:       ctx,
		catalog:   catalog,
		collector: collector,
		client:    NewClient(conn),
	}
}

func TestRunCatalogScenario(t *testing.T) {
	env := newRPCTestEnv(t)

	var header metadata.MD
	resp, err := env.client.Run(WithRequestID(env.ctx, "req-1"), RunRequest{
		Scenario:         "head-on",
		Laws:             []string{"ppn"},
		TrajectoryStride: 100,
	}, grpc.Header(&header))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := header.Get(RequestIDMetadataKey); len(got) != 1 || got[0] != "req-1" {
		t.Fatalf("response %s header = %v, want [req-1]", RequestIDMetadataKey, got)
	}
	if resp.Scenario != "head-on" || len(resp.Fingerprint) != 16 {
		t.Fatalf("Run() scenario = %q fingerprint = %q", resp.Scenario, resp.Fingerprint)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("Run() results = %d, want 1", len(resp.Results))
	}

	r := resp.Results[0]
	if r.Law != "PPN" || r.Outcome != "hit" || !r.Hit {
		t.Fatalf("result = %+v, want PPN hit", r)
	}
	if math.Abs(r.Duration-10) > 0.1 {
		t.Fatalf("Duration = %v, want 10 ± 0.1", r.Duration)
	}
	if r.RunID == "" || r.Summary == "" {
		t.Fatalf("result missing run id or summary: %+v", r)
	}
	if len(r.Trajectory) < 2 {
		t.Fatalf("trajectory has %d points, want several", len(r.Trajectory))
	}
	if first := r.Trajectory[0]; first.Time != 0 || first.Distance != 1000 {
		t.Fatalf("first point = %+v, want t=0 at 1000 m", first)
	}
	if last := r.Trajectory[len(r.Trajectory)-1]; math.Abs(last.Time-r.Duration) > 1e-9 {
		t.Fatalf("last point time = %v, want %v", last.Time, r.Duration)
	}

	if got := len(env.catalog.Results("head-on")); got != 1 {
		t.Fatalf("catalog results = %d, want 1", got)
	}
	if got := testutil.ToFloat64(env.collector.RunsTotal.WithLabelValues("PPN", "hit")); got != 1 {
		t.Fatalf("sim_runs_total{PPN,hit} = %v, want 1", got)
	}
}

func TestRunDefaultsToEveryLaw(t *testing.T) {
	env := newRPCTestEnv(t)

	resp, err := env.client.Run(env.ctx, RunRequest{Scenario: "head-on"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	want := guidance.All()
	if len(resp.Results) != len(want) {
		t.Fatalf("Run() results = %d, want %d", len(resp.Results), len(want))
	}
	for i, r := range resp.Results {
		if r.Law != want[i].String() {
			t.Fatalf("result %d law = %q, want %q", i, r.Law, want[i].String())
		}
		if r.Trajectory != nil {
			t.Fatalf("result %d has trajectory without a stride", i)
		}
	}
}

func TestRunInlineDefinition(t *testing.T) {
	env := newRPCTestEnv(t)

	def := json.RawMessage(`{
		"name": "inline",
		"missile": {"position": [0,0,0], "velocity": [100,0,0], "max_acceleration": 30, "navigation_constant": 3, "max_closing_speed": 1000},
		"target": {"position": [1000,0,0], "velocity": [0,0,0]},
		"dt": 0.01, "total_time": 20, "hit_threshold": 1
	}`)
	resp, err := env.client.Run(env.ctx, RunRequest{Definition: def, Laws: []string{"ppn"}})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !resp.Results[0].Hit {
		t.Fatalf("inline run = %+v, want hit", resp.Results[0])
	}
	// inline scenarios are not catalog entries, so nothing is recorded
	if got := len(env.catalog.Results("inline")); got != 0 {
		t.Fatalf("catalog results for inline = %d, want 0", got)
	}
	if want := headOnScenario(t, "other").Fingerprint(); resp.Fingerprint != formatFingerprint(want) {
		t.Fatalf("fingerprint = %q, want %q", resp.Fingerprint, formatFingerprint(want))
	}
}

func TestRunErrors(t *testing.T) {
	env := newRPCTestEnv(t, WithMaxSteps(100))

	tests := []struct {
		name string
		req  RunRequest
		code codes.Code
	}{
		{name: "no scenario", req: RunRequest{}, code: codes.InvalidArgument},
		{name: "both set", req: RunRequest{Scenario: "head-on", Definition: json.RawMessage(`{}`)}, code: codes.InvalidArgument},
		{name: "missing", req: RunRequest{Scenario: "nope"}, code: codes.NotFound},
		{name: "unknown law", req: RunRequest{Scenario: "head-on", Laws: []string{"xyz"}}, code: codes.InvalidArgument},
		{name: "step limit", req: RunRequest{Scenario: "head-on", Laws: []string{"ppn"}}, code: codes.InvalidArgument},
		{name: "bad definition", req: RunRequest{Definition: json.RawMessage(`{"name":"x"}`)}, code: codes.InvalidArgument},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.client.Run(env.ctx, tc.req)
			if code := status.Code(err); code != tc.code {
				t.Fatalf("Run() code = %v (%v), want %v", code, err, tc.code)
			}
		})
	}
}

func TestListAndAddScenarios(t *testing.T) {
	env := newRPCTestEnv(t)

	doc := []byte(`[
		{"name": "a", "missile": {"velocity": [100,0,0], "max_acceleration": 30, "navigation_constant": 3}, "target": {"position": [500,0,0]}},
		{"name": "b", "missile": {"velocity": [100,0,0], "max_acceleration": 30, "navigation_constant": 3}, "target": {"position": [800,0,0]}, "dt": 0.05}
	]`)
	added, err := env.client.AddScenarios(env.ctx, doc)
	if err != nil {
		t.Fatalf("AddScenarios() error = %v", err)
	}
	if len(added.Added) != 2 || added.Added[0] != "a" || added.Added[1] != "b" {
		t.Fatalf("AddScenarios() added = %v", added.Added)
	}

	list, err := env.client.ListScenarios(env.ctx)
	if err != nil {
		t.Fatalf("ListScenarios() error = %v", err)
	}
	var names []string
	for _, s := range list.Scenarios {
		names = append(names, s.Name)
	}
	if len(names) != 3 || names[0] != "head-on" || names[1] != "a" || names[2] != "b" {
		t.Fatalf("ListScenarios() names = %v, want [head-on a b]", names)
	}
	if b := list.Scenarios[2]; b.DT != 0.05 || b.TotalTime != model.DefaultTiming().TotalTime {
		t.Fatalf("scenario b timing = %+v", b)
	}

	if _, err := env.client.AddScenarios(env.ctx, doc); status.Code(err) != codes.AlreadyExists {
		t.Fatalf("AddScenarios() duplicate code = %v, want AlreadyExists", status.Code(err))
	}

	twice := []byte(`[
		{"name": "c", "missile": {"velocity": [1,0,0]}, "target": {}},
		{"name": "c", "missile": {"velocity": [1,0,0]}, "target": {}}
	]`)
	if _, err := env.client.AddScenarios(env.ctx, twice); status.Code(err) != codes.InvalidArgument {
		t.Fatalf("AddScenarios() repeated name code = %v, want InvalidArgument", status.Code(err))
	}
	if env.catalog.Len() != 3 {
		t.Fatalf("catalog Len() = %d after rejected adds, want 3", env.catalog.Len())
	}
}

func TestRunHonoursDeadline(t *testing.T) {
	env := newRPCTestEnv(t)

	ctx, cancel := context.WithCancel(env.ctx)
	cancel()
	_, err := env.client.Run(ctx, RunRequest{Scenario: "head-on", Laws: []string{"ppn"}})
	if code := status.Code(err); code != codes.Canceled {
		t.Fatalf("Run() with cancelled context code = %v, want Canceled", code)
	}
}

func TestTrajectoryStride(t *testing.T) {
	m := sim.NewMetrics()
	for i := 0; i < 7; i++ {
		m.Record(sim.Sample{Time: float64(i), Distance: float64(10 - i)})
	}

	got := trajectory(m, 3)
	times := make([]float64, len(got))
	for i, p := range got {
		times[i] = p.Time
	}
	if len(times) != 3 || times[0] != 0 || times[1] != 3 || times[2] != 6 {
		t.Fatalf("stride 3 times = %v, want [0 3 6]", times)
	}

	got = trajectory(m, 4)
	if len(got) != 3 || got[2].Time != 6 {
		t.Fatalf("stride 4 = %+v, want final sample appended", got)
	}
	if trajectory(m, 0) != nil {
		t.Fatal("stride 0 returned points")
	}
}
