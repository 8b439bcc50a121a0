// Package rpc exposes the simulator over gRPC: run a catalog or inline
// scenario under a set of guidance laws, list the catalog, and add to it.
package rpc

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/signalsfoundry/intercept-simulator/guidance"
	"github.com/signalsfoundry/intercept-simulator/internal/logging"
	"github.com/signalsfoundry/intercept-simulator/internal/observability"
	"github.com/signalsfoundry/intercept-simulator/kb"
	"github.com/signalsfoundry/intercept-simulator/sim"
)

// DefaultMaxSteps caps the steps a single requested run may take.
const DefaultMaxSteps = 10_000_000

// Service implements SimulationServer over a scenario catalog.
//
// Semantics:
//   - Run resolves the scenario by name or from an inline definition,
//     then runs each requested law on a fresh engine, sequentially, under
//     the request context.
//   - Runs against catalog scenarios are recorded back into the catalog.
//   - ListScenarios returns the catalog in insertion order.
//   - AddScenarios validates the whole document before adding anything.
type Service struct {
	catalog   *kb.Catalog
	log       logging.Logger
	collector *observability.RunCollector
	maxSteps  int
}

// ServiceOption customises a Service.
type ServiceOption func(*Service)

// WithRunCollector reports every run to c.
func WithRunCollector(c *observability.RunCollector) ServiceOption {
	return func(s *Service) { s.collector = c }
}

// WithMaxSteps overrides DefaultMaxSteps.
func WithMaxSteps(n int) ServiceOption {
	return func(s *Service) { s.maxSteps = n }
}

// NewService constructs a Service bound to catalog.
func NewService(catalog *kb.Catalog, log logging.Logger, opts ...ServiceOption) *Service {
	if log == nil {
		log = logging.Noop()
	}
	s := &Service{
		catalog:  catalog,
		log:      log,
		maxSteps: DefaultMaxSteps,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Run implements SimulationServer.
func (s *Service) Run(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req RunRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, ToStatusError(err)
	}
	resp, err := s.run(ctx, req)
	if err != nil {
		return nil, ToStatusError(err)
	}
	out, err := toStruct(resp)
	return out, ToStatusError(err)
}

func (s *Service) run(ctx context.Context, req RunRequest) (*RunResponse, error) {
	log := s.requestLogger(ctx)

	scenario, fromCatalog, err := s.resolveScenario(req)
	if err != nil {
		return nil, err
	}
	if steps := scenario.MaxSteps(); s.maxSteps > 0 && steps > s.maxSteps {
		return nil, fmt.Errorf("%w: scenario %q needs up to %d steps, limit is %d",
			ErrInvalidRequest, scenario.Name(), steps, s.maxSteps)
	}

	laws, err := parseLaws(req.Laws)
	if err != nil {
		return nil, err
	}

	var recorders []sim.RunRecorder
	if s.collector != nil {
		recorders = append(recorders, s.collector)
	}
	if fromCatalog {
		recorders = append(recorders, s.catalog)
	}

	resp := &RunResponse{
		Scenario:    scenario.Name(),
		Fingerprint: formatFingerprint(scenario.Fingerprint()),
		Results:     make([]RunResult, 0, len(laws)),
	}
	for _, law := range laws {
		result, err := s.runOne(ctx, log, scenario, law, recorders, req.TrajectoryStride)
		if err != nil {
			return nil, err
		}
		resp.Results = append(resp.Results, result)
	}
	return resp, nil
}

func (s *Service) runOne(ctx context.Context, log logging.Logger, scenario *sim.Scenario, law guidance.Law, recorders []sim.RunRecorder, stride int) (RunResult, error) {
	runID := logging.NewRunID()
	ctx = logging.ContextWithRunID(ctx, runID)
	ctx, span := startRunSpan(ctx, scenario, law, runID)
	defer span.End()

	opts := []sim.EngineOption{sim.WithLogger(log)}
	if len(recorders) > 0 {
		opts = append(opts, sim.WithRecorder(fanout(recorders)))
	}
	e, err := scenario.NewEngine(opts...)
	if err != nil {
		return RunResult{}, err
	}
	m, err := e.RunContext(ctx, law)
	if err != nil {
		span.RecordError(err)
		return RunResult{}, err
	}

	return RunResult{
		RunID:        runID,
		Law:          law.String(),
		Outcome:      e.Outcome().String(),
		Hit:          m.Hit,
		MissDistance: m.MissDistance,
		Duration:     m.Duration(),
		Steps:        e.Steps(),
		Summary:      m.Summary(),
		Trajectory:   trajectory(m, stride),
	}, nil
}

func (s *Service) resolveScenario(req RunRequest) (*sim.Scenario, bool, error) {
	hasName := strings.TrimSpace(req.Scenario) != ""
	hasDef := len(bytes.TrimSpace(req.Definition)) > 0 && string(bytes.TrimSpace(req.Definition)) != "null"

	switch {
	case hasName && hasDef:
		return nil, false, fmt.Errorf("%w: set scenario or definition, not both", ErrInvalidRequest)
	case hasName:
		if s.catalog == nil {
			return nil, false, fmt.Errorf("scenario %q: %w", req.Scenario, kb.ErrScenarioNotFound)
		}
		sc, err := s.catalog.GetScenario(req.Scenario)
		return sc, err == nil, err
	case hasDef:
		doc := append(append([]byte(`{"scenarios":[`), req.Definition...), "]}"...)
		scenarios, err := sim.LoadScenarios(bytes.NewReader(doc))
		if err != nil {
			return nil, false, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
		return scenarios[0], false, nil
	default:
		return nil, false, fmt.Errorf("%w: scenario or definition is required", ErrInvalidRequest)
	}
}

func parseLaws(specs []string) ([]guidance.Law, error) {
	if len(specs) == 0 {
		return guidance.All(), nil
	}
	laws := make([]guidance.Law, 0, len(specs))
	for _, spec := range specs {
		law, err := guidance.Parse(spec)
		if err != nil {
			return nil, err
		}
		laws = append(laws, law)
	}
	return laws, nil
}

func trajectory(m *sim.Metrics, stride int) []TrajectoryPoint {
	if stride <= 0 || m.Len() == 0 {
		return nil
	}
	points := make([]TrajectoryPoint, 0, m.Len()/stride+2)
	last := m.Len() - 1
	for i := 0; i <= last; i += stride {
		points = append(points, point(m, i))
	}
	// always end on the terminal sample
	if last%stride != 0 {
		points = append(points, point(m, last))
	}
	return points
}

func point(m *sim.Metrics, i int) TrajectoryPoint {
	return TrajectoryPoint{
		Time:     m.Times[i],
		Missile:  m.MissilePositions[i],
		Target:   m.TargetPositions[i],
		Distance: m.Distances[i],
	}
}

// ListScenarios implements SimulationServer.
func (s *Service) ListScenarios(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req struct{}
	if err := fromStruct(in, &req); err != nil {
		return nil, ToStatusError(err)
	}

	resp := ListScenariosResponse{Scenarios: []ScenarioInfo{}}
	if s.catalog != nil {
		for _, sc := range s.catalog.ListScenarios() {
			resp.Scenarios = append(resp.Scenarios, ScenarioInfo{
				Name:         sc.Name(),
				Fingerprint:  formatFingerprint(sc.Fingerprint()),
				DT:           sc.Timestep(),
				TotalTime:    sc.Duration(),
				HitThreshold: sc.HitThreshold(),
			})
		}
	}
	out, err := toStruct(resp)
	return out, ToStatusError(err)
}

// AddScenarios implements SimulationServer.
func (s *Service) AddScenarios(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	log := s.requestLogger(ctx)

	var req AddScenariosRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, ToStatusError(err)
	}
	if s.catalog == nil {
		return nil, ToStatusError(fmt.Errorf("%w: server has no catalog", ErrInvalidRequest))
	}

	doc := append(append([]byte(`{"scenarios":`), req.Scenarios...), '}')
	scenarios, err := sim.LoadScenarios(bytes.NewReader(doc))
	if err != nil {
		return nil, ToStatusError(fmt.Errorf("%w: %w", ErrInvalidRequest, err))
	}
	seen := make(map[string]bool, len(scenarios))
	for _, sc := range scenarios {
		if strings.TrimSpace(sc.Name()) == "" {
			return nil, ToStatusError(fmt.Errorf("%w: catalog scenarios need a name", ErrInvalidRequest))
		}
		if seen[sc.Name()] {
			return nil, ToStatusError(fmt.Errorf("%w: scenario %q listed twice", ErrInvalidRequest, sc.Name()))
		}
		seen[sc.Name()] = true
	}
	if err := s.catalog.AddScenarios(scenarios...); err != nil {
		return nil, ToStatusError(err)
	}

	resp := AddScenariosResponse{Added: make([]string, 0, len(scenarios))}
	for _, sc := range scenarios {
		resp.Added = append(resp.Added, sc.Name())
	}
	log.Info(ctx, "scenarios added", logging.Int("count", len(resp.Added)))

	out, err := toStruct(resp)
	return out, ToStatusError(err)
}

func formatFingerprint(fp uint64) string {
	return fmt.Sprintf("%016x", fp)
}

func (s *Service) requestLogger(ctx context.Context) logging.Logger {
	if l := logging.LoggerFromContext(ctx); l != nil {
		return l
	}
	return s.log
}

type fanout []sim.RunRecorder

func (f fanout) RecordRun(r sim.RunReport) {
	for _, rec := range f {
		rec.RecordRun(r)
	}
}
