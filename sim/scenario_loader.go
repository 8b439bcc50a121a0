package sim

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/signalsfoundry/intercept-simulator/model"
)

// internal JSON shapes, unexported so the file format can evolve
// independently of the model types.
type scenarioFileJSON struct {
	Scenarios []scenarioJSON `json:"scenarios"`
}

type scenarioJSON struct {
	Name         string               `json:"name"`
	Missile      *model.MissileConfig `json:"missile"`
	Target       *model.TargetConfig  `json:"target"`
	DT           *float64             `json:"dt"`            // optional; defaults to model.DefaultTiming
	TotalTime    *float64             `json:"total_time"`    // optional
	HitThreshold *float64             `json:"hit_threshold"` // optional
}

// LoadScenarios decodes a scenario file from r. Every entry is validated
// with NewScenario; the first invalid entry aborts the load.
func LoadScenarios(r io.Reader) ([]*Scenario, error) {
	var payload scenarioFileJSON
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("LoadScenarios: decode failed: %w", err)
	}

	out := make([]*Scenario, 0, len(payload.Scenarios))
	for i, sj := range payload.Scenarios {
		opts := []ScenarioOption{WithName(sj.Name)}
		if sj.Missile != nil {
			opts = append(opts, WithMissile(*sj.Missile))
		}
		if sj.Target != nil {
			opts = append(opts, WithTarget(*sj.Target))
		}
		if sj.DT != nil {
			opts = append(opts, WithTimestep(*sj.DT))
		}
		if sj.TotalTime != nil {
			opts = append(opts, WithDuration(*sj.TotalTime))
		}
		if sj.HitThreshold != nil {
			opts = append(opts, WithHitThreshold(*sj.HitThreshold))
		}

		s, err := NewScenario(opts...)
		if err != nil {
			return nil, fmt.Errorf("LoadScenarios: scenario %d (%q): %w", i, sj.Name, err)
		}
		out = append(out, s)
	}
	return out, nil
}

// LoadScenariosFile is LoadScenarios over the named file.
func LoadScenariosFile(path string) ([]*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("LoadScenariosFile: %w", err)
	}
	defer f.Close()
	return LoadScenarios(f)
}

// MarshalScenarios encodes scenarios in the format LoadScenarios reads.
func MarshalScenarios(scenarios []*Scenario) ([]byte, error) {
	payload := scenarioFileJSON{Scenarios: make([]scenarioJSON, 0, len(scenarios))}
	for _, s := range scenarios {
		missile, target := s.missile, s.target
		dt, total, threshold := s.timing.DT, s.timing.TotalTime, s.timing.HitThreshold
		payload.Scenarios = append(payload.Scenarios, scenarioJSON{
			Name:         s.name,
			Missile:      &missile,
			Target:       &target,
			DT:           &dt,
			TotalTime:    &total,
			HitThreshold: &threshold,
		})
	}
	return json.MarshalIndent(payload, "", "  ")
}
