package rpc

import (
	"bytes"
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// RunRequest runs one scenario under one or more guidance laws. Exactly
// one of Scenario (a catalog name) or Definition (an inline scenario in
// the scenario file format) must be set.
type RunRequest struct {
	Scenario   string          `json:"scenario,omitempty"`
	Definition json.RawMessage `json:"definition,omitempty"`
	// Laws are guidance law specs such as "ppn" or "apn:0.5". Empty runs
	// every law with default parameters.
	Laws []string `json:"laws,omitempty"`
	// TrajectoryStride, when positive, returns every n-th sample.
	TrajectoryStride int `json:"trajectory_stride,omitempty"`
}

// RunResponse carries one result per requested law, in request order.
type RunResponse struct {
	Scenario    string      `json:"scenario"`
	Fingerprint string      `json:"fingerprint"`
	Results     []RunResult `json:"results"`
}

// RunResult is the outcome of one engine run.
type RunResult struct {
	RunID        string            `json:"run_id"`
	Law          string            `json:"law"`
	Outcome      string            `json:"outcome"`
	Hit          bool              `json:"hit"`
	MissDistance float64           `json:"miss_distance"`
	Duration     float64           `json:"duration"`
	Steps        int               `json:"steps"`
	Summary      string            `json:"summary"`
	Trajectory   []TrajectoryPoint `json:"trajectory,omitempty"`
}

// TrajectoryPoint is one recorded sample.
type TrajectoryPoint struct {
	Time     float64    `json:"t"`
	Missile  [3]float64 `json:"missile"`
	Target   [3]float64 `json:"target"`
	Distance float64    `json:"distance"`
}

// ListScenariosResponse lists the catalog in insertion order.
type ListScenariosResponse struct {
	Scenarios []ScenarioInfo `json:"scenarios"`
}

// ScenarioInfo describes one catalog entry.
type ScenarioInfo struct {
	Name         string  `json:"name"`
	Fingerprint  string  `json:"fingerprint"`
	DT           float64 `json:"dt"`
	TotalTime    float64 `json:"total_time"`
	HitThreshold float64 `json:"hit_threshold"`
}

// AddScenariosRequest wraps a scenario file document.
type AddScenariosRequest struct {
	Scenarios json.RawMessage `json:"scenarios"`
}

// AddScenariosResponse lists the names added.
type AddScenariosResponse struct {
	Added []string `json:"added"`
}

// toStruct converts a JSON-tagged Go value into a Struct message.
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	return out, nil
}

// fromStruct decodes a Struct message into a JSON-tagged Go value,
// rejecting unknown fields.
func fromStruct(in *structpb.Struct, v any) error {
	if in == nil {
		in = &structpb.Struct{}
	}
	data, err := protojson.Marshal(in)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}
