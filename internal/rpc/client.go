package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client is a typed wrapper over a SimulationService connection.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps cc.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// WithRequestID tags outgoing calls made with ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, RequestIDMetadataKey, id)
}

// Run runs a scenario.
func (c *Client) Run(ctx context.Context, req RunRequest, opts ...grpc.CallOption) (*RunResponse, error) {
	var resp RunResponse
	if err := c.invoke(ctx, runMethod, req, &resp, opts...); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListScenarios lists the server catalog.
func (c *Client) ListScenarios(ctx context.Context, opts ...grpc.CallOption) (*ListScenariosResponse, error) {
	var resp ListScenariosResponse
	if err := c.invoke(ctx, listScenariosMethod, struct{}{}, &resp, opts...); err != nil {
		return nil, err
	}
	return &resp, nil
}

// AddScenarios adds scenarios, given as the JSON array of a scenario file.
func (c *Client) AddScenarios(ctx context.Context, scenarios []byte, opts ...grpc.CallOption) (*AddScenariosResponse, error) {
	var resp AddScenariosResponse
	if err := c.invoke(ctx, addScenariosMethod, AddScenariosRequest{Scenarios: scenarios}, &resp, opts...); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) invoke(ctx context.Context, method string, req, resp any, opts ...grpc.CallOption) error {
	in, err := toStruct(req)
	if err != nil {
		return err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return err
	}
	return fromStruct(out, resp)
}
