package rpc

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/signalsfoundry/intercept-simulator/core"
	"github.com/signalsfoundry/intercept-simulator/guidance"
	"github.com/signalsfoundry/intercept-simulator/kb"
	"github.com/signalsfoundry/intercept-simulator/sim"
)

// ErrInvalidRequest is returned for structurally invalid requests.
var ErrInvalidRequest = errors.New("invalid request")

// ToStatusError maps simulator errors onto gRPC status codes.
func ToStatusError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, kb.ErrScenarioNotFound):
		return status.Error(codes.NotFound, err.Error())

	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, guidance.ErrUnknownLaw),
		errors.Is(err, sim.ErrMissingMissileConfig),
		errors.Is(err, sim.ErrMissingTargetConfig),
		errors.Is(err, sim.ErrInvalidTiming),
		errors.Is(err, sim.ErrInvalidAcceleration),
		errors.Is(err, core.ErrMissingEpoch):
		return status.Error(codes.InvalidArgument, err.Error())

	case errors.Is(err, kb.ErrScenarioExists):
		return status.Error(codes.AlreadyExists, err.Error())

	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())

	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())

	default:
		return status.Error(codes.Internal, err.Error())
	}
}
