// Package guidance implements the terminal guidance laws that turn
// interceptor/target kinematics into a commanded acceleration.
//
// The laws form a closed set. Engines hold a Law value and dispatch on its
// Kind with a switch, so adding a law means adding a case here and nowhere
// else. Callers that pick a law at runtime (flags, config files, RPC
// requests) go through Parse and may treat the result as a Calculator.
package guidance

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/signalsfoundry/intercept-simulator/core"
)

// ErrUnknownLaw is returned by Parse for unrecognised law names or
// malformed parameters.
var ErrUnknownLaw = errors.New("unknown guidance law")

// Kind identifies one of the six guidance laws.
type Kind uint8

const (
	PPN Kind = iota // Pure Proportional Navigation
	TPN             // True Proportional Navigation
	APN             // Augmented Proportional Navigation (Param: time constant)
	PP              // Pure Pursuit
	DP              // Deviated Pursuit
	LP              // Lead Pursuit (Param: lead time)
)

const (
	DefaultTimeConstant = 0.5
	DefaultLeadTime     = 1.0

	minTimeConstant = 0.01
)

// Calculator is the dynamic face of a guidance law.
type Calculator interface {
	Acceleration(m *core.Interceptor, t *core.Target) mgl64.Vec3
	Name() string
}

// Law is a guidance law selection. Param is only meaningful for APN
// (time constant, seconds) and LP (lead time, seconds).
type Law struct {
	Kind  Kind
	Param float64
}

var _ Calculator = Law{}

func NewPPN() Law { return Law{Kind: PPN} }
func NewTPN() Law { return Law{Kind: TPN} }
func NewPP() Law  { return Law{Kind: PP} }
func NewDP() Law  { return Law{Kind: DP} }

// NewAPN returns an APN law; the time constant is floored at 10 ms.
func NewAPN(timeConstant float64) Law {
	return Law{Kind: APN, Param: math.Max(timeConstant, minTimeConstant)}
}

// NewLP returns a lead pursuit law; negative lead times are treated as zero.
func NewLP(leadTime float64) Law {
	return Law{Kind: LP, Param: math.Max(leadTime, 0)}
}

// Acceleration returns the commanded acceleration for the current
// interceptor and target states. The result never exceeds the
// interceptor's maximum acceleration and the inputs are not modified.
func (l Law) Acceleration(m *core.Interceptor, t *core.Target) mgl64.Vec3 {
	switch l.Kind {
	case PPN:
		return purePN(m, t)
	case TPN:
		return truePN(m, t)
	case APN:
		return augmentedPN(m, t, math.Max(l.Param, minTimeConstant))
	case PP:
		return purePursuit(m, t)
	case DP:
		return deviatedPursuit(m, t)
	case LP:
		return leadPursuit(m, t, math.Max(l.Param, 0))
	default:
		return core.Zero
	}
}

// Name returns the short identifier used in logs, metrics and summaries.
func (l Law) Name() string {
	return l.Kind.String()
}

// String includes the parameter for parameterised laws.
func (l Law) String() string {
	switch l.Kind {
	case APN, LP:
		return fmt.Sprintf("%s(%g)", l.Kind, l.Param)
	default:
		return l.Kind.String()
	}
}

func (k Kind) String() string {
	switch k {
	case PPN:
		return "PPN"
	case TPN:
		return "TPN"
	case APN:
		return "APN"
	case PP:
		return "PP"
	case DP:
		return "DP"
	case LP:
		return "LP"
	default:
		return "UNKNOWN"
	}
}

// Parse reads a law from text such as "ppn", "TPN", "apn:1.25" or "lp:0.8".
// APN and LP fall back to their default parameter when none is given.
func Parse(s string) (Law, error) {
	name, rawParam, hasParam := strings.Cut(strings.TrimSpace(s), ":")

	var param float64
	if hasParam {
		p, err := strconv.ParseFloat(strings.TrimSpace(rawParam), 64)
		if err != nil || math.IsNaN(p) || math.IsInf(p, 0) {
			return Law{}, fmt.Errorf("%w: bad parameter in %q", ErrUnknownLaw, s)
		}
		param = p
	}

	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "PPN":
		return NewPPN(), nil
	case "TPN":
		return NewTPN(), nil
	case "APN":
		if !hasParam {
			param = DefaultTimeConstant
		}
		return NewAPN(param), nil
	case "PP":
		return NewPP(), nil
	case "DP":
		return NewDP(), nil
	case "LP":
		if !hasParam {
			param = DefaultLeadTime
		}
		return NewLP(param), nil
	default:
		return Law{}, fmt.Errorf("%w: %q", ErrUnknownLaw, s)
	}
}

// ParseList parses a comma-separated list of laws.
func ParseList(s string) ([]Law, error) {
	var laws []Law
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		law, err := Parse(part)
		if err != nil {
			return nil, err
		}
		laws = append(laws, law)
	}
	return laws, nil
}

// All returns every law with default parameters, in declaration order.
func All() []Law {
	return []Law{
		NewPPN(),
		NewTPN(),
		NewAPN(DefaultTimeConstant),
		NewPP(),
		NewDP(),
		NewLP(DefaultLeadTime),
	}
}
