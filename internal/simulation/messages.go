package simulation

import (
	"errors"
	"fmt"
	"time"

	"github.com/lao-tseu-is-alive/go-swarm-flock/pkg/geometry"
	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

var (
	ErrBadGoal      = errors.New("malformed goal message")
	ErrGoalRejected = errors.New("goal rejected")
)

// NewTickMessage asks the flock to advance by dt.
func NewTickMessage(dt time.Duration) *durationpb.Duration {
	return durationpb.New(dt)
}

// NewGoalMessage asks the leader to navigate to p.
func NewGoalMessage(p geometry.Vector3D) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"x": structpb.NewNumberValue(p.X),
		"y": structpb.NewNumberValue(p.Y),
		"z": structpb.NewNumberValue(p.Z),
	}}
}

func goalFromMessage(msg *structpb.Struct) (geometry.Vector3D, error) {
	var p geometry.Vector3D
	for _, axis := range []struct {
		name string
		dst  *float64
	}{{"x", &p.X}, {"y", &p.Y}, {"z", &p.Z}} {
		v, ok := msg.GetFields()[axis.name]
		if !ok {
			return p, fmt.Errorf("%w: missing %q", ErrBadGoal, axis.name)
		}
		n, ok := v.GetKind().(*structpb.Value_NumberValue)
		if !ok {
			return p, fmt.Errorf("%w: %q is not a number", ErrBadGoal, axis.name)
		}
		*axis.dst = n.NumberValue
	}
	return p, nil
}

// goalReply carries the rejection reason back to the asker. Empty means accepted.
func goalReply(err error) *wrapperspb.StringValue {
	if err == nil {
		return wrapperspb.String("")
	}
	return wrapperspb.String(err.Error())
}
