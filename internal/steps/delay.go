package steps

import (
	"context"
	"fmt"
	"time"
)

const StepTypeDelay = "delay"

// DelayStep ждёт заданное время: {"duration": "1.5s"} или {"duration_ms": 500}.
type DelayStep struct{}

func NewDelayStep() *DelayStep { return &DelayStep{} }

func (s *DelayStep) Type() string { return StepTypeDelay }

func (s *DelayStep) Execute(ctx context.Context, req *Request) (*Response, error) {
	d, found, err := req.Config.Duration("duration", "duration_ms")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", StepTypeDelay, err)
	}
	if !found {
		return nil, fmt.Errorf("%w: %s: duration or duration_ms required", ErrInvalidConfig, StepTypeDelay)
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, cancelled(ctx)
	case <-timer.C:
		return respond(map[string]any{"duration_ms": d.Milliseconds()}), nil
	}
}
