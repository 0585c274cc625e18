package monitor

import (
	"context"
	"time"
)

type twchartClient interface {
	CreateSession(ctx context.Context, name string, start time.Time) (string, error)
	AddEvent(ctx context.Context, note string, at time.Time) error
	AddStage(ctx context.Context, name string, start time.Time) error
	Done(ctx context.Context, at time.Time) error
}

type noopTWChartClient struct{}

var _ twchartClient = noopTWChartClient{}

// AddEvent implements twchartClient.
func (n noopTWChartClient) AddEvent(ctx context.Context, note string, at time.Time) error {
	return nil
}

// AddStage implements twchartClient.
func (n noopTWChartClient) AddStage(ctx context.Context, name string, start time.Time) error {
	return nil
}

// CreateSession implements twchartClient.
func (n noopTWChartClient) CreateSession(ctx context.Context, name string, start time.Time) (string, error) {
	return "", nil
}

// Done implements twchartClient.
func (n noopTWChartClient) Done(ctx context.Context, at time.Time) error {
	return nil
}
