package main

import (
	"context"
	"log/slog"
	"math/rand/v2"

	"github.com/c360/fieldbus/component"
	"github.com/c360/fieldbus/field"
)

const keyReadings = "demo.readings"

// sensorSource simulates a fixed-rate sensor pushing one reading per cycle.
type sensorSource struct {
	component.Base
	readings *field.Output[float64]
	fps      float64
}

func newSensorSource(id string, fps float64) *sensorSource {
	return &sensorSource{
		Base:     component.NewBase(id),
		readings: field.NewOutput[float64](keyReadings),
		fps:      fps,
	}
}

func (s *sensorSource) Kind() component.Kind { return component.KindIterating }
func (s *sensorSource) Fields() component.FieldSet {
	return component.FieldSet{Outputs: map[string]field.Emitter{"readings": s.readings}}
}
func (s *sensorSource) TargetFPS() float64 { return s.fps }

func (s *sensorSource) Setup(context.Context) error   { return nil }
func (s *sensorSource) Cleanup(context.Context) error { return nil }

func (s *sensorSource) Process(context.Context) error {
	s.readings.Push(20 + 5*rand.Float64())
	return nil
}

// statsSink wakes on readings and logs a running summary.
type statsSink struct {
	component.Base
	readings *field.Buffer[float64]
	logger   *slog.Logger
	total    int
	sum      float64
}

func newStatsSink(id string, logger *slog.Logger) *statsSink {
	return &statsSink{
		Base:     component.NewBase(id),
		readings: field.NewBuffer[float64](keyReadings, field.WithTrigger()),
		logger:   logger.With("component", id),
	}
}

func (s *statsSink) Kind() component.Kind { return component.KindEventDriven }
func (s *statsSink) Fields() component.FieldSet {
	return component.FieldSet{Inputs: map[string]field.Input{"readings": s.readings}}
}

func (s *statsSink) Setup(context.Context) error { return nil }

func (s *statsSink) Process(context.Context) error {
	for _, v := range s.readings.Values() {
		s.total++
		s.sum += v
	}
	if s.total > 0 && s.total%100 == 0 {
		s.logger.Info("reading summary", "count", s.total, "mean", s.sum/float64(s.total))
	}
	return nil
}

func (s *statsSink) Cleanup(context.Context) error {
	if s.total > 0 {
		s.logger.Info("final summary", "count", s.total, "mean", s.sum/float64(s.total))
	}
	return nil
}
