// Package experiment loads YAML experiment descriptions and builds the
// network models they describe, one per replica and sweep point.
package experiment

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/qnetsim/qnetsim/sim"
	"github.com/qnetsim/qnetsim/sim/replica"
	"github.com/qnetsim/qnetsim/sim/variate"
)

// Variate kinds.
const (
	KindExponential = "exponential"
	KindTES         = "tes"
	KindReplay      = "replay"
)

// RNG kinds.
const (
	RNGPartitioned = "partitioned" // math/rand streams derived from seed XOR subsystem hash
	RNGStreams     = "mrg32k3a"    // L'Ecuyer MRG32k3a streams, one per replica and subsystem
)

// ReplicaPlaceholder is replaced by the replica index in replay paths.
const ReplicaPlaceholder = "{replica}"

// Spec is the top-level experiment configuration.
// Loaded from YAML via LoadSpec(path).
type Spec struct {
	Version     string       `yaml:"version"`
	Seed        int64        `yaml:"seed"`
	Topology    string       `yaml:"topology"`
	Routing     string       `yaml:"routing,omitempty"`
	Feedback    FeedbackSpec `yaml:"feedback,omitempty"`
	ArrivalRate float64      `yaml:"arrival_rate"`
	ServiceRate float64      `yaml:"service_rate"`
	Departures  int64        `yaml:"departures,omitempty"`
	Events      int64        `yaml:"events,omitempty"`
	Replicas    int          `yaml:"replicas"`
	Workers     int          `yaml:"workers,omitempty"`
	Confidence  float64      `yaml:"confidence,omitempty"`
	RNG         string       `yaml:"rng,omitempty"`
	Variates    VariateSpec  `yaml:"variates"`
	Sweep       *SweepSpec   `yaml:"sweep,omitempty"`
}

// FeedbackSpec holds the Bernoulli feedback probabilities of the feedback topology.
type FeedbackSpec struct {
	P float64 `yaml:"p"`
	Q float64 `yaml:"q"`
}

// VariateSpec selects how interarrival and service times are produced.
type VariateSpec struct {
	Kind       string             `yaml:"kind"`
	TES        *variate.TESParams `yaml:"tes,omitempty"`
	ServiceTES *variate.TESParams `yaml:"service_tes,omitempty"` // defaults to TES
	Replay     *ReplaySpec        `yaml:"replay,omitempty"`
}

// ReplaySpec names the files replayed by the replay kind. Paths may contain
// {replica}, replaced by the replica index.
type ReplaySpec struct {
	Interarrival string `yaml:"interarrival"`
	Service      string `yaml:"service"`
}

// SweepSpec expands one experiment into a grid of points. Intervals are TES
// innovation half-widths applied to the arrival stream.
type SweepSpec struct {
	ArrivalRates []float64 `yaml:"arrival_rates,omitempty"`
	Intervals    []float64 `yaml:"intervals,omitempty"`
}

// Point is one expanded sweep configuration.
type Point struct {
	Label string
	Spec  Spec
}

var (
	validKinds = map[string]bool{KindExponential: true, KindTES: true, KindReplay: true}
	validRNGs  = map[string]bool{RNGPartitioned: true, RNGStreams: true}
)

// LoadSpec reads and parses a YAML experiment file.
// Uses strict parsing: unrecognized keys (typos) are rejected.
func LoadSpec(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading experiment spec: %w", err)
	}
	var spec Spec
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&spec); err != nil {
		return nil, fmt.Errorf("parsing experiment spec: %w", err)
	}
	spec.ApplyDefaults()
	return &spec, nil
}

// ApplyDefaults fills optional fields that have a documented default:
// version "1", confidence 0.95, rng "partitioned".
func (s *Spec) ApplyDefaults() {
	if s.Version == "" {
		s.Version = "1"
	}
	if s.Confidence == 0 {
		s.Confidence = replica.DefaultConfidence
	}
	if s.RNG == "" {
		s.RNG = RNGPartitioned
	}
	if s.Variates.Kind == KindTES && s.Variates.ServiceTES == nil && s.Variates.TES != nil {
		params := *s.Variates.TES
		s.Variates.ServiceTES = &params
	}
}

// Validate checks that all fields of the experiment are valid and consistent.
func (s *Spec) Validate() error {
	if s.Version != "1" {
		return fmt.Errorf("unsupported spec version %q; valid: 1", s.Version)
	}
	if err := s.ModelConfig().Validate(); err != nil {
		return err
	}
	if s.Replicas < 1 {
		return fmt.Errorf("replicas must be at least 1, got %d", s.Replicas)
	}
	if s.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", s.Workers)
	}
	if err := replica.ValidateConfidence(s.Confidence); err != nil {
		return err
	}
	if !validRNGs[s.RNG] {
		return fmt.Errorf("unknown rng %q; valid: %s, %s", s.RNG, RNGPartitioned, RNGStreams)
	}
	if err := s.validateVariates(); err != nil {
		return err
	}
	return s.validateSweep()
}

func (s *Spec) validateVariates() error {
	v := s.Variates
	if !validKinds[v.Kind] {
		return fmt.Errorf("unknown variates kind %q; valid: %s, %s, %s", v.Kind, KindExponential, KindTES, KindReplay)
	}
	if v.Kind == KindReplay {
		if s.ArrivalRate != 0 || s.ServiceRate != 0 {
			return fmt.Errorf("arrival_rate and service_rate are not used by the %s kind; remove them", KindReplay)
		}
		if v.Replay == nil || v.Replay.Interarrival == "" || v.Replay.Service == "" {
			return fmt.Errorf("variates.replay.interarrival and variates.replay.service are required for the %s kind", KindReplay)
		}
		if s.Replicas > 1 && (!strings.Contains(v.Replay.Interarrival, ReplicaPlaceholder) || !strings.Contains(v.Replay.Service, ReplicaPlaceholder)) {
			return fmt.Errorf("replaying %d replicas needs %s in both replay paths", s.Replicas, ReplicaPlaceholder)
		}
	} else {
		if err := validateRate("arrival_rate", s.ArrivalRate); err != nil {
			return err
		}
		if err := validateRate("service_rate", s.ServiceRate); err != nil {
			return err
		}
		if v.Replay != nil {
			return fmt.Errorf("variates.replay is only valid for the %s kind", KindReplay)
		}
	}
	if v.Kind == KindTES {
		if v.TES == nil {
			return fmt.Errorf("variates.tes is required for the %s kind", KindTES)
		}
		if err := v.TES.Validate(); err != nil {
			return fmt.Errorf("variates.tes: %w", err)
		}
		if v.ServiceTES != nil {
			if err := v.ServiceTES.Validate(); err != nil {
				return fmt.Errorf("variates.service_tes: %w", err)
			}
		}
	} else if v.TES != nil || v.ServiceTES != nil {
		return fmt.Errorf("variates.tes is only valid for the %s kind", KindTES)
	}
	return nil
}

func (s *Spec) validateSweep() error {
	if s.Sweep == nil {
		return nil
	}
	if s.Variates.Kind == KindReplay {
		return fmt.Errorf("sweep is not supported with the %s kind", KindReplay)
	}
	for i, r := range s.Sweep.ArrivalRates {
		if err := validateRate(fmt.Sprintf("sweep.arrival_rates[%d]", i), r); err != nil {
			return err
		}
	}
	if len(s.Sweep.Intervals) > 0 && s.Variates.Kind != KindTES {
		return fmt.Errorf("sweep.intervals is only valid for the %s kind", KindTES)
	}
	for i, iv := range s.Sweep.Intervals {
		if math.IsNaN(iv) || math.IsInf(iv, 0) || iv <= 0 {
			return fmt.Errorf("sweep.intervals[%d] must be a positive finite number, got %v", i, iv)
		}
	}
	return nil
}

func validateRate(name string, val float64) error {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return fmt.Errorf("%s must be a finite number, got %f", name, val)
	}
	if val <= 0 {
		return fmt.Errorf("%s must be positive, got %f", name, val)
	}
	return nil
}

// ModelConfig returns the structural model configuration. A replay run with
// no termination target runs until its streams are exhausted.
func (s *Spec) ModelConfig() sim.ModelConfig {
	departures := s.Departures
	if s.Variates.Kind == KindReplay && s.Departures == 0 && s.Events == 0 {
		departures = math.MaxInt64
	}
	return sim.NewModelConfig(sim.Topology(s.Topology), s.Routing, s.Feedback.P, s.Feedback.Q, departures, s.Events, false)
}

// Points expands the sweep into one Spec per (interval, arrival rate)
// combination. Without a sweep the receiver itself is the only point.
func (s *Spec) Points() []Point {
	if s.Sweep == nil || (len(s.Sweep.ArrivalRates) == 0 && len(s.Sweep.Intervals) == 0) {
		return []Point{{Label: s.label(), Spec: *s}}
	}
	rates := s.Sweep.ArrivalRates
	if len(rates) == 0 {
		rates = []float64{s.ArrivalRate}
	}
	intervals := s.Sweep.Intervals
	if len(intervals) == 0 {
		intervals = []float64{0}
	}
	points := make([]Point, 0, len(rates)*len(intervals))
	for _, iv := range intervals {
		for _, rate := range rates {
			p := *s
			p.Sweep = nil
			p.ArrivalRate = rate
			if iv > 0 {
				params := variate.SymmetricTES(iv, s.Variates.TES.Xi)
				p.Variates.TES = &params
			}
			points = append(points, Point{Label: p.label(), Spec: p})
		}
	}
	logrus.Debugf("expanded sweep into %d points", len(points))
	return points
}

func (s *Spec) label() string {
	switch s.Variates.Kind {
	case KindReplay:
		return fmt.Sprintf("%s-replay", s.Topology)
	case KindTES:
		return fmt.Sprintf("%s-%g-%g-%g", s.Topology, s.ArrivalRate, s.ServiceRate, math.Abs(s.Variates.TES.Low))
	default:
		return fmt.Sprintf("%s-%g-%g", s.Topology, s.ArrivalRate, s.ServiceRate)
	}
}
