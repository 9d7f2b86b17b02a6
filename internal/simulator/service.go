package simulator

import (
	"context"

	"github.com/fyrsmithlabs/otelsim/internal/config"
	"github.com/fyrsmithlabs/otelsim/internal/logging"
	"github.com/fyrsmithlabs/otelsim/internal/telemetry"
)

const instrumentationName = "github.com/fyrsmithlabs/otelsim/internal/simulator"

// Service ties the execution engine to the configured tiers. One engine
// per tier: simple runs without tracing or detail, medium adds detail,
// complex adds span emission on top.
type Service struct {
	cfg     *config.SimulateConfig
	logger  *logging.Logger
	metrics *Metrics

	simple  *Engine
	medium  *Engine
	complex *Engine
}

// ServiceOption customizes a Service.
type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	sleep SleepFunc
}

// WithServiceSleep replaces the delay implementation on every engine.
// Intended for tests.
func WithServiceSleep(sleep SleepFunc) ServiceOption {
	return func(o *serviceOptions) { o.sleep = sleep }
}

// NewService creates the simulator service on top of the given telemetry.
func NewService(tel *telemetry.Telemetry, logger *logging.Logger, cfg *config.SimulateConfig, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = logging.Nop()
	}
	if cfg == nil {
		def := config.NewDefaultConfig().Simulate
		cfg = &def
	}

	var options serviceOptions
	for _, opt := range opts {
		opt(&options)
	}

	metrics := NewMetrics(tel.Meter(instrumentationName), logger.Underlying())

	base := []EngineOption{
		WithDelayScale(cfg.DelayScale),
		WithLogger(logger),
		WithMetrics(metrics),
	}
	if options.sleep != nil {
		base = append(base, WithSleep(options.sleep))
	}

	s := &Service{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
	}
	s.simple = NewEngine(base...)
	s.medium = NewEngine(append(base[:len(base):len(base)], WithDetail(true))...)
	s.complex = NewEngine(append(base[:len(base):len(base)],
		WithDetail(true),
		WithTracer(tel.Tracer(instrumentationName)),
	)...)

	return s
}

// Limits returns the configured guard rails for request-supplied workflows.
func (s *Service) Limits() Limits {
	return Limits{MaxSteps: s.cfg.MaxSteps, MaxDepth: s.cfg.MaxDepth}
}

// Run executes one workflow at the given tier. Custom steps from the
// request replace the tier's built-in workflow when present.
func (s *Service) Run(ctx context.Context, variant Variant, req Request) (*Result, error) {
	if !variant.Valid() {
		return nil, &UnknownVariantError{Variant: string(variant)}
	}

	name := req.Name
	if name == "" {
		name = defaultWorkflowName(variant)
	}

	var steps []*Step
	if len(req.Steps) > 0 {
		compiled, err := CompileSteps(req.Steps, s.Limits())
		if err != nil {
			return nil, err
		}
		steps = compiled
	} else {
		steps = defaultSteps(variant)
	}

	return s.run(ctx, variant, name, steps)
}

// RunError executes the error-demonstration workflow: the complex tier
// with a step configured to fail mid-tree. The returned error is always a
// simulated failure unless the run was interrupted.
func (s *Service) RunError(ctx context.Context, req Request) (*Result, error) {
	name := req.Name
	if name == "" {
		name = "error_workflow"
	}

	var steps []*Step
	if len(req.Steps) > 0 {
		compiled, err := CompileSteps(req.Steps, s.Limits())
		if err != nil {
			return nil, err
		}
		steps = compiled
	} else {
		steps = DefaultErrorSteps()
	}

	return s.run(ctx, VariantComplex, name, steps)
}

func (s *Service) run(ctx context.Context, variant Variant, name string, steps []*Step) (*Result, error) {
	s.metrics.RunStarted(ctx)
	defer s.metrics.RunFinished(ctx)

	return s.engine(variant).Run(ctx, variant, name, steps)
}

func (s *Service) engine(variant Variant) *Engine {
	switch variant {
	case VariantSimple:
		return s.simple
	case VariantMedium:
		return s.medium
	default:
		return s.complex
	}
}
