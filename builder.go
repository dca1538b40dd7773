package authflow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gotg/authflow/credstore"
	"github.com/gotg/authflow/gateway"
	"github.com/gotg/authflow/internal/flows"
	"github.com/gotg/authflow/internal/logging"
	"github.com/gotg/authflow/internal/notify"
	"github.com/gotg/authflow/route"
	"github.com/gotg/authflow/session"
	"github.com/gotg/authflow/validation"
)

// Builder defines a public type used by authflow APIs.
//
// Builder instances are single-use: Build may be called once.
type Builder struct {
	config  Config
	gateway gateway.Gateway
	creds   credstore.Store
	sink    NotificationSink
	logger  *slog.Logger
	now     func() time.Time

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithGateway sets the identity backend. Required.
func (b *Builder) WithGateway(gw gateway.Gateway) *Builder {
	b.gateway = gw
	return b
}

// WithCredentialStore sets the store for the pending verification email.
// Without it Build opens the backend named in Config.CredentialStore.
func (b *Builder) WithCredentialStore(s credstore.Store) *Builder {
	b.creds = s
	return b
}

func (b *Builder) WithNotificationSink(sink NotificationSink) *Builder {
	b.sink = sink
	return b
}

func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides the clock used for session expiry and notification
// timestamps.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires a Controller. The Controller
// does nothing until Start.
func (b *Builder) Build() (*Controller, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.gateway == nil {
		return nil, ErrGatewayRequired
	}

	creds := b.creds
	closeCreds := func() error { return nil }
	if creds == nil {
		s, closeFn, err := credstore.Open(context.Background(), cfg.CredentialStore.Options())
		if err != nil {
			return nil, err
		}
		creds, closeCreds = s, closeFn
	}

	logger := b.logger
	if logger == nil {
		logger = logging.New(cfg.Logging.Level)
	}
	now := b.now
	if now == nil {
		now = time.Now
	}

	c := &Controller{
		config:       cfg,
		gateway:      b.gateway,
		creds:        creds,
		closeCreds:   closeCreds,
		sessions:     session.NewStore(session.WithClock(now)),
		notifier:     notify.NewDispatcher(notify.Config{BufferSize: cfg.Notifications.BufferSize, DropIfFull: cfg.Notifications.DropIfFull}, b.sink),
		metrics:      NewMetrics(cfg.Metrics),
		logger:       logger,
		now:          now,
		signInSchema: validation.SignInSchema(cfg.Validation.SignInMinPassword),
		signUpSchema: validation.SignUpSchema(cfg.Validation.SignUpMinPassword, cfg.Validation.MinFullName),
		authState:    route.StateLoading,
	}
	c.flows = flows.New(c.flowDeps())

	b.built = true
	return c, nil
}
