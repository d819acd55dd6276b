// Package plugin is the command dispatcher that sits between host
// applications and the vendor payments SDK.
package plugin

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/arko-chat/paybridge/internal/events"
	"github.com/arko-chat/paybridge/internal/metrics"
	"github.com/arko-chat/paybridge/internal/registry"
	"github.com/arko-chat/paybridge/internal/sdk"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/puzpuzpuz/xsync/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

const (
	// BridgeVersion is reported by getSdkVersion next to the vendor version.
	BridgeVersion = "1.0.0"

	defaultReturnURL      = "revolut-sdk-bridge://revolut-pay"
	defaultResultCacheLen = 128
	tracerName            = "github.com/arko-chat/paybridge/internal/plugin"
)

// defaultSDKVersion is reported when the adapter cannot describe itself.
var defaultSDKVersion = sdk.VersionInfo{
	Version:     "2.8.0",
	Platform:    runtime.GOOS,
	BuildNumber: "1",
}

type Option func(*Plugin)

func WithLogger(l *slog.Logger) Option {
	return func(p *Plugin) { p.logger = l }
}

func WithMetrics(m metrics.Recorder) Option {
	return func(p *Plugin) { p.metrics = m }
}

func WithTracer(t trace.Tracer) Option {
	return func(p *Plugin) { p.tracer = t }
}

func WithEmitter(e *events.Emitter) Option {
	return func(p *Plugin) { p.emitter = e }
}

func WithDefaultReturnURL(u string) Option {
	return func(p *Plugin) {
		if u != "" {
			p.returnURL = u
		}
	}
}

func WithDefaultEnvironment(env string) Option {
	return func(p *Plugin) { p.defaultEnv = env }
}

// WithPlatformVersion overrides the host OS version getPlatformVersion
// reports. Mobile hosts pass the real OS release here.
func WithPlatformVersion(v string) Option {
	return func(p *Plugin) { p.platformVersion = v }
}

func WithResultCacheSize(n int) Option {
	return func(p *Plugin) {
		if n > 0 {
			p.resultCacheLen = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(p *Plugin) { p.now = now }
}

// Plugin owns every piece of per-instance state: handle registries, the
// configuration set by init, in-flight payment attempts and the event
// emitter. Commands may be dispatched concurrently.
type Plugin struct {
	adapter sdk.Adapter
	emitter *events.Emitter

	buttons     *registry.Registry[Button]
	controllers *registry.Registry[Controller]

	// orders tracks direct pay attempts by order token.
	orders  *xsync.Map[string, string]
	results *lru.Cache[string, PaymentResult]

	cfgMu sync.RWMutex
	cfg   *sdk.Config

	initGroup singleflight.Group
	commands  map[string]command

	logger          *slog.Logger
	metrics         metrics.Recorder
	tracer          trace.Tracer
	now             func() time.Time
	returnURL       string
	defaultEnv      string
	platformVersion string
	resultCacheLen  int

	closing   chan struct{}
	closeOnce sync.Once
	watchers  sync.WaitGroup
}

// New builds a plugin over adapter. A nil adapter is allowed: init then
// fails with SDK_UNAVAILABLE.
func New(adapter sdk.Adapter, opts ...Option) (*Plugin, error) {
	p := &Plugin{
		adapter:        adapter,
		orders:         xsync.NewMap[string, string](),
		logger:         slog.Default(),
		metrics:        metrics.NoopRecorder{},
		now:            time.Now,
		returnURL:      defaultReturnURL,
		resultCacheLen: defaultResultCacheLen,
		closing:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.tracer == nil {
		p.tracer = otel.Tracer(tracerName)
	}
	if p.emitter == nil {
		p.emitter = events.NewEmitter(p.logger, events.WithClock(p.now))
	}

	results, err := lru.New[string, PaymentResult](p.resultCacheLen)
	if err != nil {
		return nil, err
	}
	p.results = results
	p.buttons = registry.New[Button]("button", registry.Decimal)
	p.controllers = registry.New[Controller]("controller", registry.Prefixed("c"))
	p.commands = p.commandTable()

	return p, nil
}

// Events returns the emitter transports attach their subscriber to.
func (p *Plugin) Events() *events.Emitter {
	return p.emitter
}

func (p *Plugin) Initialized() bool {
	p.cfgMu.RLock()
	defer p.cfgMu.RUnlock()
	return p.cfg != nil
}

func (p *Plugin) config() (sdk.Config, bool) {
	p.cfgMu.RLock()
	defer p.cfgMu.RUnlock()
	if p.cfg == nil {
		return sdk.Config{}, false
	}
	return *p.cfg, true
}

// Reset drops every handle, in-flight marker, recorded result and the
// configuration. Identifiers keep counting up. Attempts still pending with
// the vendor resolve into nothing.
func (p *Plugin) Reset() {
	ctx := context.Background()
	buttons := p.buttons.TakeAll()
	for _, b := range buttons {
		p.releaseButton(ctx, b)
	}
	controllers := p.controllers.TakeAll()
	for _, c := range controllers {
		p.releaseController(ctx, c.Ref)
	}
	p.orders.Range(func(token, _ string) bool {
		p.orders.Delete(token)
		return true
	})
	p.results.Purge()

	p.cfgMu.Lock()
	p.cfg = nil
	p.cfgMu.Unlock()

	p.logger.Info("plugin reset", "buttons", len(buttons), "controllers", len(controllers))
}

// Close stops attempt watchers and closes the event subscriber. It is safe
// to call more than once.
func (p *Plugin) Close() {
	p.closeOnce.Do(func() {
		close(p.closing)
		p.watchers.Wait()
		p.emitter.Close()
	})
}

func (p *Plugin) emit(method string, data map[string]any) {
	p.emitter.Emit(method, data)
	p.metrics.IncCounter("event", map[string]string{"command": method})
}

func (p *Plugin) orderReturnURL(requested string) string {
	if requested != "" {
		return requested
	}
	if cfg, ok := p.config(); ok && cfg.ReturnURI != "" {
		return cfg.ReturnURI
	}
	return p.returnURL
}

// releaseView and releaseController hand native resources back to adapters
// that hold them. Failures are logged; the handle is already gone for the
// host.
func (p *Plugin) releaseView(ctx context.Context, view sdk.ViewHandle) {
	r, ok := p.adapter.(sdk.Releaser)
	if !ok || view == "" {
		return
	}
	if err := p.sdkCall("release view", func() error { return r.ReleaseButtonView(ctx, view) }); err != nil {
		p.logger.Warn("could not release view", "view", view, "err", err)
	}
}

func (p *Plugin) releaseController(ctx context.Context, ref sdk.ControllerRef) {
	r, ok := p.adapter.(sdk.Releaser)
	if !ok || ref == "" {
		return
	}
	if err := p.sdkCall("release controller", func() error { return r.ReleaseController(ctx, ref) }); err != nil {
		p.logger.Warn("could not release controller", "ref", ref, "err", err)
	}
}

// sdkCall runs fn against the adapter, turning adapter panics and foreign
// errors into SDK_ERROR.
func (p *Plugin) sdkCall(op string, fn func() error) (err error) {
	if p.adapter == nil {
		return bridgeerrUnavailable()
	}
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("adapter panic", "op", op, "panic", r)
			err = sdkPanic(op, r)
		}
	}()
	return wrapSDK(op, fn())
}
