package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/arko-chat/paybridge/internal/bridgeerr"
	"github.com/arko-chat/paybridge/internal/cache"
	"github.com/arko-chat/paybridge/internal/sdk"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/puzpuzpuz/xsync/v4"
)

const (
	resolvedHistory = 256
	describeTTL     = time.Minute
)

var errNotLinked = errors.New("vendor SDK is not linked into the host app")

// Adapter implements sdk.Adapter over a NativeSDK. Completions wait in a
// map keyed by attempt id until the native side delivers the outcome.
type Adapter struct {
	native NativeSDK
	logger *slog.Logger

	seq      atomic.Uint64
	pending  *xsync.Map[string, *sdk.Completion]
	flows    *xsync.Map[sdk.ControllerRef, func(sdk.ControllerRef)]
	resolved *lru.Cache[string, struct{}]

	// Version lookups cross the gomobile boundary on every call.
	describe *cache.TTL[string]
}

func NewAdapter(native NativeSDK, logger *slog.Logger) *Adapter {
	resolved, _ := lru.New[string, struct{}](resolvedHistory)
	return &Adapter{
		native:   native,
		logger:   logger,
		pending:  xsync.NewMap[string, *sdk.Completion](),
		flows:    xsync.NewMap[sdk.ControllerRef, func(sdk.ControllerRef)](),
		resolved: resolved,
		describe: cache.NewTTL[string](describeTTL),
	}
}

func (a *Adapter) Probe(context.Context) error {
	if a.native == nil || !a.native.IsAvailable() {
		return bridgeerr.SDKUnavailable(errNotLinked)
	}
	return nil
}

func (a *Adapter) Configure(_ context.Context, cfg sdk.Config) error {
	customer := ""
	if cfg.Customer != nil {
		raw, err := json.Marshal(cfg.Customer)
		if err != nil {
			return fmt.Errorf("encode customer: %w", err)
		}
		customer = string(raw)
	}
	return a.native.Configure(cfg.MerchantPublicKey, string(cfg.Environment), cfg.ReturnURI, cfg.RequestShipping, customer)
}

func (a *Adapter) CreateButtonView(_ context.Context, params sdk.ButtonParams) (sdk.ViewHandle, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("encode button params: %w", err)
	}
	handle, err := a.native.CreateButtonView(params.ViewID, string(raw))
	if err != nil {
		return "", err
	}
	return sdk.ViewHandle(handle), nil
}

func (a *Adapter) CreateController(_ context.Context, onFlow func(sdk.ControllerRef)) (sdk.ControllerRef, error) {
	ref := sdk.ControllerRef("n" + strconv.FormatUint(a.seq.Add(1), 10))
	if err := a.native.CreateController(string(ref), onFlow != nil); err != nil {
		return "", err
	}
	if onFlow != nil {
		a.flows.Store(ref, onFlow)
	}
	return ref, nil
}

func (a *Adapter) Pay(_ context.Context, ref sdk.ControllerRef, order sdk.OrderParams, done *sdk.Completion) error {
	raw, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("encode order: %w", err)
	}

	id := done.AttemptID()
	a.pending.Store(id, done)
	if err := a.native.Pay(string(ref), id, string(raw)); err != nil {
		a.pending.Delete(id)
		return err
	}
	return nil
}

func (a *Adapter) ReleaseButtonView(_ context.Context, view sdk.ViewHandle) error {
	return a.native.ReleaseButtonView(string(view))
}

// ReleaseController forgets the confirmation flow callback for ref before
// asking the native side to drop the controller.
func (a *Adapter) ReleaseController(_ context.Context, ref sdk.ControllerRef) error {
	a.flows.Delete(ref)
	return a.native.ReleaseController(string(ref))
}

// DeliverPaymentResult resolves the attempt the native side started with Pay.
// kind is one of success, failure or user_abandoned. A second delivery for
// the same attempt returns ALREADY_RESOLVED.
func (a *Adapter) DeliverPaymentResult(attemptID, kind, reason string) error {
	k, err := sdk.ParseOutcomeKind(kind)
	if err != nil {
		return bridgeerr.InvalidArguments("%v", err)
	}

	done, ok := a.pending.LoadAndDelete(attemptID)
	if !ok {
		if a.resolved.Contains(attemptID) {
			a.logger.Error("payment result delivered twice", "attempt_id", attemptID, "kind", kind)
			return bridgeerr.Newf(bridgeerr.CodeAlreadyResolved, "attempt %q already resolved", attemptID)
		}
		return bridgeerr.NotFound("payment attempt", attemptID)
	}

	var out sdk.Outcome
	switch k {
	case sdk.OutcomeSuccess:
		out = sdk.Success()
	case sdk.OutcomeUserAbandoned:
		out = sdk.UserAbandoned()
	default:
		out = sdk.Failure(reason)
	}

	a.resolved.Add(attemptID, struct{}{})
	if err := done.Resolve(out); err != nil {
		return bridgeerr.Wrap(bridgeerr.CodeAlreadyResolved, "attempt already resolved", err)
	}
	return nil
}

// DeliverConfirmationFlow reports that the vendor created the confirmation
// flow for controller ref.
func (a *Adapter) DeliverConfirmationFlow(ref string) error {
	onFlow, ok := a.flows.Load(sdk.ControllerRef(ref))
	if !ok {
		return bridgeerr.NotFound("controller ref", ref)
	}
	onFlow(sdk.ControllerRef(ref))
	return nil
}

// Flows reports how many controllers wait for a confirmation flow.
func (a *Adapter) Flows() int {
	return a.flows.Size()
}

// Pending reports how many attempts wait for a native result.
func (a *Adapter) Pending() int {
	return a.pending.Size()
}

func (a *Adapter) SDKVersion() sdk.VersionInfo {
	raw, _ := a.describe.Get("sdk", func() (string, error) {
		return a.native.SDKVersion(), nil
	})

	var info sdk.VersionInfo
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		a.logger.Debug("native SDK version unreadable", "err", err)
		return sdk.VersionInfo{}
	}
	return info
}

func (a *Adapter) PlatformVersion() string {
	v, _ := a.describe.Get("platform", func() (string, error) {
		return a.native.PlatformVersion(), nil
	})
	return v
}
