package providers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Router maps a canonical chat request to a concrete LLMProvider, retrying
// against a fallback chain on provider error (§4.B). The chain is built
// once at construction from whichever backends the caller successfully
// registered (credentials present, local probe reachable); the router
// itself never decides whether a backend's credentials exist.
type Router struct {
	chain   []member
	limiter *rate.Limiter
}

type member struct {
	provider LLMProvider
	limiter  *rate.Limiter
}

// RouterOption configures a Router at construction.
type RouterOption func(*Router)

// WithRateLimit bounds the router's own retry/fallback loop to rps
// requests per second with the given burst, so a flapping backend is not
// hammered faster than its configured RPS.
func WithRateLimit(rps float64, burst int) RouterOption {
	return func(r *Router) { r.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

// NewRouter builds a router whose default provider is chain[0] and whose
// fallback order is chain[1:].
func NewRouter(chain []LLMProvider, opts ...RouterOption) (*Router, error) {
	if len(chain) == 0 {
		return nil, errors.New("providers: router requires at least one provider")
	}
	r := &Router{}
	for _, p := range chain {
		r.chain = append(r.chain, member{provider: p})
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// ProbeTCP reports whether addr accepts a connection within timeout; used
// to decide whether a local/self-hosted provider candidate belongs in the
// fallback chain before NewRouter is called.
func ProbeTCP(addr string, timeout time.Duration) bool {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// ChatOpts overrides the default provider and/or model for one call.
type ChatOpts struct {
	Provider string
	Model    string
}

func (r *Router) mergeSystem(req *CompletionRequest) {
	// A provider's wire format wants at most one system string; callers
	// assemble req.System themselves, so this only trims surrounding
	// whitespace from it (§4.B fold-invariant).
	req.System = strings.TrimSpace(req.System)
}

func (r *Router) order(opts ChatOpts) []member {
	if opts.Provider == "" {
		return r.chain
	}
	ordered := make([]member, 0, len(r.chain))
	var rest []member
	for _, m := range r.chain {
		if m.provider.Name() == opts.Provider {
			ordered = append(ordered, m)
		} else {
			rest = append(rest, m)
		}
	}
	return append(ordered, rest...)
}

// Chat tries chain members in order, advancing on a failover-worthy error
// and returning the first success. It returns a composite error if every
// member fails.
func (r *Router) Chat(ctx context.Context, req CompletionRequest, opts ChatOpts) (CompletionResult, error) {
	r.mergeSystem(&req)
	if opts.Model != "" {
		req.Model = opts.Model
	}

	var errs []error
	for _, m := range r.order(opts) {
		if err := r.wait(ctx, m); err != nil {
			errs = append(errs, err)
			continue
		}
		result, err := m.provider.Chat(ctx, req)
		if err == nil {
			return result, nil
		}
		errs = append(errs, err)
		if !shouldAdvance(err) {
			return CompletionResult{}, err
		}
	}
	return CompletionResult{}, compositeErr(errs)
}

// ChatStream is the streaming counterpart of Chat. Fallback only happens
// before the first delta is emitted to the caller's callback; once output
// has started, a mid-stream failure is returned as-is rather than
// silently restarted on a different backend with duplicated content.
func (r *Router) ChatStream(ctx context.Context, req CompletionRequest, cb StreamCallback, opts ChatOpts) error {
	r.mergeSystem(&req)
	if opts.Model != "" {
		req.Model = opts.Model
	}

	var errs []error
	for _, m := range r.order(opts) {
		if err := r.wait(ctx, m); err != nil {
			errs = append(errs, err)
			continue
		}
		started := false
		wrapped := func(d StreamDelta) {
			started = true
			cb(d)
		}
		err := m.provider.ChatStream(ctx, req, wrapped)
		if err == nil {
			return nil
		}
		errs = append(errs, err)
		if started || !shouldAdvance(err) {
			return err
		}
	}
	return compositeErr(errs)
}

func (r *Router) wait(ctx context.Context, m member) error {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	if m.limiter != nil {
		return m.limiter.Wait(ctx)
	}
	return nil
}

func shouldAdvance(err error) bool {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Reason.ShouldFailover() || perr.Reason.IsRetryable()
	}
	return true
}

func compositeErr(errs []error) error {
	if len(errs) == 0 {
		return errors.New("providers: no chain members configured")
	}
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return fmt.Errorf("providers: all chain members failed: %s", strings.Join(msgs, "; "))
}
