// Package smoke runs the ordered sequence of probes against a backend:
// health checks, registration and login, then the authenticated resource and
// chat endpoints. Probes run one at a time; each failure is reported and the
// run moves on, except a failed basic health check, which ends the run, and a
// login that yields no token, which skips every authenticated probe.
package smoke

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/emotionai/backend-smoke/internal/auth"
	"github.com/emotionai/backend-smoke/internal/client"
	"github.com/emotionai/backend-smoke/internal/telemetry"
)

// Reporter receives the run as it happens.
type Reporter interface {
	Title(baseURL string)
	Section(title string)
	Result(name string, passed bool, message string)
	Abort()
	Completed(passed, failed int)
}

// Result is the outcome of one probe.
type Result struct {
	Section    Section
	Probe      string
	Passed     bool
	Message    string
	StatusCode int // 0 when the request never got a response
	RequestID  string
	Duration   time.Duration
}

// Summary describes a finished run.
type Summary struct {
	Passed  int
	Failed  int
	Results []Result

	// Aborted is set when the basic health check failed.
	Aborted bool
	// Authenticated is set when login produced a token.
	Authenticated bool
}

// Runner drives one smoke run.
type Runner struct {
	client   *client.Client
	reporter Reporter
	creds    Credentials
	metrics  *telemetry.ProbeMetrics
	logger   *slog.Logger

	// sharedMetrics is set by WithMetrics; otherwise every Run gets a fresh registry.
	sharedMetrics bool

	results []Result
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger used for per-probe diagnostics.
func WithLogger(l *slog.Logger) Option { return func(r *Runner) { r.logger = l } }

// WithMetrics records outcomes into m instead of a fresh registry per run.
// Totals then accumulate across runs.
func WithMetrics(m *telemetry.ProbeMetrics) Option {
	return func(r *Runner) {
		r.metrics = m
		r.sharedMetrics = true
	}
}

// NewRunner creates a Runner.
func NewRunner(c *client.Client, rep Reporter, creds Credentials, opts ...Option) *Runner {
	r := &Runner{
		client:   c,
		reporter: rep,
		creds:    creds,
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Run executes the suite. The returned error is non-nil only if the run's
// totals could not be read back; probe failures are reported in the Summary.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	r.results = nil
	if !r.sharedMetrics {
		r.metrics = telemetry.NewProbeMetrics()
	}
	var summary Summary

	r.reporter.Title(r.client.BaseURL())

	r.reporter.Section("Health Checks")
	healthy := r.check(ctx, SectionHealth, r.client, HealthProbe).Passed
	r.check(ctx, SectionHealth, r.client, DetailedHealthProbe)

	if !healthy {
		r.reporter.Abort()
		summary.Aborted = true
		return r.finish(summary)
	}

	r.reporter.Section("Authentication")
	session, ok := r.authenticate(ctx)
	summary.Authenticated = ok

	if ok {
		authed := r.client.WithBearer(session.Token)

		r.reporter.Section("Protected Endpoints")
		for _, p := range ProtectedProbes {
			r.check(ctx, SectionProtected, authed, p)
		}

		r.reporter.Section("AI Chat Endpoints")
		for _, p := range ChatProbes {
			r.check(ctx, SectionChat, authed, p)
		}
	} else {
		r.logger.Info("no access token; skipping authenticated probes")
	}

	summary, err := r.finish(summary)
	if err != nil {
		return summary, err
	}
	r.reporter.Completed(summary.Passed, summary.Failed)
	return summary, nil
}

func (r *Runner) finish(summary Summary) (Summary, error) {
	summary.Results = r.results
	totals, err := r.metrics.Totals()
	if err != nil {
		return summary, err
	}
	summary.Passed = totals.Passed
	summary.Failed = totals.Failed
	return summary, nil
}

// authenticate registers (tolerating an existing user) and logs in. It returns
// the session and true only when login answered 200 with an access_token.
func (r *Runner) authenticate(ctx context.Context) (auth.Session, bool) {
	r.check(ctx, SectionAuth, r.client, RegisterProbe(r.creds))

	res, resp := r.exec(ctx, SectionAuth, r.client, LoginProbe(r.creds))
	if !res.Passed {
		r.report(res)
		return auth.Session{}, false
	}

	session, err := auth.ParseLoginResponse(resp.Body)
	if err != nil {
		res.Passed = false
		res.Message = err.Error()
		r.report(res)
		return auth.Session{}, false
	}
	r.report(res)
	r.logSession(session)
	return session, true
}

func (r *Runner) logSession(s auth.Session) {
	claims, err := auth.Inspect(s.Token)
	if err != nil {
		r.logger.Debug("access token is opaque", "error", err)
		return
	}
	attrs := []any{"subject", claims.Identity()}
	if left, ok := claims.ExpiresIn(time.Now()); ok {
		attrs = append(attrs, "expires_in", left.Round(time.Second).String())
	}
	r.logger.Debug("authenticated", attrs...)
}

// check runs p and reports its result.
func (r *Runner) check(ctx context.Context, section Section, c *client.Client, p Probe) Result {
	res, _ := r.exec(ctx, section, c, p)
	r.report(res)
	return res
}

// exec runs p without reporting it. The response is nil on transport failure.
func (r *Runner) exec(ctx context.Context, section Section, c *client.Client, p Probe) (Result, *client.Response) {
	res := Result{Section: section, Probe: p.Name}

	start := time.Now()
	resp, err := c.Do(ctx, p.Method, p.Path, p.Body)
	res.Duration = time.Since(start)

	if err != nil {
		res.Message = err.Error()
		r.logger.Info("probe request failed", "probe", p.Name, "method", p.Method, "path", p.Path, "error", err)
		return res, nil
	}

	res.StatusCode = resp.StatusCode
	res.RequestID = resp.RequestID
	res.Passed = p.Accepts(resp.StatusCode)
	res.Message = fmt.Sprintf("Status: %d", resp.StatusCode)

	r.logger.Debug("probe finished",
		"probe", p.Name,
		"method", p.Method,
		"path", p.Path,
		"status", resp.StatusCode,
		"request_id", resp.RequestID,
		"duration", res.Duration,
	)
	return res, resp
}

func (r *Runner) report(res Result) {
	r.results = append(r.results, res)
	r.metrics.Observe(string(res.Section), res.Passed, res.Duration)
	r.reporter.Result(res.Probe, res.Passed, res.Message)
}
