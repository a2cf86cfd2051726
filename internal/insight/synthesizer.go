package insight

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

const defaultOracleTimeout = 8 * time.Second

// Synthesizer produces insights, preferring the remote oracle and falling back to
// the local heuristic on any remote failure. It never returns an error.
type Synthesizer struct {
	remote  Oracle
	local   Oracle
	timeout time.Duration
	logger  *zap.Logger
}

// NewSynthesizer creates a Synthesizer. remote may be nil, in which case only the
// local heuristic runs.
func NewSynthesizer(remote Oracle, timeout time.Duration, logger *zap.Logger) *Synthesizer {
	if timeout <= 0 {
		timeout = defaultOracleTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synthesizer{
		remote:  remote,
		local:   NewLocalHeuristic(),
		timeout: timeout,
		logger:  logger.Named("insight"),
	}
}

func (s *Synthesizer) Synthesize(ctx context.Context, in Input) Response {
	resp := Response{
		OverallHealth: OverallHealth(in.Aggregate),
		Statistics:    in.Aggregate,
	}

	if in.Aggregate.TotalEvaluations == 0 {
		resp.Insights = []Insight{}
		resp.Strengths = []string{}
		resp.Weaknesses = []string{}
		resp.Recommendations = []string{}
		resp.Source = SourceNone
		resp.Hint = NoDataHint
		insightsServed.WithLabelValues(SourceNone).Inc()
		return resp
	}

	if s.remote != nil {
		a, err := s.callRemote(ctx, in)
		if err == nil {
			return s.fill(resp, a, s.remote.Name())
		}
		s.logger.Warn("oracle unavailable, using local heuristic",
			zap.String("oracle", s.remote.Name()),
			zap.Error(err))
	}

	// The local heuristic is deterministic and cannot fail.
	a, _ := s.local.Analyze(ctx, in)
	return s.fill(resp, a, s.local.Name())
}

func (s *Synthesizer) fill(resp Response, a Analysis, source string) Response {
	a = finalize(a)
	resp.Insights = a.Insights
	resp.Strengths = a.Strengths
	resp.Weaknesses = a.Weaknesses
	resp.Recommendations = a.Recommendations
	resp.Source = source
	insightsServed.WithLabelValues(source).Inc()
	return resp
}

type oracleResult struct {
	analysis Analysis
	err      error
}

// callRemote enforces the hard timeout even if the oracle ignores its context.
func (s *Synthesizer) callRemote(ctx context.Context, in Input) (Analysis, error) {
	name := s.remote.Name()
	octx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	done := make(chan oracleResult, 1)
	go func() {
		a, err := s.remote.Analyze(octx, in)
		done <- oracleResult{analysis: a, err: err}
	}()

	select {
	case r := <-done:
		oracleDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
		if r.err != nil {
			oracleCalls.WithLabelValues(name, classify(r.err)).Inc()
			return Analysis{}, r.err
		}
		oracleCalls.WithLabelValues(name, outcomeSuccess).Inc()
		return r.analysis, nil
	case <-octx.Done():
		oracleDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
		oracleCalls.WithLabelValues(name, outcomeTimeout).Inc()
		return Analysis{}, octx.Err()
	}
}

func classify(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return outcomeTimeout
	case errors.Is(err, ErrNoCredentials):
		return outcomeUnavailable
	case errors.Is(err, ErrOracleUnavailable):
		return outcomeCircuitOpen
	default:
		return outcomeError
	}
}
