package climatology

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Miguel-byte-breath/sig-riego-rdc-siar-pm/internal/metrics"
	"github.com/Miguel-byte-breath/sig-riego-rdc-siar-pm/internal/siar"
	"github.com/Miguel-byte-breath/sig-riego-rdc-siar-pm/internal/stations"
)

// Fetcher retrieves monthly records for one station over a date range.
// *siar.Client satisfies it; tests substitute fakes.
type Fetcher interface {
	FetchMonthly(ctx context.Context, stationCode, token string, start, end time.Time) ([]siar.MonthlyRecord, error)
}

// TokenSource supplies and repairs the provider credential.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	Invalidate()
}

// Attempt records the outcome of probing one fallback candidate. Entries are
// appended as the loop advances and never mutated afterwards.
type Attempt struct {
	Index      int     `json:"idx"`
	Station    string  `json:"estacion"`
	Name       string  `json:"nombre"`
	DistanceKm float64 `json:"distanciaKm"`
	OK         bool    `json:"ok"`
	Detail     string  `json:"detalle"`
}

// Result is a successful fallback resolution: the winning candidate, its
// position in the ranked list, the reduced pack and the full attempt trace.
type Result struct {
	Station  stations.Candidate
	Index    int
	Pack     Pack
	Attempts []Attempt
}

// ExhaustedError reports that every ranked candidate was tried without
// producing a valid pack. It carries the trace so the caller can report
// which stations were probed and why each one failed.
type ExhaustedError struct {
	Attempts []Attempt
	Reason   string
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("ninguna estación con datos utilizables (%d probadas): %s", len(e.Attempts), e.Reason)
}

// Orchestrator walks the ranked candidate list in distance order and accepts
// the first station whose data reduces to a valid pack.
type Orchestrator struct {
	tokens  TokenSource
	fetcher Fetcher
}

func NewOrchestrator(tokens TokenSource, fetcher Fetcher) *Orchestrator {
	return &Orchestrator{tokens: tokens, fetcher: fetcher}
}

// Run probes candidates sequentially: each outcome gates whether the next
// station is tried at all, and first-valid-wins means remaining candidates
// are never touched. Configuration and authentication failures abort the
// whole request; everything else is absorbed into the attempt trace.
func (o *Orchestrator) Run(ctx context.Context, candidates []stations.Candidate, w Window) (*Result, error) {
	attempts := make([]Attempt, 0, len(candidates))

	for i, cand := range candidates {
		if ctx.Err() != nil {
			return nil, &ExhaustedError{Attempts: attempts, Reason: "plazo de la petición agotado"}
		}

		records, err := o.fetchWithReauth(ctx, cand.Station.Code, w)
		if err != nil {
			var authErr *siar.AuthError
			if errors.Is(err, siar.ErrMissingCredentials) || errors.As(err, &authErr) {
				return nil, err
			}
			attempts = append(attempts, failedAttempt(i, cand, err))
			continue
		}

		if len(records) == 0 {
			metrics.FallbackAttemptsTotal.WithLabelValues("no_data").Inc()
			attempts = append(attempts, Attempt{
				Index: i, Station: cand.Station.Code, Name: cand.Station.Name,
				DistanceKm: round3(cand.DistanceKm), Detail: "sin datos",
			})
			continue
		}

		pack := Reduce(records, w)
		if !pack.Valid() {
			metrics.FallbackAttemptsTotal.WithLabelValues("incomplete").Inc()
			attempts = append(attempts, Attempt{
				Index: i, Station: cand.Station.Code, Name: cand.Station.Name,
				DistanceKm: round3(cand.DistanceKm),
				Detail:     fmt.Sprintf("registros incompletos (%d filas)", len(records)),
			})
			continue
		}

		metrics.FallbackAttemptsTotal.WithLabelValues("success").Inc()
		attempts = append(attempts, Attempt{
			Index: i, Station: cand.Station.Code, Name: cand.Station.Name,
			DistanceKm: round3(cand.DistanceKm), OK: true, Detail: "ok",
		})
		return &Result{Station: cand, Index: i, Pack: pack, Attempts: attempts}, nil
	}

	return nil, &ExhaustedError{Attempts: attempts, Reason: "candidatas agotadas"}
}

// fetchWithReauth performs one station fetch, allowing exactly one
// invalidate-and-retry when the data endpoint rejects the cached token.
func (o *Orchestrator) fetchWithReauth(ctx context.Context, stationCode string, w Window) ([]siar.MonthlyRecord, error) {
	token, err := o.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	records, err := o.fetcher.FetchMonthly(ctx, stationCode, token, w.Start, w.End)
	if !errors.Is(err, siar.ErrTokenExpired) {
		return records, err
	}

	o.tokens.Invalidate()
	token, err = o.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}
	return o.fetcher.FetchMonthly(ctx, stationCode, token, w.Start, w.End)
}

func failedAttempt(i int, cand stations.Candidate, err error) Attempt {
	detail := err.Error()
	outcome := "network_error"

	var upstream *siar.UpstreamError
	switch {
	case errors.Is(err, siar.ErrTokenExpired):
		detail = "token rechazado tras reintento"
		outcome = "token_rejected"
	case errors.As(err, &upstream):
		detail = fmt.Sprintf("estado HTTP %d", upstream.Status)
		outcome = "upstream_error"
	}

	metrics.FallbackAttemptsTotal.WithLabelValues(outcome).Inc()
	return Attempt{
		Index: i, Station: cand.Station.Code, Name: cand.Station.Name,
		DistanceKm: round3(cand.DistanceKm), Detail: detail,
	}
}
