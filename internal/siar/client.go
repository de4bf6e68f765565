// Package siar talks to the SIAR meteorological data provider: credential
// ciphering, token exchange and the monthly-data endpoint.
package siar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Miguel-byte-breath/sig-riego-rdc-siar-pm/internal/metrics"
)

const (
	DefaultAuthTimeout = 30 * time.Second
	DefaultDataTimeout = 60 * time.Second

	maxBodyExcerpt = 300
)

// MonthlyRecord is one normalized row from the monthly-data endpoint.
// Eto and Pe stay nil when the provider omitted the value or sent something
// that does not parse as a number.
type MonthlyRecord struct {
	Year  int
	Month int
	Eto   *float64
	Pe    *float64
}

// Client issues the outbound SIAR calls. Auth round-trips and data fetches
// carry separate timeouts (the data endpoint is markedly slower).
type Client struct {
	baseURL    string
	authClient *http.Client
	dataClient *http.Client
}

// New creates a client for the given provider base URL.
func New(baseURL string, authTimeout, dataTimeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		authClient: &http.Client{Timeout: authTimeout},
		dataClient: &http.Client{Timeout: dataTimeout},
	}
}

// CipherString asks the provider to cipher a credential value. The response
// body is a quoted string that must be unwrapped before use.
func (c *Client) CipherString(ctx context.Context, value string) (string, error) {
	u := fmt.Sprintf("%s/cifrarCadena?cadena=%s", c.baseURL, url.QueryEscape(value))
	return c.authGet(ctx, "cifrarCadena", u)
}

// ObtainToken exchanges the two ciphered credentials for an access token.
func (c *Client) ObtainToken(ctx context.Context, cipheredUser, cipheredPass string) (string, error) {
	u := fmt.Sprintf("%s/obtenerToken?Usuario=%s&Password=%s",
		c.baseURL, url.QueryEscape(cipheredUser), url.QueryEscape(cipheredPass))
	return c.authGet(ctx, "obtenerToken", u)
}

func (c *Client) authGet(ctx context.Context, step, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}

	started := time.Now()
	resp, err := c.authClient.Do(req)
	metrics.SIARCallLatency.WithLabelValues(step).Observe(time.Since(started).Seconds())
	if err != nil {
		metrics.SIARCallsTotal.WithLabelValues(step, "error").Inc()
		return "", fmt.Errorf("request %s: %w", step, err)
	}
	defer resp.Body.Close()
	metrics.SIARCallsTotal.WithLabelValues(step, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &AuthError{Step: step, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read %s response: %w", step, err)
	}

	return unquote(string(body)), nil
}

// FetchMonthly retrieves the monthly records for one station over a closed
// date range, asking the provider to include derived values (ETo, Pe).
func (c *Client) FetchMonthly(ctx context.Context, stationCode, token string, start, end time.Time) ([]MonthlyRecord, error) {
	u := fmt.Sprintf("%s/Datos/Mensuales/ESTACION?Id=%s&token=%s&FechaInicial=%s&FechaFinal=%s&DatosCalculados=true",
		c.baseURL,
		url.QueryEscape(stationCode),
		url.QueryEscape(token),
		start.Format("2006-01-02"),
		end.Format("2006-01-02"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	resp, err := c.dataClient.Do(req)
	metrics.SIARCallLatency.WithLabelValues("datosMensuales").Observe(time.Since(started).Seconds())
	if err != nil {
		metrics.SIARCallsTotal.WithLabelValues("datosMensuales", "error").Inc()
		return nil, fmt.Errorf("request monthly data: %w", err)
	}
	defer resp.Body.Close()
	metrics.SIARCallsTotal.WithLabelValues("datosMensuales", strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, ErrTokenExpired
	}

	body, readErr := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &UpstreamError{Status: resp.StatusCode, Body: excerpt(body)}
	}
	if readErr != nil {
		return nil, fmt.Errorf("read monthly data: %w", readErr)
	}

	// An unparseable body or a missing data array means "this station has no
	// usable data", not a hard failure: the fallback loop moves on.
	var payload monthlyPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return []MonthlyRecord{}, nil
	}

	rows := payload.Datos
	if rows == nil {
		rows = payload.DatosUpper
	}
	if rows == nil {
		return []MonthlyRecord{}, nil
	}

	records := make([]MonthlyRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, MonthlyRecord{
			Year:  row.year(),
			Month: row.Month,
			Eto:   row.Eto.ptr(),
			Pe:    row.Pe.ptr(),
		})
	}
	return records, nil
}

type monthlyPayload struct {
	Datos      []rawMonthlyRow `json:"datos"`
	DatosUpper []rawMonthlyRow `json:"Datos"`
}

type rawMonthlyRow struct {
	Anio     int       `json:"Anio"`
	AnioFull int       `json:"Año"`
	Month    int       `json:"Mes"`
	Eto      flexFloat `json:"EtPMon"`
	Pe       flexFloat `json:"PePMon"`
}

func (r rawMonthlyRow) year() int {
	if r.Anio != 0 {
		return r.Anio
	}
	return r.AnioFull
}

// flexFloat tolerates the provider's habit of switching between numbers,
// numeric strings and nulls for the same field across stations.
type flexFloat struct {
	value float64
	valid bool
}

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "" || s == "null" {
		return nil
	}
	s = strings.Trim(s, `"`)
	s = strings.ReplaceAll(s, ",", ".")

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	f.value = v
	f.valid = true
	return nil
}

func (f flexFloat) ptr() *float64 {
	if !f.valid {
		return nil
	}
	v := f.value
	return &v
}

// unquote strips the wrapping quotes and whitespace the auth endpoints put
// around their plain-string responses.
func unquote(s string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(s), `"`))
}

func excerpt(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxBodyExcerpt {
		s = s[:maxBodyExcerpt] + "..."
	}
	return s
}
