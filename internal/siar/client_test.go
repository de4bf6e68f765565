package siar

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, 5*time.Second, 5*time.Second)
}

func TestCipherStringUnquotesResponse(t *testing.T) {
	t.Parallel()

	var gotQuery string
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/cifrarCadena" {
			t.Errorf("path = %s", r.URL.Path)
		}
		gotQuery = r.URL.Query().Get("cadena")
		w.Write([]byte("\"ABC123==\"\n"))
	}))

	ciphered, err := client.CipherString(context.Background(), "usuario con espacios")
	if err != nil {
		t.Fatalf("CipherString: %v", err)
	}
	if ciphered != "ABC123==" {
		t.Errorf("ciphered = %q, want quotes and whitespace stripped", ciphered)
	}
	if gotQuery != "usuario con espacios" {
		t.Errorf("cadena param = %q", gotQuery)
	}
}

func TestObtainTokenFailureCarriesStepAndStatus(t *testing.T) {
	t.Parallel()

	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	_, err := client.ObtainToken(context.Background(), "u", "p")
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if authErr.Step != "obtenerToken" || authErr.Status != http.StatusServiceUnavailable {
		t.Errorf("AuthError = %+v", authErr)
	}
}

func TestFetchMonthly(t *testing.T) {
	t.Parallel()

	day := func(y int, m time.Month, d int) time.Time {
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}

	t.Run("parses rows and query parameters", func(t *testing.T) {
		client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/Datos/Mensuales/ESTACION" {
				t.Errorf("path = %s", r.URL.Path)
			}
			q := r.URL.Query()
			if q.Get("Id") != "V05" || q.Get("token") != "tok" {
				t.Errorf("query = %v", q)
			}
			if q.Get("FechaInicial") != "2021-06-01" || q.Get("FechaFinal") != "2024-05-31" {
				t.Errorf("date range = %s .. %s", q.Get("FechaInicial"), q.Get("FechaFinal"))
			}
			if q.Get("DatosCalculados") != "true" {
				t.Error("DatosCalculados=true missing")
			}
			w.Write([]byte(`{"datos":[
				{"Anio":2021,"Mes":6,"EtPMon":5.1,"PePMon":12.0},
				{"Anio":2021,"Mes":7,"EtPMon":"6,3","PePMon":"0.0"},
				{"Anio":2021,"Mes":8,"EtPMon":null,"PePMon":3.5}
			]}`))
		}))

		records, err := client.FetchMonthly(context.Background(), "V05", "tok", day(2021, time.June, 1), day(2024, time.May, 31))
		if err != nil {
			t.Fatalf("FetchMonthly: %v", err)
		}
		if len(records) != 3 {
			t.Fatalf("records = %d, want 3", len(records))
		}
		if records[0].Year != 2021 || records[0].Month != 6 || *records[0].Eto != 5.1 {
			t.Errorf("first record = %+v", records[0])
		}
		// Decimal-comma string values parse too.
		if *records[1].Eto != 6.3 || *records[1].Pe != 0.0 {
			t.Errorf("second record = %+v", records[1])
		}
		// Nulls stay nil, the paired value survives.
		if records[2].Eto != nil || *records[2].Pe != 3.5 {
			t.Errorf("third record = %+v", records[2])
		}
	})

	t.Run("accepts capitalized wrapper and year keys", func(t *testing.T) {
		client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`{"Datos":[{"Año":2022,"Mes":3,"EtPMon":2.5,"PePMon":11.0}]}`))
		}))

		records, err := client.FetchMonthly(context.Background(), "V05", "tok", day(2021, time.March, 1), day(2023, time.August, 31))
		if err != nil {
			t.Fatalf("FetchMonthly: %v", err)
		}
		if len(records) != 1 || records[0].Year != 2022 || records[0].Month != 3 {
			t.Fatalf("records = %+v", records)
		}
	})

	t.Run("unauthorized signals token expiry", func(t *testing.T) {
		client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))

		_, err := client.FetchMonthly(context.Background(), "V05", "tok", day(2021, time.June, 1), day(2024, time.May, 31))
		if !errors.Is(err, ErrTokenExpired) {
			t.Fatalf("expected ErrTokenExpired, got %v", err)
		}
	})

	t.Run("server error carries status and excerpt", func(t *testing.T) {
		client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("algo se rompió"))
		}))

		_, err := client.FetchMonthly(context.Background(), "V05", "tok", day(2021, time.June, 1), day(2024, time.May, 31))
		var upstream *UpstreamError
		if !errors.As(err, &upstream) {
			t.Fatalf("expected UpstreamError, got %v", err)
		}
		if upstream.Status != http.StatusInternalServerError || upstream.Body != "algo se rompió" {
			t.Errorf("UpstreamError = %+v", upstream)
		}
	})

	t.Run("unparseable body is no data, not an error", func(t *testing.T) {
		client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte("<html>mantenimiento</html>"))
		}))

		records, err := client.FetchMonthly(context.Background(), "V05", "tok", day(2021, time.June, 1), day(2024, time.May, 31))
		if err != nil {
			t.Fatalf("FetchMonthly: %v", err)
		}
		if len(records) != 0 {
			t.Errorf("records = %+v, want none", records)
		}
	})

	t.Run("missing data array is no data", func(t *testing.T) {
		client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`{"mensaje":"sin resultados"}`))
		}))

		records, err := client.FetchMonthly(context.Background(), "V05", "tok", day(2021, time.June, 1), day(2024, time.May, 31))
		if err != nil {
			t.Fatalf("FetchMonthly: %v", err)
		}
		if len(records) != 0 {
			t.Errorf("records = %+v, want none", records)
		}
	})
}
