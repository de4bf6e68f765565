package siar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// fakeAuthServer counts cipher and token round-trips.
type fakeAuthServer struct {
	cipherCalls int32
	tokenCalls  int32
	failAuth    bool
}

func (f *fakeAuthServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/cifrarCadena", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.cipherCalls, 1)
		fmt.Fprintf(w, "%q", "cif:"+r.URL.Query().Get("cadena"))
	})
	mux.HandleFunc("/obtenerToken", func(w http.ResponseWriter, r *http.Request) {
		if f.failAuth {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		n := atomic.AddInt32(&f.tokenCalls, 1)
		fmt.Fprintf(w, "%q", fmt.Sprintf("token-%d", n))
	})
	return mux
}

func newTestProvider(t *testing.T, fake *fakeAuthServer, user, pass string) *TokenProvider {
	t.Helper()
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)
	return NewTokenProvider(New(srv.URL, 5*time.Second, 5*time.Second), user, pass)
}

func TestTokenAcquisitionAndCaching(t *testing.T) {
	t.Parallel()

	fake := &fakeAuthServer{}
	provider := newTestProvider(t, fake, "usuario", "secreto")

	first, err := provider.Token(context.Background())
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if first != "token-1" {
		t.Errorf("token = %q, want token-1", first)
	}

	second, err := provider.Token(context.Background())
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if second != first {
		t.Errorf("second Token call = %q, want cached %q", second, first)
	}

	// Both credentials ciphered once, token exchanged once; the second call
	// came from cache.
	if n := atomic.LoadInt32(&fake.cipherCalls); n != 2 {
		t.Errorf("cipher calls = %d, want 2", n)
	}
	if n := atomic.LoadInt32(&fake.tokenCalls); n != 1 {
		t.Errorf("token calls = %d, want 1", n)
	}
}

func TestTokenInvalidateForcesReacquisition(t *testing.T) {
	t.Parallel()

	fake := &fakeAuthServer{}
	provider := newTestProvider(t, fake, "usuario", "secreto")

	first, err := provider.Token(context.Background())
	if err != nil {
		t.Fatalf("Token: %v", err)
	}

	provider.Invalidate()

	second, err := provider.Token(context.Background())
	if err != nil {
		t.Fatalf("Token after Invalidate: %v", err)
	}
	if second == first {
		t.Errorf("token not refreshed after Invalidate: %q", second)
	}
	if n := atomic.LoadInt32(&fake.tokenCalls); n != 2 {
		t.Errorf("token calls = %d, want 2", n)
	}
}

func TestTokenMissingCredentialsFailsBeforeNetwork(t *testing.T) {
	t.Parallel()

	fake := &fakeAuthServer{}
	provider := newTestProvider(t, fake, "", "")

	_, err := provider.Token(context.Background())
	if !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("expected ErrMissingCredentials, got %v", err)
	}
	if n := atomic.LoadInt32(&fake.cipherCalls); n != 0 {
		t.Errorf("cipher calls = %d, want none before credentials check", n)
	}
}

func TestTokenAuthFailurePropagates(t *testing.T) {
	t.Parallel()

	fake := &fakeAuthServer{failAuth: true}
	provider := newTestProvider(t, fake, "usuario", "secreto")

	_, err := provider.Token(context.Background())
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if authErr.Step != "obtenerToken" {
		t.Errorf("step = %q, want obtenerToken", authErr.Step)
	}
}
