package tuya

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func grantToken(w http.ResponseWriter, expireSeconds int64) {
	json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"result": map[string]any{
			"access_token": "test-token",
			"expire_time":  expireSeconds,
		},
	})
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := New("client-id", "secret", server.URL, 5*time.Second)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	client.retryWait = time.Millisecond
	return client, server
}

func TestTokenAcquiredOnceWithinValidity(t *testing.T) {
	tokenCalls := 0
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1.0/token":
			tokenCalls++
			if r.Header.Get("access_token") != "" {
				t.Error("token-grant call must not carry an access token")
			}
			grantToken(w, 7200)
		default:
			if r.Header.Get("access_token") != "test-token" {
				t.Errorf("expected cached token on data call, got %q", r.Header.Get("access_token"))
			}
			json.NewEncoder(w).Encode(map[string]any{"success": true, "result": []any{}})
		}
	})

	for i := 0; i < 2; i++ {
		if _, err := client.Get(context.Background(), "/v1.0/devices/d1/status"); err != nil {
			t.Fatalf("Get: %v", err)
		}
	}
	if tokenCalls != 1 {
		t.Fatalf("token calls: got %d, want 1", tokenCalls)
	}
}

func TestTokenRefreshedAfterExpiry(t *testing.T) {
	tokenCalls := 0
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1.0/token" {
			tokenCalls++
			// lifetime equals the safety margin, so the token is stale immediately
			grantToken(w, 60)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"success": true, "result": []any{}})
	})

	for i := 0; i < 2; i++ {
		if _, err := client.Get(context.Background(), "/v1.0/devices/d1/status"); err != nil {
			t.Fatalf("Get: %v", err)
		}
	}
	if tokenCalls != 2 {
		t.Fatalf("token calls after expiry: got %d, want 2", tokenCalls)
	}
}

func TestTransientCodeRetriedOnce(t *testing.T) {
	attempts := 0
	nonces := map[string]bool{}
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1.0/token" {
			grantToken(w, 7200)
			return
		}
		attempts++
		nonces[r.Header.Get("nonce")] = true
		if attempts == 1 {
			json.NewEncoder(w).Encode(map[string]any{"success": false, "code": 501, "msg": "system busy"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"success": true, "result": map[string]any{"ok": true}})
	})

	result, err := client.Get(context.Background(), "/v1.0/devices/d1/status")
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if !strings.Contains(string(result), "ok") {
		t.Fatalf("unexpected result payload %s", result)
	}
	if attempts != 2 {
		t.Fatalf("attempts: got %d, want 2", attempts)
	}
	if len(nonces) != 2 {
		t.Fatalf("retry must re-sign with a fresh nonce, saw %d distinct nonces", len(nonces))
	}
}

func TestTransientCodeSurfacedAfterSecondFailure(t *testing.T) {
	attempts := 0
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1.0/token" {
			grantToken(w, 7200)
			return
		}
		attempts++
		json.NewEncoder(w).Encode(map[string]any{"success": false, "code": 501, "msg": "system busy"})
	})

	_, err := client.Get(context.Background(), "/v1.0/devices/d1/status")
	if err == nil {
		t.Fatal("expected error after exhausted retry")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != 501 {
		t.Fatalf("expected APIError code 501, got %v", err)
	}
	if attempts != 2 {
		t.Fatalf("attempts: got %d, want 2", attempts)
	}
}

func TestNonTransientErrorNotRetried(t *testing.T) {
	attempts := 0
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1.0/token" {
			grantToken(w, 7200)
			return
		}
		attempts++
		json.NewEncoder(w).Encode(map[string]any{"success": false, "code": 1106, "msg": "permission deny"})
	})

	_, err := client.Get(context.Background(), "/v1.0/devices/d1/status")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != 1106 || apiErr.Msg != "permission deny" {
		t.Fatalf("unexpected APIError %+v", apiErr)
	}
	if attempts != 1 {
		t.Fatalf("attempts: got %d, want 1", attempts)
	}
}

func TestRequestDispatchedWithNormalizedQueryAndValidSignature(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1.0/token" {
			grantToken(w, 7200)
			return
		}
		if r.URL.RawQuery != "a=1&b=2" {
			t.Errorf("expected normalized query, got %q", r.URL.RawQuery)
		}

		// recompute the signature server-side from the received headers
		str := "GET\n" + emptyBodyHash + "\n\n" + r.URL.Path + "?" + r.URL.RawQuery
		mac := hmac.New(sha256.New, []byte("secret"))
		mac.Write([]byte("client-id" + r.Header.Get("access_token") + r.Header.Get("t") + r.Header.Get("nonce") + str))
		want := strings.ToUpper(hex.EncodeToString(mac.Sum(nil)))
		if got := r.Header.Get("sign"); got != want {
			t.Errorf("signature mismatch: got %q, want %q", got, want)
		}
		if r.Header.Get("sign_method") != "HMAC-SHA256" {
			t.Errorf("sign_method: got %q", r.Header.Get("sign_method"))
		}
		if r.Header.Get("nonce") == "" {
			t.Error("nonce header missing")
		}
		json.NewEncoder(w).Encode(map[string]any{"success": true, "result": []any{}})
	})

	if _, err := client.Get(context.Background(), "/v1.0/devices/d1/logs?b=2&a=1"); err != nil {
		t.Fatalf("Get: %v", err)
	}
}

func TestTransportErrorSurfaced(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()
	client, err := New("client-id", "secret", server.URL, time.Second)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := client.Get(context.Background(), "/v1.0/devices/d1/status"); err == nil {
		t.Fatal("expected transport error against closed server")
	}
}

func TestNewRejectsMissingConfig(t *testing.T) {
	if _, err := New("", "secret", "http://example.com", time.Second); err == nil {
		t.Fatal("expected error for empty access id")
	}
	if _, err := New("id", "secret", "", time.Second); err == nil {
		t.Fatal("expected error for empty base url")
	}
	if _, err := New("id", "secret", "example.com", time.Second); err == nil {
		t.Fatal("expected error for url without scheme")
	}
}
