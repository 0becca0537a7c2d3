package notification

import (
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newClientKeys(t *testing.T) (p256dh, auth string) {
	t.Helper()
	priv, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	secret := make([]byte, 16)
	if _, err := rand.Read(secret); err != nil {
		t.Fatalf("rand: %v", err)
	}
	return base64.RawURLEncoding.EncodeToString(priv.PublicKey().Bytes()),
		base64.RawURLEncoding.EncodeToString(secret)
}

func newTestSender(t *testing.T) *WebPushSender {
	t.Helper()
	pub, priv, err := GenerateVAPIDKeys()
	if err != nil {
		t.Fatalf("vapid keys: %v", err)
	}
	return NewWebPushSender(VAPIDConfig{
		PublicKey:  pub,
		PrivateKey: priv,
		Subscriber: "mailto:admin@pharma-garde.com",
		TTL:        60,
	}, 2*time.Second)
}

func TestWebPushSender_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(t *testing.T, err error)
	}{
		{"created", http.StatusCreated, func(t *testing.T, err error) {
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}},
		{"gone", http.StatusGone, func(t *testing.T, err error) {
			if !errors.Is(err, ErrSubscriptionGone) {
				t.Errorf("expected ErrSubscriptionGone, got %v", err)
			}
		}},
		{"not found", http.StatusNotFound, func(t *testing.T, err error) {
			if !errors.Is(err, ErrSubscriptionGone) {
				t.Errorf("expected ErrSubscriptionGone, got %v", err)
			}
		}},
		{"server error", http.StatusInternalServerError, func(t *testing.T, err error) {
			var de *DeliveryError
			if !errors.As(err, &de) || de.StatusCode != http.StatusInternalServerError {
				t.Errorf("expected DeliveryError with 500, got %v", err)
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotAuth, gotEncoding string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotAuth = r.Header.Get("Authorization")
				gotEncoding = r.Header.Get("Content-Encoding")
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			p256dh, auth := newClientKeys(t)
			err := newTestSender(t).Send(context.Background(),
				&Subscription{Endpoint: srv.URL + "/push/abc", P256dh: p256dh, Auth: auth},
				[]byte(`{"title":"Changement de statut"}`))
			tt.check(t, err)

			if !strings.HasPrefix(gotAuth, "vapid ") {
				t.Errorf("expected vapid authorization, got %q", gotAuth)
			}
			if gotEncoding != "aes128gcm" {
				t.Errorf("expected aes128gcm payload, got %q", gotEncoding)
			}
		})
	}
}

func TestWebPushSender_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	p256dh, auth := newClientKeys(t)
	err := newTestSender(t).Send(context.Background(),
		&Subscription{Endpoint: url, P256dh: p256dh, Auth: auth}, []byte("{}"))

	var de *DeliveryError
	if !errors.As(err, &de) || de.StatusCode != 0 {
		t.Errorf("expected transport DeliveryError, got %v", err)
	}
	if errors.Is(err, ErrSubscriptionGone) {
		t.Error("transport failure must not prune the subscription")
	}
}

func TestGenerateVAPIDKeys(t *testing.T) {
	pub, priv, err := GenerateVAPIDKeys()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pub == "" || priv == "" || pub == priv {
		t.Errorf("unexpected key pair %q / %q", pub, priv)
	}
}
