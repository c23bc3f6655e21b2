// Package middleware provides HTTP middleware for the Slack endpoints.
package middleware

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"

	"github.com/slack-go/slack"
)

// MaxBodyBytes caps the size of a signed Slack request body.
const MaxBodyBytes = 1 << 20

// SlackSignature rejects requests whose v0 Slack signature does not verify
// against secret. Stale timestamps are rejected too. The body is buffered
// and restored so handlers can parse it normally.
func SlackSignature(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(io.LimitReader(r.Body, MaxBodyBytes+1))
			if err != nil {
				http.Error(w, `{"error":"failed to read body"}`, http.StatusBadRequest)
				return
			}
			if len(body) > MaxBodyBytes {
				http.Error(w, `{"error":"request body too large"}`, http.StatusRequestEntityTooLarge)
				return
			}

			if err := verify(r.Header, body, secret); err != nil {
				slog.Warn("Rejected unsigned Slack request", "path", r.URL.Path, "error", err)
				http.Error(w, `{"error":"invalid signature"}`, http.StatusUnauthorized)
				return
			}

			r.Body = io.NopCloser(bytes.NewReader(body))
			next.ServeHTTP(w, r)
		})
	}
}

func verify(header http.Header, body []byte, secret string) error {
	sv, err := slack.NewSecretsVerifier(header, secret)
	if err != nil {
		return err
	}
	if _, err := sv.Write(body); err != nil {
		return err
	}
	return sv.Ensure()
}
