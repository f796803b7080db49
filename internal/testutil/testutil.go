// Package testutil provides testing utilities and helpers.
package testutil

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/HammerMeetNail/blockshield/internal/models"
)

// RandomDID returns a fresh did:plc identifier.
func RandomDID() string {
	return "did:plc:" + strings.ReplaceAll(uuid.NewString(), "-", "")[:24]
}

// RandomHandle returns a fresh handle under bsky.social.
func RandomHandle() string {
	return uuid.NewString()[:8] + ".bsky.social"
}

// RemoteEntries builds n distinct remote block entries.
func RemoteEntries(n int) []models.RemoteBlockEntry {
	out := make([]models.RemoteBlockEntry, n)
	for i := range out {
		out[i] = models.RemoteBlockEntry{TargetID: RandomDID(), TargetHandle: RandomHandle()}
	}
	return out
}

// AssertStatusCode checks if the response has the expected status code.
func AssertStatusCode(t *testing.T, rr *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if rr.Code != expected {
		t.Errorf("expected status %d, got %d. Body: %s", expected, rr.Code, rr.Body.String())
	}
}

// NewTestRequestWithJSON creates a new HTTP request with JSON body.
func NewTestRequestWithJSON(t *testing.T, method, path string, data interface{}) *http.Request {
	t.Helper()
	body, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("failed to marshal JSON: %v", err)
	}
	req := httptest.NewRequest(method, path, strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// StartPostgres runs a throwaway PostgreSQL container and returns its DSN.
// The container is terminated when the test finishes.
func StartPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("blockshield_test"),
		postgres.WithUsername("blockshield_test"),
		postgres.WithPassword("blockshield_test"),
		testcontainers.WithWaitStrategyAndDeadline(2*time.Minute,
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			wait.ForListeningPort("5432/tcp"),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}
	return dsn
}
