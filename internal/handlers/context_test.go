package handlers

import (
	"context"
	"strings"
	"testing"
)

func TestAccountContext(t *testing.T) {
	ctx := context.Background()
	if GetAccountFromContext(ctx) != nil {
		t.Fatal("expected no account in empty context")
	}

	account := testAccount()
	ctx = SetAccountInContext(ctx, account)
	if got := GetAccountFromContext(ctx); got != account {
		t.Fatalf("expected stored account, got %+v", got)
	}
}

func TestRequestIDContext(t *testing.T) {
	ctx := SetRequestIDInContext(context.Background(), "req-1")
	if got := GetRequestIDFromContext(ctx); got != "req-1" {
		t.Fatalf("expected req-1, got %q", got)
	}
	if got := GetRequestIDFromContext(context.Background()); got != "" {
		t.Fatalf("expected empty id, got %q", got)
	}
}

func TestValidateDIDTag(t *testing.T) {
	valid := []string{
		"did:plc:ewvi7nxzyoun6zhxrhs64oiz",
		"did:web:example.com",
		"did:web:localhost%3A8080",
	}
	invalid := []string{
		"", "did:", "did:plc:", "did:PLC:abc", "alice.bsky.social",
		"did:plc:a b", "did:plc:abc:", "did:plc:" + strings.Repeat("a", 2048),
	}
	for _, s := range valid {
		if err := validate.Var(s, "did"); err != nil {
			t.Errorf("expected %q to be valid: %v", s, err)
		}
	}
	for _, s := range invalid {
		if err := validate.Var(s, "did"); err == nil {
			t.Errorf("expected %q to be invalid", s)
		}
	}
}
