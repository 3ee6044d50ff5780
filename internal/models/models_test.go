package models

import (
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func TestCredentialSet(t *testing.T) {
	t.Run("NewCredentialSet converts epoch seconds", func(t *testing.T) {
		c := NewCredentialSet("a", "r", 1700000000)
		if !c.ExpiresAt.Equal(time.Unix(1700000000, 0)) {
			t.Errorf("unexpected expiry %v", c.ExpiresAt)
		}
		if c.IsZero() {
			t.Error("set with tokens should not be zero")
		}
	})

	t.Run("zero expiry is unknown", func(t *testing.T) {
		c := NewCredentialSet("a", "r", 0)
		if !c.ExpiresAt.IsZero() {
			t.Errorf("expected zero expiry, got %v", c.ExpiresAt)
		}
		if c.Expired(time.Now()) {
			t.Error("unknown expiry should not count as expired")
		}
	})

	t.Run("Expired", func(t *testing.T) {
		now := time.Now()
		past := CredentialSet{AccessToken: "a", ExpiresAt: now.Add(-time.Minute)}
		future := CredentialSet{AccessToken: "a", ExpiresAt: now.Add(time.Hour)}
		if !past.Expired(now) {
			t.Error("expected past expiry to be expired")
		}
		if future.Expired(now) {
			t.Error("expected future expiry to be valid")
		}
	})

	t.Run("FromToken keeps previous refresh token", func(t *testing.T) {
		prev := CredentialSet{AccessToken: "old", RefreshToken: "keep"}
		got := FromToken(&oauth2.Token{AccessToken: "new"}, prev)
		if got.AccessToken != "new" || got.RefreshToken != "keep" {
			t.Errorf("unexpected set %+v", got)
		}

		got = FromToken(&oauth2.Token{AccessToken: "new", RefreshToken: "rotated"}, prev)
		if got.RefreshToken != "rotated" {
			t.Errorf("expected rotated refresh token, got %q", got.RefreshToken)
		}
	})

	t.Run("Token round trip", func(t *testing.T) {
		c := NewCredentialSet("a", "r", 1700000000)
		tok := c.Token()
		if tok.AccessToken != "a" || tok.RefreshToken != "r" || !tok.Expiry.Equal(c.ExpiresAt) {
			t.Errorf("unexpected token %+v", tok)
		}
		if FromToken(tok, CredentialSet{}) != c {
			t.Error("expected round trip to preserve the set")
		}
	})
}

func TestExportRunValidate(t *testing.T) {
	start := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	valid := func() *ExportRun {
		r := NewExportRun(start, start.AddDate(-2, 0, 0), "csv")
		r.SetID("run-1")
		r.FinishedAt = start.Add(time.Minute)
		r.ActivityCount = 3
		r.CategoryCount = 2
		return r
	}

	tests := []struct {
		name    string
		mutate  func(*ExportRun)
		wantErr bool
	}{
		{name: "valid", mutate: func(*ExportRun) {}},
		{name: "missing id", mutate: func(r *ExportRun) { r.SetID("") }, wantErr: true},
		{name: "missing format", mutate: func(r *ExportRun) { r.Format = "" }, wantErr: true},
		{name: "missing finish", mutate: func(r *ExportRun) { r.FinishedAt = time.Time{} }, wantErr: true},
		{name: "finish before start", mutate: func(r *ExportRun) { r.FinishedAt = start.Add(-time.Second) }, wantErr: true},
		{name: "more categories than activities", mutate: func(r *ExportRun) { r.CategoryCount = 4 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid()
			tt.mutate(r)
			err := r.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	if d := valid().Duration(); d != time.Minute {
		t.Errorf("expected duration 1m, got %v", d)
	}
}
