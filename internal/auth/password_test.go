package auth

import "testing"

func TestNormalizeUsername(t *testing.T) {
	got, err := NormalizeUsername("  Dr.House  ")
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if got != "dr.house" {
		t.Fatalf("expected dr.house, got %q", got)
	}

	for _, bad := range []string{"", ".leading", "trailing.", "has space", "UPPER$"} {
		if _, err := NormalizeUsername(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestHashAndVerifyPassword(t *testing.T) {
	if _, err := HashPassword("short"); err == nil {
		t.Fatal("expected error for short password")
	}

	hash, err := HashPassword("correct-horse-battery")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if !VerifyPassword(hash, "correct-horse-battery") {
		t.Fatal("expected password to verify")
	}
	if VerifyPassword(hash, "wrong-password") {
		t.Fatal("expected wrong password to fail")
	}
	if VerifyPassword("", "anything") {
		t.Fatal("expected empty hash to fail")
	}
}
