package store

import (
	"fmt"
	"strings"
	"testing"
)

func TestGenerateRecordID(t *testing.T) {
	id, err := GenerateRecordID(nil)
	if err != nil {
		t.Fatalf("generate record id: %v", err)
	}
	if !strings.HasPrefix(id, "rec-") {
		t.Fatalf("expected rec- prefix, got %q", id)
	}
	if len(id) != len("rec-")+idHashLength {
		t.Fatalf("unexpected id length: %q", id)
	}
}

func TestGenerateIDRetriesOnCollision(t *testing.T) {
	calls := 0
	id, err := GenerateID("bl", func(string) (bool, error) {
		calls++
		return calls < 3, nil
	})
	if err != nil {
		t.Fatalf("generate id: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
	if !strings.HasPrefix(id, "bl-") {
		t.Fatalf("expected bl- prefix, got %q", id)
	}
}

func TestGenerateIDExhaustsAttempts(t *testing.T) {
	_, err := GenerateID("rec", func(string) (bool, error) {
		return true, nil
	})
	if err == nil {
		t.Fatal("expected exhaustion error")
	}
}

func TestGenerateIDPropagatesExistsError(t *testing.T) {
	wantErr := fmt.Errorf("index unavailable")
	_, err := GenerateID("rec", func(string) (bool, error) {
		return false, wantErr
	})
	if err == nil || !strings.Contains(err.Error(), "index unavailable") {
		t.Fatalf("expected exists error, got %v", err)
	}
}
