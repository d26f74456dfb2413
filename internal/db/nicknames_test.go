package db

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"miniapp_profile/internal/telegram"
)

// Needs a reachable Postgres; set TEST_DATABASE_URL to run.
func testDB(t *testing.T) *DB {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("Skipping test: TEST_DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	d, err := Connect(ctx, url)
	if err != nil {
		t.Skipf("Skipping test: database not available: %v", err)
	}
	t.Cleanup(d.Close)

	if err := d.Migrate(ctx); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	return d
}

func TestNicknameReservationAndClaim(t *testing.T) {
	d := testDB(t)
	ctx := context.Background()
	suffix := time.Now().UnixNano()

	name := fmt.Sprintf("GoldenOtter_%d", suffix%9000+1000)

	t.Run("ReserveNickname", func(t *testing.T) {
		ok, err := d.ReserveNickname(ctx, name)
		if err != nil {
			t.Fatalf("ReserveNickname failed: %v", err)
		}
		if !ok {
			t.Fatal("expected first reservation to win")
		}

		ok, err = d.ReserveNickname(ctx, name)
		if err != nil {
			t.Fatalf("ReserveNickname failed: %v", err)
		}
		if ok {
			t.Error("expected second reservation to lose")
		}
	})

	t.Run("ClaimNickname", func(t *testing.T) {
		a := suffix
		b := suffix + 1
		for _, id := range []int64{a, b} {
			if _, err := d.UpsertProfile(ctx, telegram.Principal{ID: id, FirstName: "T"}); err != nil {
				t.Fatalf("UpsertProfile failed: %v", err)
			}
		}
		claimed := fmt.Sprintf("SilverLynx_%d", suffix%9000+1000)

		ok, err := d.ClaimNickname(ctx, a, claimed)
		if err != nil || !ok {
			t.Fatalf("expected first claim to succeed, ok=%v err=%v", ok, err)
		}
		ok, err = d.ClaimNickname(ctx, b, claimed)
		if err != nil {
			t.Fatalf("ClaimNickname failed: %v", err)
		}
		if ok {
			t.Error("expected claim by another profile to be refused")
		}
		ok, err = d.ClaimNickname(ctx, a, claimed)
		if err != nil || !ok {
			t.Fatalf("expected re-claim by the holder to succeed, ok=%v err=%v", ok, err)
		}
	})
}
