package utils

import (
	"context"
	"testing"
	"time"
)

func TestReleaseScriptInitialized(t *testing.T) {
	if releaseClaimScript == nil {
		t.Fatalf("expected script to be initialized")
	}
}

func TestClaimOnce_ValidatesArguments(t *testing.T) {
	ctx := context.Background()
	if _, err := ClaimOnce(ctx, nil, "k", "t", time.Minute); err == nil {
		t.Fatalf("expected error for nil client")
	}
	if err := ReleaseClaim(ctx, nil, "k", "t"); err == nil {
		t.Fatalf("expected error for nil client")
	}
}

func TestOpenRedis_RequiresAddr(t *testing.T) {
	if _, err := OpenRedis(context.Background(), RedisConfig{}); err == nil {
		t.Fatalf("expected error for empty addr")
	}
}
