package cache

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
)

func TestRedis_Namespace(t *testing.T) {
	r := NewRedisWithClient(redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"}), "")
	defer r.rdb.Close() //nolint:errcheck

	if got := r.key("posts|{}"); got != "wavespace:cache:posts|{}" {
		t.Errorf("key = %q", got)
	}

	custom := NewRedisWithClient(r.rdb, "test:")
	if got := custom.key("x"); got != "test:x" {
		t.Errorf("key = %q, want %q", got, "test:x")
	}
	if err := custom.Close(); err != nil {
		t.Errorf("Close on borrowed client = %v", err)
	}
}

func TestRedis_UnreachableServerErrors(t *testing.T) {
	r := NewRedis(RedisConfig{Addr: "127.0.0.1:1"})
	defer r.Close() //nolint:errcheck

	if _, _, err := r.Get(context.Background(), "k"); err == nil {
		t.Error("Get against closed port returned nil error")
	}
}
