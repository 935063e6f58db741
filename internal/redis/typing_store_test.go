package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"sudooom.im.typing/internal/typing"
)

func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // 使用测试专用数据库
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("跳过测试：无法连接 Redis: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestBuildTypingKey(t *testing.T) {
	got := BuildTypingKey(1, typing.NewRecipientKey(3, 1, 2))
	if got != "im:typing:1:1,2,3" {
		t.Errorf("期望 im:typing:1:1,2,3, 实际 = %s", got)
	}
}

func TestTypingStorePutGet(t *testing.T) {
	client := setupTestRedis(t)
	ctx := context.Background()
	store := NewTypingStore(client, 1, 15*time.Second, 8)
	defer store.Close()

	key := typing.NewRecipientKey(1, 2, 3)
	client.Del(ctx, BuildTypingKey(1, key))

	if err := store.Put(ctx, key, []int64{3, 2}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	users, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(users) != 2 || users[0] != 3 || users[1] != 2 {
		t.Errorf("期望 [3 2], 实际 = %v", users)
	}

	ttl := client.TTL(ctx, BuildTypingKey(1, key)).Val()
	if ttl <= 0 || ttl > 15*time.Second {
		t.Errorf("TTL 应与过期时间一致, 实际 = %v", ttl)
	}

	if err := store.Put(ctx, key, nil); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	users, err = store.Get(ctx, key)
	if err != nil || len(users) != 0 {
		t.Errorf("空集合应删除 Key, 实际 = %v, %v", users, err)
	}
}

func TestTypingStoreMirrorsChanges(t *testing.T) {
	client := setupTestRedis(t)
	ctx := context.Background()
	store := NewTypingStore(client, 1, 15*time.Second, 8)

	key := typing.NewRecipientKey(1, 2)
	store.OnTypingChanged(key, []int64{2})
	store.Close()

	users, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(users) != 1 || users[0] != 2 {
		t.Errorf("期望 [2], 实际 = %v", users)
	}
	client.Del(ctx, BuildTypingKey(1, key))
}
