package redis

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"sudooom.im.typing/internal/typing"
	"sudooom.im.typing/internal/workerpool"
)

const (
	// TypingKeyPrefix 会话输入状态 Key 前缀
	// 完整格式: im:typing:{owner_id}:{recipient_key}
	TypingKeyPrefix = "im:typing:"

	writeTimeout = 2 * time.Second
)

// BuildTypingKey 构建会话输入状态 Key
func BuildTypingKey(owner int64, key typing.RecipientKey) string {
	return TypingKeyPrefix + strconv.FormatInt(owner, 10) + ":" + key.String()
}

// TypingStore 把每个会话的输入集合镜像到 Redis
// Value 为按加入顺序逗号拼接的用户 ID，TTL 与远端过期时间一致
type TypingStore struct {
	client *redis.Client
	owner  int64
	ttl    time.Duration
	pool   *workerpool.Pool
	logger *slog.Logger
}

// NewTypingStore 创建存储，owner 为本地用户
func NewTypingStore(client *redis.Client, owner int64, ttl time.Duration, queueSize int) *TypingStore {
	logger := slog.Default()
	return &TypingStore{
		client: client,
		owner:  owner,
		ttl:    ttl,
		pool:   workerpool.New("typing-store", 1, queueSize, logger),
		logger: logger,
	}
}

// OnTypingChanged 在事件循环中被调用，写入异步执行
func (s *TypingStore) OnTypingChanged(key typing.RecipientKey, users []int64) {
	ok := s.pool.TrySubmit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()
		if err := s.Put(ctx, key, users); err != nil {
			s.logger.Warn("Failed to mirror typing state", "recipient", key, "error", err)
		}
	})
	if !ok {
		s.logger.Warn("Typing store queue full, dropping update", "recipient", key)
	}
}

// Put 写入会话的输入集合，空集合删除 Key
func (s *TypingStore) Put(ctx context.Context, key typing.RecipientKey, users []int64) error {
	redisKey := BuildTypingKey(s.owner, key)
	if len(users) == 0 {
		return s.client.Del(ctx, redisKey).Err()
	}

	parts := make([]string, 0, len(users))
	for _, id := range users {
		parts = append(parts, strconv.FormatInt(id, 10))
	}
	return s.client.Set(ctx, redisKey, strings.Join(parts, ","), s.ttl).Err()
}

// Get 读取会话的输入集合，不存在时返回空
func (s *TypingStore) Get(ctx context.Context, key typing.RecipientKey) ([]int64, error) {
	val, err := s.client.Get(ctx, BuildTypingKey(s.owner, key)).Result()
	if errors.Is(err, redis.Nil) {
		return []int64{}, nil
	}
	if err != nil {
		return nil, err
	}

	users := []int64{}
	for _, part := range strings.Split(val, ",") {
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, err
		}
		users = append(users, id)
	}
	return users, nil
}

// Close 等待未完成的写入
func (s *TypingStore) Close() {
	s.pool.Shutdown()
}
