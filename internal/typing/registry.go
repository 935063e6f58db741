package typing

import (
	"log/slog"
	"slices"
	"time"
)

// ChangeFunc 会话中正在输入的用户集合发生变化
type ChangeFunc func(key RecipientKey, users []int64)

// Registry 远端输入状态聚合
// 每个 (会话, 用户) 独立过期；非并发安全，由 Coordinator 串行驱动
type Registry struct {
	self     int64
	expiry   time.Duration
	timers   Timers
	onChange ChangeFunc
	logger   *slog.Logger

	entries map[RecipientKey]*typingEntry
	gen     uint64
}

type typingEntry struct {
	users   []int64 // 按加入顺序
	expires map[int64]expiryTimer
}

type expiryTimer struct {
	handle TimerHandle
	gen    uint64
}

// NewRegistry 创建聚合器
func NewRegistry(self int64, expiry time.Duration, timers Timers, onChange ChangeFunc) *Registry {
	return &Registry{
		self:     self,
		expiry:   expiry,
		timers:   timers,
		onChange: onChange,
		logger:   slog.Default(),
		entries:  make(map[RecipientKey]*typingEntry),
	}
}

// Start 记录用户开始输入并刷新其过期时间
func (r *Registry) Start(sender int64, key RecipientKey) {
	if sender == r.self || key.IsZero() {
		return
	}

	entry, ok := r.entries[key]
	if !ok {
		entry = &typingEntry{expires: make(map[int64]expiryTimer)}
		r.entries[key] = entry
	}

	added := false
	if !slices.Contains(entry.users, sender) {
		entry.users = append(entry.users, sender)
		added = true
	}

	if old, ok := entry.expires[sender]; ok {
		r.timers.Cancel(old.handle)
	}
	r.gen++
	gen := r.gen
	handle := r.timers.Schedule(r.expiry, func() {
		r.expire(key, sender, gen)
	})
	if handle == "" {
		// 没有过期定时器的记录永远不会消失，按已过期处理
		delete(entry.expires, sender)
		if r.remove(key, sender) && !added {
			r.notify(key)
		}
		return
	}
	entry.expires[sender] = expiryTimer{handle: handle, gen: gen}

	if added {
		r.logger.Debug("User started typing", "userId", sender, "recipient", key)
		r.notify(key)
	}
}

// Stop 移除用户的输入状态
func (r *Registry) Stop(sender int64, key RecipientKey) {
	if sender == r.self {
		return
	}
	if r.remove(key, sender) {
		r.logger.Debug("User stopped typing", "userId", sender, "recipient", key)
		r.notify(key)
	}
}

func (r *Registry) expire(key RecipientKey, sender int64, gen uint64) {
	entry, ok := r.entries[key]
	if !ok {
		return
	}
	timer, ok := entry.expires[sender]
	if !ok || timer.gen != gen {
		return
	}
	delete(entry.expires, sender)
	if r.remove(key, sender) {
		r.logger.Debug("Typing status expired", "userId", sender, "recipient", key)
		r.notify(key)
	}
}

func (r *Registry) remove(key RecipientKey, sender int64) bool {
	entry, ok := r.entries[key]
	if !ok {
		return false
	}

	if timer, ok := entry.expires[sender]; ok {
		r.timers.Cancel(timer.handle)
		delete(entry.expires, sender)
	}

	i := slices.Index(entry.users, sender)
	if i == -1 {
		return false
	}
	entry.users = slices.Delete(entry.users, i, i+1)
	if len(entry.users) == 0 {
		delete(r.entries, key)
	}
	return true
}

func (r *Registry) notify(key RecipientKey) {
	if r.onChange != nil {
		r.onChange(key, r.Users(key))
	}
}

// Users 会话中正在输入的用户，按加入顺序
func (r *Registry) Users(key RecipientKey) []int64 {
	entry, ok := r.entries[key]
	if !ok {
		return []int64{}
	}
	return slices.Clone(entry.users)
}

// Keys 有人正在输入的会话，按标识排序
func (r *Registry) Keys() []RecipientKey {
	keys := make([]RecipientKey, 0, len(r.entries))
	for key := range r.entries {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}

// All 所有会话中正在输入的用户
func (r *Registry) All() []int64 {
	all := []int64{}
	for _, key := range r.Keys() {
		all = append(all, r.entries[key].users...)
	}
	return all
}

// Close 取消所有过期定时器，并为每个会话通知一次空集合
func (r *Registry) Close() {
	r.gen++
	for _, key := range r.Keys() {
		for _, timer := range r.entries[key].expires {
			r.timers.Cancel(timer.handle)
		}
		delete(r.entries, key)
		r.notify(key)
	}
}
