package people

import (
	"fmt"
	"strings"
	"sync"

	"sudooom.im.typing/internal/config"
	imErrors "sudooom.im.typing/pkg/errors"
)

// Person 通讯录中的用户
type Person struct {
	UserID   int64  `json:"user_id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

// Directory 身份提供者：本地用户与通讯录
type Directory struct {
	self Person

	mu      sync.RWMutex
	byID    map[int64]Person
	byEmail map[string]Person
}

// NewDirectory 创建通讯录，本地用户总是包含在内
func NewDirectory(self Person, others ...Person) *Directory {
	d := &Directory{
		self:    self,
		byID:    make(map[int64]Person),
		byEmail: make(map[string]Person),
	}
	d.Add(self)
	for _, p := range others {
		d.Add(p)
	}
	return d
}

// FromConfig 从配置构建通讯录
func FromConfig(user config.UserConfig, entries []config.PersonConfig) *Directory {
	others := make([]Person, 0, len(entries))
	for _, e := range entries {
		others = append(others, Person{UserID: e.ID, Email: e.Email, FullName: e.FullName})
	}
	return NewDirectory(Person{UserID: user.ID, Email: user.Email, FullName: user.FullName}, others...)
}

// Add 添加或更新用户
func (d *Directory) Add(p Person) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.byID[p.UserID] = p
	if p.Email != "" {
		d.byEmail[strings.ToLower(p.Email)] = p
	}
}

// Self 本地用户
func (d *Directory) Self() Person {
	return d.self
}

// Get 按 ID 查找
func (d *Directory) Get(userID int64) (Person, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	p, ok := d.byID[userID]
	return p, ok
}

// ByEmail 按邮箱查找
func (d *Directory) ByEmail(email string) (Person, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	p, ok := d.byEmail[strings.ToLower(strings.TrimSpace(email))]
	return p, ok
}

// FullName 未知用户返回占位名
func (d *Directory) FullName(userID int64) string {
	if p, ok := d.Get(userID); ok && p.FullName != "" {
		return p.FullName
	}
	return fmt.Sprintf("user%d", userID)
}

// Resolve 用于展示，未知用户只带 ID
func (d *Directory) Resolve(userID int64) Person {
	if p, ok := d.Get(userID); ok {
		return p
	}
	return Person{UserID: userID, FullName: d.FullName(userID)}
}

// EmailsToUserIDs 将逗号分隔的邮箱列表转换为用户 ID
func (d *Directory) EmailsToUserIDs(emails string) ([]int64, error) {
	var ids []int64
	for _, email := range strings.Split(emails, ",") {
		email = strings.TrimSpace(email)
		if email == "" {
			continue
		}
		p, ok := d.ByEmail(email)
		if !ok {
			return nil, imErrors.ErrUserNotFound.Wrapf("unknown email %q", email)
		}
		ids = append(ids, p.UserID)
	}
	if len(ids) == 0 {
		return nil, imErrors.ErrInvalidParams.Wrapf("empty email list")
	}
	return ids, nil
}
