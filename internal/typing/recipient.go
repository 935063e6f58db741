package typing

import (
	"slices"
	"strconv"
	"strings"

	imErrors "sudooom.im.typing/pkg/errors"
)

// RecipientKey 会话标识：参与者用户 ID 升序去重后以逗号拼接
// 零值表示没有收件人
type RecipientKey string

// NewRecipientKey 由任意顺序的用户 ID 构建会话标识
func NewRecipientKey(ids ...int64) RecipientKey {
	if len(ids) == 0 {
		return ""
	}

	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	parts := make([]string, 0, len(sorted))
	for _, id := range sorted {
		if id <= 0 {
			continue
		}
		parts = append(parts, strconv.FormatInt(id, 10))
	}
	return RecipientKey(strings.Join(parts, ","))
}

// ParseRecipientKey 解析逗号分隔的用户 ID 列表
func ParseRecipientKey(s string) (RecipientKey, error) {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			return "", imErrors.ErrInvalidParams.Wrapf("invalid user id %q", part)
		}
		ids = append(ids, id)
	}
	return NewRecipientKey(ids...), nil
}

// IsZero 是否为空
func (k RecipientKey) IsZero() bool {
	return k == ""
}

// UserIDs 返回升序的用户 ID
func (k RecipientKey) UserIDs() []int64 {
	if k == "" {
		return nil
	}
	parts := strings.Split(string(k), ",")
	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// Contains 是否包含指定用户
func (k RecipientKey) Contains(userID int64) bool {
	_, found := slices.BinarySearch(k.UserIDs(), userID)
	return found
}

func (k RecipientKey) String() string {
	return string(k)
}
