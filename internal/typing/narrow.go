package typing

import (
	"strings"

	"sudooom.im.typing/internal/people"
	imErrors "sudooom.im.typing/pkg/errors"
)

// NarrowKind 当前视图类型
type NarrowKind int

const (
	// NarrowStream 频道或其他非私信视图，不显示输入状态
	NarrowStream NarrowKind = iota
	// NarrowPrivateWith 与指定用户的私信或群私信
	NarrowPrivateWith
	// NarrowAllPrivate 所有与我相关的私信
	NarrowAllPrivate
)

// Narrow 当前视图
type Narrow struct {
	Kind NarrowKind
	With []int64 // 不含本地用户
}

// PrivateWith 与指定用户的私信视图
func PrivateWith(userIDs ...int64) Narrow {
	return Narrow{Kind: NarrowPrivateWith, With: userIDs}
}

// AllPrivate 所有私信视图
func AllPrivate() Narrow {
	return Narrow{Kind: NarrowAllPrivate}
}

// Key 私信视图对应的会话标识，包含本地用户
func (n Narrow) Key(self int64) RecipientKey {
	if n.Kind != NarrowPrivateWith || len(n.With) == 0 {
		return ""
	}
	ids := make([]int64, 0, len(n.With)+1)
	ids = append(ids, n.With...)
	ids = append(ids, self)
	return NewRecipientKey(ids...)
}

func (n Narrow) String() string {
	switch n.Kind {
	case NarrowPrivateWith:
		return "pm-with:" + NewRecipientKey(n.With...).String()
	case NarrowAllPrivate:
		return "is:private"
	default:
		return "stream"
	}
}

// ParseNarrow 解析视图运算符
// pm-with 的操作数为逗号分隔的邮箱
func ParseNarrow(operator, operand string, directory *people.Directory) (Narrow, error) {
	switch strings.TrimSpace(operator) {
	case "pm-with":
		ids, err := directory.EmailsToUserIDs(operand)
		if err != nil {
			return Narrow{}, err
		}
		return PrivateWith(ids...), nil
	case "is":
		if strings.TrimSpace(operand) == "private" {
			return AllPrivate(), nil
		}
		return Narrow{Kind: NarrowStream}, nil
	case "stream", "topic", "":
		return Narrow{Kind: NarrowStream}, nil
	default:
		return Narrow{}, imErrors.ErrInvalidParams.Wrapf("unknown narrow operator %q", operator)
	}
}

// ActiveTypists 视图中正在输入的用户
func (r *Registry) ActiveTypists(n Narrow) []int64 {
	switch n.Kind {
	case NarrowPrivateWith:
		return r.Users(n.Key(r.self))
	case NarrowAllPrivate:
		return r.All()
	default:
		return []int64{}
	}
}
