package people

import (
	"testing"

	imErrors "sudooom.im.typing/pkg/errors"
)

func newTestDirectory() *Directory {
	return NewDirectory(
		Person{UserID: 1, Email: "alice@example.com", FullName: "Alice"},
		Person{UserID: 2, Email: "bob@example.com", FullName: "Bob"},
		Person{UserID: 3, Email: "Carol@Example.com", FullName: "Carol"},
	)
}

func TestDirectoryLookup(t *testing.T) {
	d := newTestDirectory()

	if d.Self().UserID != 1 {
		t.Errorf("期望 Self = 1, 实际 = %d", d.Self().UserID)
	}
	if p, ok := d.ByEmail(" carol@example.com "); !ok || p.UserID != 3 {
		t.Errorf("邮箱查找应忽略大小写与空白, 实际 = %+v, %v", p, ok)
	}
	if got := d.FullName(2); got != "Bob" {
		t.Errorf("期望 Bob, 实际 = %s", got)
	}
	if got := d.FullName(99); got != "user99" {
		t.Errorf("期望 user99, 实际 = %s", got)
	}
	if got := d.Resolve(99); got.UserID != 99 || got.Email != "" {
		t.Errorf("未知用户应只带 ID, 实际 = %+v", got)
	}
}

func TestEmailsToUserIDs(t *testing.T) {
	d := newTestDirectory()

	tests := []struct {
		name    string
		input   string
		want    []int64
		wantErr *imErrors.AppError
	}{
		{"single", "bob@example.com", []int64{2}, nil},
		{"multiple with spaces", "bob@example.com, carol@example.com", []int64{2, 3}, nil},
		{"unknown", "bob@example.com,dave@example.com", nil, imErrors.ErrUserNotFound},
		{"empty", " , ", nil, imErrors.ErrInvalidParams},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := d.EmailsToUserIDs(tt.input)
			if tt.wantErr != nil {
				if !imErrors.Is(err, tt.wantErr) {
					t.Fatalf("期望错误 %v, 实际 = %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("期望 %v, 实际 = %v", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("期望 %v, 实际 = %v", tt.want, got)
				}
			}
		})
	}
}
