package typing

import (
	"slices"
	"testing"

	imErrors "sudooom.im.typing/pkg/errors"
)

func TestNewRecipientKeyIsOrderIndependent(t *testing.T) {
	perms := [][]int64{
		{3, 12, 7},
		{7, 3, 12},
		{12, 7, 3},
		{3, 3, 7, 12, 12},
	}

	want := NewRecipientKey(perms[0]...)
	if want != "3,7,12" {
		t.Fatalf("期望 3,7,12, 实际 = %s", want)
	}
	for _, ids := range perms[1:] {
		if got := NewRecipientKey(ids...); got != want {
			t.Errorf("NewRecipientKey(%v) = %s, want %s", ids, got, want)
		}
	}
}

func TestParseRecipientKey(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    RecipientKey
		wantErr bool
	}{
		{"sorted", "1,2", "1,2", false},
		{"unsorted with spaces", " 12, 2 ,7", "2,7,12", false},
		{"empty", "", "", false},
		{"not a number", "1,abc", "", true},
		{"negative", "1,-2", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRecipientKey(tt.input)
			if tt.wantErr {
				if !imErrors.Is(err, imErrors.ErrInvalidParams) {
					t.Fatalf("期望 ErrInvalidParams, 实际 = %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("期望 %q, 实际 = %q", tt.want, got)
			}
		})
	}
}

func TestRecipientKeyAccessors(t *testing.T) {
	key := NewRecipientKey(9, 1, 4)

	if !slices.Equal(key.UserIDs(), []int64{1, 4, 9}) {
		t.Errorf("UserIDs() = %v", key.UserIDs())
	}
	if !key.Contains(4) || key.Contains(5) {
		t.Error("Contains 结果不正确")
	}
	if !RecipientKey("").IsZero() || key.IsZero() {
		t.Error("IsZero 结果不正确")
	}
	if RecipientKey("").UserIDs() != nil {
		t.Error("空标识应返回 nil")
	}
}
