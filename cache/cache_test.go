package cache

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateKey(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want error
	}{
		{"valid", "report:three-tier:v1", nil},
		{"empty", "", ErrInvalidKey},
		{"blank", "   ", ErrInvalidKey},
		{"newline", "a\nb", ErrInvalidKey},
		{"carriage return", "a\rb", ErrInvalidKey},
		{"too long", strings.Repeat("k", MaxKeyLength+1), ErrKeyTooLong},
		{"max length", strings.Repeat("k", MaxKeyLength), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateKey(tt.key); !errors.Is(err, tt.want) {
				t.Errorf("ValidateKey() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestReportKey(t *testing.T) {
	if got := ReportKey("binary", 42); got != "report:binary:v42" {
		t.Errorf("ReportKey() = %q", got)
	}
	if ReportKey("binary", 1) == ReportKey("three-tier", 1) {
		t.Error("keys for different policies must differ")
	}
	if ReportKey("binary", 1) == ReportKey("binary", 2) {
		t.Error("keys for different versions must differ")
	}
}
