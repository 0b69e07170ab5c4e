package cmd

import (
	"testing"

	"github.com/user/duologin/internal/provider/duo"
)

func TestParseMethod(t *testing.T) {
	tests := []struct {
		in      string
		want    duo.Method
		wantErr bool
	}{
		{"push", duo.MethodPush, false},
		{"Push", duo.MethodPush, false},
		{"Duo Push", duo.MethodPush, false},
		{"passcode", duo.MethodPasscode, false},
		{"Passcode", duo.MethodPasscode, false},
		{"  push  ", duo.MethodPush, false},
		{"sms", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := parseMethod(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseMethod(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseMethod(%q): unexpected error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseMethod(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
