package cli

import (
	"bufio"
	"bytes"
	"strings"
	"testing"
)

func TestGetSimpleText(t *testing.T) {
	t.Run("trims the line", func(t *testing.T) {
		var out bytes.Buffer
		reader := bufio.NewReader(strings.NewReader("  bob  \n"))

		got, err := GetSimpleText(reader, "Enter a username", &out)
		if err != nil {
			t.Fatalf("GetSimpleText: %v", err)
		}
		if got != "bob" {
			t.Errorf("got %q", got)
		}
		if !strings.Contains(out.String(), "Enter a username") {
			t.Errorf("prompt not written: %q", out.String())
		}
	})

	t.Run("partial line at EOF", func(t *testing.T) {
		var out bytes.Buffer
		reader := bufio.NewReader(strings.NewReader("bob"))

		got, err := GetSimpleText(reader, "Enter a username", &out)
		if err != nil {
			t.Fatalf("GetSimpleText: %v", err)
		}
		if got != "bob" {
			t.Errorf("got %q", got)
		}
	})
}

func TestGetPassword(t *testing.T) {
	orig := readPassword
	t.Cleanup(func() { readPassword = orig })
	readPassword = func(fd int) ([]byte, error) { return []byte("s3cret"), nil }

	var out bytes.Buffer
	got, err := GetPassword("Enter a new password", &out)
	if err != nil {
		t.Fatalf("GetPassword: %v", err)
	}
	if got != "s3cret" {
		t.Errorf("got %q", got)
	}
	if !strings.Contains(out.String(), "Enter a new password: ") {
		t.Errorf("prompt not written: %q", out.String())
	}
}

func TestGetYesNo(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"y\n", true},
		{"Yes\n", true},
		{"n\n", false},
		{"\n", false},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		reader := bufio.NewReader(strings.NewReader(tt.in))
		got, err := GetYesNo(reader, "Generate a password?", &out)
		if err != nil {
			t.Fatalf("GetYesNo(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("GetYesNo(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
