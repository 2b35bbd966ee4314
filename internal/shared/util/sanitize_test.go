package util

import (
	"strings"
	"testing"
)

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "plain", in: "statement.pdf", want: "statement.pdf"},
		{name: "separators", in: "a/b\\c.pdf", want: "a_b_c.pdf"},
		{name: "trimmed", in: "  scan.png ", want: "scan.png"},
		{name: "double dots inside name", in: "statement..v2.pdf", want: "statement..v2.pdf"},
		{name: "separator after dots", in: "../secret.pdf", want: ".._secret.pdf"},
		{name: "dot", in: ".", wantErr: true},
		{name: "dot dot", in: "..", wantErr: true},
		{name: "empty", in: "   ", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SanitizeFileName(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("SanitizeFileName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestObjectKeyForPath(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "/tmp/in/statement.pdf", want: "statement.pdf"},
		{in: "a/statement..v2.pdf", want: "statement..v2.pdf"},
		{in: "  ./scan.png ", want: "scan.png"},
		{in: "in/..", wantErr: true},
		{in: "/", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ObjectKeyForPath(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("ObjectKeyForPath(%q) = %q, want error", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ObjectKeyForPath(%q): unexpected error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("ObjectKeyForPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestJobTag(t *testing.T) {
	if got := JobTag("bank statement (1).pdf"); got != "bank_statement__1_.pdf" {
		t.Fatalf("JobTag = %q", got)
	}
	long := JobTag(strings.Repeat("a", 100))
	if len(long) != 64 {
		t.Fatalf("expected 64 chars, got %d", len(long))
	}
}
