package ean

import (
	"errors"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "valid ean-8 by length", input: "12345678", wantErr: false},
		{name: "valid ean-14 by length", input: "12345678901231", wantErr: false},
		{name: "valid ean-13 checksum", input: "1234567890128", wantErr: false},
		{name: "real ean-13", input: "4006381333931", wantErr: false},
		{name: "wrong check digit", input: "1234567890123", wantErr: true},
		{name: "non-digit characters", input: "12345678A0128", wantErr: true},
		{name: "too short", input: "1234567", wantErr: true},
		{name: "unsupported length", input: "123456789012", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "surrounding whitespace", input: " 12345678 ", wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, err := Parse(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Parse(%q) succeeded, want error", tt.input)
				}
				if !errors.Is(err, ErrInvalidCode) {
					t.Fatalf("Parse(%q) error = %v, want ErrInvalidCode", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) failed: %v", tt.input, err)
			}
			if got, want := code.String(), strings.TrimSpace(tt.input); got != want {
				t.Fatalf("code = %q, want %q", got, want)
			}
		})
	}
}

func TestCheckDigitMatchesLastDigit(t *testing.T) {
	// For any accepted 13-digit code, the digit recomputed from the first
	// twelve must equal the thirteenth.
	valid := []string{"1234567890128", "4006381333931", "5901234123457"}
	for _, s := range valid {
		code, err := Parse(s)
		if err != nil {
			t.Fatalf("Parse(%q) failed: %v", s, err)
		}
		digits := code.String()
		if got, want := CheckDigit(digits[:12]), int(digits[12]-'0'); got != want {
			t.Fatalf("CheckDigit(%q) = %d, want %d", digits[:12], got, want)
		}
	}
}

func TestCodeFormat(t *testing.T) {
	tests := []struct {
		input  string
		format string
	}{
		{input: "12345678", format: "EAN-8"},
		{input: "1234567890128", format: "EAN-13"},
		{input: "12345678901231", format: "EAN-14"},
	}
	for _, tt := range tests {
		code, err := Parse(tt.input)
		if err != nil {
			t.Fatalf("Parse(%q) failed: %v", tt.input, err)
		}
		if got := code.Format(); got != tt.format {
			t.Fatalf("Format() = %q, want %q", got, tt.format)
		}
	}
}

func TestTerms(t *testing.T) {
	code, err := Parse("12345678")
	if err != nil {
		t.Fatalf("parse code: %v", err)
	}

	terms := Terms(code)
	if len(terms) != 11 {
		t.Fatalf("len(terms) = %d, want 11", len(terms))
	}
	if terms[0] != "12345678" {
		t.Fatalf("terms[0] = %q, want bare code first", terms[0])
	}

	seen := make(map[string]struct{})
	for _, term := range terms {
		if !strings.Contains(term, "12345678") {
			t.Fatalf("term %q does not contain the code", term)
		}
		if _, dup := seen[term]; dup {
			t.Fatalf("duplicate term %q", term)
		}
		seen[term] = struct{}{}
	}

	// Qualifier-first variants must exist alongside code-first ones.
	if _, ok := seen["barcode 12345678"]; !ok {
		t.Fatalf("missing leading-qualifier term, got %v", terms)
	}
	if _, ok := seen["12345678 barcode"]; !ok {
		t.Fatalf("missing trailing-qualifier term, got %v", terms)
	}
}
