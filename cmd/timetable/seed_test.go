package main

import "testing"

func TestParseDelimiter(t *testing.T) {
	tests := []struct {
		in      string
		want    rune
		wantErr bool
	}{
		{",", ',', false},
		{";", ';', false},
		{"\t", '\t', false},
		{"", 0, true},
		{",,", 0, true},
	}

	for _, tt := range tests {
		got, err := parseDelimiter(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("parseDelimiter(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Fatalf("parseDelimiter(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
