package validation

import (
	"strings"
	"testing"
)

type sampleDTO struct {
	ID    string `validate:"required"`
	Count int    `validate:"gte=0"`
	Mode  string `validate:"omitempty,oneof=a b"`
	URL   string `validate:"omitempty,url"`
	Dag   string `validate:"omitempty,dagid"`
}

func TestStruct(t *testing.T) {
	tests := []struct {
		name    string
		dto     sampleDTO
		wantErr string
	}{
		{"valid", sampleDTO{ID: "x", Mode: "a", URL: "http://localhost:8080", Dag: "etl_daily"}, ""},
		{"missing id", sampleDTO{}, "sampleDTO.ID: field is required"},
		{"negative count", sampleDTO{ID: "x", Count: -1}, "must be at least 0"},
		{"bad mode", sampleDTO{ID: "x", Mode: "c"}, "must be one of [a b]"},
		{"bad url", sampleDTO{ID: "x", URL: "not a url"}, "must be a valid URL"},
		{"bad dag", sampleDTO{ID: "x", Dag: "etl daily"}, "invalid dag id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(&tt.dto)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Struct() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Struct() expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Struct() error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}

	if err := Struct(nil); err == nil {
		t.Error("Struct(nil) should fail")
	}
}

func TestValidateDagID(t *testing.T) {
	tests := []struct {
		id      string
		wantErr bool
	}{
		{"etl", false},
		{"etl_daily.v2-final", false},
		{"", true},
		{"has space", true},
		{"slash/dag", true},
		{strings.Repeat("a", 251), true},
	}

	for _, tt := range tests {
		err := ValidateDagID(tt.id)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateDagID(%.20q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
		}
	}
}

func TestValidatePartitionKey(t *testing.T) {
	tests := []struct {
		key     string
		wantErr bool
	}{
		{"2024-01-01", false},
		{"region=eu|day=3", false},
		{"", true},
		{"   ", true},
		{"a/b", true},
	}

	for _, tt := range tests {
		err := ValidatePartitionKey(tt.key)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidatePartitionKey(%q) error = %v, wantErr %v", tt.key, err, tt.wantErr)
		}
	}
}

func TestValidateNodeID(t *testing.T) {
	if err := ValidateNodeID("asset:1"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateNodeID(""); err == nil {
		t.Error("Expected error for empty node id")
	}
	if err := ValidateNodeID(strings.Repeat("n", MaxNodeIDLength+1)); err == nil {
		t.Error("Expected error for oversized node id")
	}
}
