package validation

import (
	"errors"
	"testing"
)

type sample struct {
	Name  string `json:"name" validate:"required,min=2"`
	Role  string `json:"role" validate:"omitempty,oneof=user admin"`
	Price int64  `json:"price" validate:"gt=0"`
	ID    string `json:"id" validate:"omitempty,uuid"`
}

func TestStruct(t *testing.T) {
	v := New()

	tests := []struct {
		name       string
		input      sample
		wantFields map[string]string
	}{
		{
			name:  "valid",
			input: sample{Name: "Deluxe", Role: "admin", Price: 1},
		},
		{
			name:  "missing name and zero price",
			input: sample{},
			wantFields: map[string]string{
				"name":  "name is required",
				"price": "price must be greater than 0",
			},
		},
		{
			name:  "bad role and id",
			input: sample{Name: "Deluxe", Role: "root", Price: 1, ID: "not-a-uuid"},
			wantFields: map[string]string{
				"role": "role must be one of: user admin",
				"id":   "id must be a valid UUID",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(v, tt.input)
			if tt.wantFields == nil {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}

			var verrs ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("expected ValidationErrors, got %T", err)
			}
			details := verrs.Details()
			if len(details) != len(tt.wantFields) {
				t.Fatalf("got %d field errors, want %d: %v", len(details), len(tt.wantFields), details)
			}
			for field, msg := range tt.wantFields {
				if details[field] != msg {
					t.Errorf("field %s: got %q, want %q", field, details[field], msg)
				}
			}
		})
	}
}

func TestValidationErrors_Error(t *testing.T) {
	if (ValidationErrors{}).Error() != "" {
		t.Error("empty errors should render empty")
	}
	errs := ValidationErrors{{Field: "name", Message: "name is required"}}
	want := "validation failed: 1 error(s): [name: name is required]"
	if errs.Error() != want {
		t.Errorf("got %q, want %q", errs.Error(), want)
	}
}
