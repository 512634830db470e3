package types

import (
	"errors"
	"testing"
)

func TestProfileValidate(t *testing.T) {
	tests := []struct {
		name    string
		profile Profile
		wantErr string // failing field, empty for ok
	}{
		{"Valid", Profile{Name: "Ada", Role: RoleBuilder}, ""},
		{"MissingName", Profile{Role: RoleBuilder}, "name"},
		{"BadRole", Profile{Name: "Ada", Role: "wizard"}, "role"},
		{"EmptyRole", Profile{Name: "Ada"}, "role"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.profile.Validate()
			checkValidation(t, err, tt.wantErr)
		})
	}
}

func TestMemberValidate(t *testing.T) {
	amount := 5000.0
	equity := 2.5
	over := 120.0

	tests := []struct {
		name    string
		member  ProjectMember
		wantErr string
	}{
		{"ValidAmount", ProjectMember{ProfileID: "p1", Role: RoleTechnical, CompensationAmount: &amount}, ""},
		{"ValidEquity", ProjectMember{ProfileID: "p1", Role: RoleInvestor, EquityPercent: &equity}, ""},
		{"BothSet", ProjectMember{ProfileID: "p1", Role: RoleTechnical, CompensationAmount: &amount, EquityPercent: &equity}, "compensation"},
		{"BuilderMember", ProjectMember{ProfileID: "p1", Role: RoleBuilder}, "role"},
		{"EquityOver100", ProjectMember{ProfileID: "p1", Role: RoleInvestor, EquityPercent: &over}, "equityPercent"},
		{"NoProfile", ProjectMember{Role: RoleTechnical}, "profileId"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.member.Validate()
			checkValidation(t, err, tt.wantErr)
		})
	}
}

func TestMatchValidate(t *testing.T) {
	tests := []struct {
		name    string
		match   Match
		wantErr string
	}{
		{"Valid", Match{InitiatorID: "a", ReceiverID: "b"}, ""},
		{"SelfMatch", Match{InitiatorID: "a", ReceiverID: "a"}, "receiverId"},
		{"NoReceiver", Match{InitiatorID: "a"}, "receiverId"},
		{"NoInitiator", Match{ReceiverID: "b"}, "initiatorId"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.match.Validate()
			checkValidation(t, err, tt.wantErr)
		})
	}
}

func checkValidation(t *testing.T, err error, wantField string) {
	t.Helper()
	if wantField == "" {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return
	}
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if ve.Field != wantField {
		t.Errorf("failing field = %q, want %q", ve.Field, wantField)
	}
}

func TestIsValidation(t *testing.T) {
	if _, ok := IsValidation(ErrNotFound); ok {
		t.Error("ErrNotFound should not be a validation error")
	}
	if ve, ok := IsValidation(Validationf("x", "bad")); !ok || ve.Field != "x" {
		t.Errorf("Validationf not recognized: %v %v", ve, ok)
	}
}
