package claims_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/voicesentinel/voicesentinel/internal/claims"
	"github.com/voicesentinel/voicesentinel/internal/models"
)

type staticProfiles map[string]*models.CallerProfile

func (p staticProfiles) Profile(_ context.Context, accountID string) (*models.CallerProfile, error) {
	return p[accountID], nil
}

func TestValidatorValidate(t *testing.T) {
	t.Parallel()

	profiles := staticProfiles{
		"12345": {
			AccountID:   "12345",
			OTP:         "5646",
			FullName:    "Ravi Kumar",
			DateOfBirth: "15 july 2005",
		},
	}
	validator := claims.NewValidator(profiles)

	tests := []struct {
		name           string
		accountID      string
		claims         models.Claims
		wantOTP        bool
		wantMismatches int
	}{
		{
			name:           "everything matches",
			accountID:      "12345",
			claims:         models.Claims{OTP: "5646", Name: "Ravi Kumar", DOB: "15 July 2005"},
			wantOTP:        true,
			wantMismatches: 0,
		},
		{
			name:           "dob without year still matches",
			accountID:      "12345",
			claims:         models.Claims{OTP: "5646", Name: "ravi kumar", DOB: "15 July"},
			wantOTP:        true,
			wantMismatches: 0,
		},
		{
			name:           "wrong otp right identity",
			accountID:      "12345",
			claims:         models.Claims{OTP: "1111", Name: "Ravi Kumar", DOB: "15 July 2005"},
			wantOTP:        false,
			wantMismatches: 0,
		},
		{
			name:           "wrong name and dob",
			accountID:      "12345",
			claims:         models.Claims{OTP: "5646", Name: "Suresh Patel", DOB: "1 January 1990"},
			wantOTP:        true,
			wantMismatches: 2,
		},
		{
			name:           "missing claims count as mismatches",
			accountID:      "12345",
			claims:         models.Claims{},
			wantOTP:        false,
			wantMismatches: 2,
		},
		{
			name:           "no profile cannot corroborate",
			accountID:      "99999",
			claims:         models.Claims{OTP: "5646", Name: "Ravi Kumar", DOB: "15 July 2005"},
			wantOTP:        false,
			wantMismatches: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			otpCorrect, mismatches, err := validator.Validate(context.Background(), tt.accountID, tt.claims)
			require.NoError(t, err)
			require.Equal(t, tt.wantOTP, otpCorrect)
			require.Equal(t, tt.wantMismatches, mismatches)
		})
	}
}
