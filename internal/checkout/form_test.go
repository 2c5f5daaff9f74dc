package checkout

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func itoa(n int) string { return strconv.Itoa(n) }

func TestPhoneRule(t *testing.T) {
	cases := map[string]bool{
		"0555123456":        true,
		"+213 555 12 34 56": true,
		"abc":               false,
		"+":                 false,
		"05-55-12":          false,
		"++213555":          false,
	}
	for phone, want := range cases {
		require.Equal(t, want, isPhoneDigits(phone), phone)
	}
}

func TestNormalizeTrimsAndOptionalFieldsMayBeEmpty(t *testing.T) {
	form := ShippingForm{
		FullName:        " Amina ",
		Phone:           " 0555 ",
		Wilaya:          " Oran",
		Commune:         "Bir El Djir ",
		Address:         " 3 rue X ",
		PostalCode:      "  ",
		ChallengeAnswer: " 7 ",
	}
	form.Normalize()
	require.Equal(t, "Amina", form.FullName)
	require.Equal(t, "7", form.ChallengeAnswer)
	require.Empty(t, form.Validate())
	require.Nil(t, optional(form.PostalCode))
}

func TestFreeTextFieldsHaveNoLengthLimit(t *testing.T) {
	form := ShippingForm{
		FullName:        strings.Repeat("Amina ", 100),
		Phone:           "+213 5 5 5 1 2 3 4 5 6 7 8 9 0",
		Wilaya:          "Alger",
		Commune:         "Hydra",
		Address:         strings.Repeat("12 rue Didouche Mourad ", 50),
		PostalCode:      "16000 Alger Centre",
		Notes:           strings.Repeat("x", 5000),
		ChallengeAnswer: "7",
	}
	form.Normalize()
	require.Empty(t, form.Validate())
}

func TestChallengeQuestion(t *testing.T) {
	require.Equal(t, "3 + 4", Challenge{A: 3, B: 4}.Question())
	for i := 0; i < 50; i++ {
		c, err := randomChallenge(1, 10)
		require.NoError(t, err)
		require.True(t, c.A >= 1 && c.A <= 10 && c.B >= 1 && c.B <= 10)
	}
}
