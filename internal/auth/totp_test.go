package auth

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RFC 6238 seed "12345678901234567890"
const rfcSecret = "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"

func TestTOTPManager_NormalizeSecret(t *testing.T) {
	tm := NewTOTPManager("vaultgate")

	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"JBSWY3DPEHPK3PXP", "JBSWY3DPEHPK3PXP", false},
		{"jbsw y3dp ehpk 3pxp", "JBSWY3DPEHPK3PXP", false},
		{"JBSW-Y3DP-EHPK-3PXP", "JBSWY3DPEHPK3PXP", false},
		{"", "", true},
		{"not base32!", "", true},
		{"18", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := tm.NormalizeSecret(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTOTPSecret)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTOTPManager_Code_RFCVectors(t *testing.T) {
	tm := NewTOTPManager("vaultgate")

	code, remaining, err := tm.Code(rfcSecret, time.Unix(59, 0))
	require.NoError(t, err)
	assert.Equal(t, "287082", code)
	assert.Equal(t, 1, remaining)

	code, remaining, err = tm.Code(rfcSecret, time.Unix(1111111109, 0))
	require.NoError(t, err)
	assert.Equal(t, "081804", code)
	assert.Equal(t, 1, remaining)

	_, remaining, err = tm.Code(rfcSecret, time.Unix(60, 0))
	require.NoError(t, err)
	assert.Equal(t, 30, remaining)
}

func TestTOTPManager_QRCode(t *testing.T) {
	tm := NewTOTPManager("vaultgate")

	key, err := tm.KeyURL("GitHub (alice)", rfcSecret)
	require.NoError(t, err)
	assert.Equal(t, "vaultgate", key.Issuer())
	assert.Equal(t, rfcSecret, key.Secret())
	assert.Equal(t, "totp", key.Type())

	dataURL, err := tm.QRCode("GitHub (alice)", rfcSecret)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(dataURL, "data:image/png;base64,"))

	png, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(dataURL, "data:image/png;base64,"))
	require.NoError(t, err)
	assert.Equal(t, "\x89PNG", string(png[:4]))
}
