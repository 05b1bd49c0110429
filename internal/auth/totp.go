package auth

import (
	"encoding/base32"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	qrcode "github.com/skip2/go-qrcode"
)

const totpPeriod = 30

// ErrInvalidTOTPSecret is returned for seeds that are not base32
var ErrInvalidTOTPSecret = errors.New("invalid TOTP secret")

// TOTPManager generates codes and QR codes for stored account seeds
type TOTPManager struct {
	issuer string // Issuer name for TOTP QR codes
}

// NewTOTPManager creates a new TOTP manager
func NewTOTPManager(issuer string) *TOTPManager {
	return &TOTPManager{issuer: issuer}
}

// NormalizeSecret strips spaces and dashes, upper-cases and checks that the
// seed is valid base32
func (tm *TOTPManager) NormalizeSecret(secret string) (string, error) {
	normalized := strings.ToUpper(strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(secret)))
	normalized = strings.TrimRight(normalized, "=")
	if normalized == "" {
		return "", ErrInvalidTOTPSecret
	}

	if _, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(normalized); err != nil {
		return "", ErrInvalidTOTPSecret
	}
	return normalized, nil
}

// Code returns the code valid at `at` and the seconds left in its window
func (tm *TOTPManager) Code(secret string, at time.Time) (string, int, error) {
	code, err := totp.GenerateCodeCustom(secret, at, totp.ValidateOpts{
		Period:    totpPeriod,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", 0, fmt.Errorf("failed to generate TOTP code: %w", err)
	}

	remaining := totpPeriod - int(at.Unix()%totpPeriod)
	return code, remaining, nil
}

// KeyURL builds the otpauth URI of a seed
func (tm *TOTPManager) KeyURL(accountName, secret string) (*otp.Key, error) {
	params := url.Values{}
	params.Set("secret", secret)
	params.Set("issuer", tm.issuer)
	params.Set("period", fmt.Sprint(totpPeriod))
	params.Set("digits", otp.DigitsSix.String())
	params.Set("algorithm", otp.AlgorithmSHA1.String())

	u := url.URL{
		Scheme:   "otpauth",
		Host:     "totp",
		Path:     "/" + tm.issuer + ":" + accountName,
		RawQuery: params.Encode(),
	}

	key, err := otp.NewKeyFromURL(u.String())
	if err != nil {
		return nil, fmt.Errorf("failed to build TOTP key: %w", err)
	}
	return key, nil
}

// QRCode renders the otpauth URI of a seed as a PNG data URL
func (tm *TOTPManager) QRCode(accountName, secret string) (string, error) {
	key, err := tm.KeyURL(accountName, secret)
	if err != nil {
		return "", err
	}

	qr, err := qrcode.New(key.URL(), qrcode.Highest)
	if err != nil {
		return "", fmt.Errorf("failed to create QR code: %w", err)
	}

	qrImage, err := qr.PNG(200)
	if err != nil {
		return "", fmt.Errorf("failed to encode QR code: %w", err)
	}

	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(qrImage), nil
}
