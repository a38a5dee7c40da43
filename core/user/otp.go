package user

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"time"

	"github.com/ablespace/ablespace/core"
)

const otpLength = 6

var (
	NowFunc = time.Now // mockable

	// errors
	errInvalidOTP = errors.New("invalid OTP")
	errOTPExpired = errors.New("OTP expired")
)

// GenerateOTP returns a random code of otpLength ASCII digits.
func GenerateOTP() (string, error) {
	buf := make([]byte, otpLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	otp := make([]byte, otpLength)
	for i, b := range buf {
		otp[i] = '0' + b%10
	}
	return string(otp), nil
}

// HashOTP returns the hex-encoded SHA-256 digest of otp.
// Only the digest is ever persisted.
func HashOTP(otp string) string {
	sum := sha256.Sum256([]byte(otp))
	return hex.EncodeToString(sum[:])
}

// verifyOTP checks a submitted OTP against the hash stored on the User
// and its validity window.
func verifyOTP(usr User, otp string) error {
	if otp == "" || usr.ResetOTPHash == "" {
		return errInvalidOTP
	}
	if subtle.ConstantTimeCompare([]byte(HashOTP(otp)), []byte(usr.ResetOTPHash)) == 0 {
		return errInvalidOTP
	}
	if NowFunc().After(usr.ResetOTPExpires) {
		return errOTPExpired
	}
	return nil
}

// otpExpiry returns the expiration timestamp for an OTP generated now.
func otpExpiry() time.Time {
	return NowFunc().UTC().Add(core.Conf.PasswordResetOTPTimeout)
}
