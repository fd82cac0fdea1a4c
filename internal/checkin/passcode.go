package checkin

import (
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"
)

// HashPasscode hashes a static session passcode for storage.
func HashPasscode(passcode string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(passcode), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func verifyStaticPasscode(hash string, passcode string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(passcode)) == nil
}

// NewTOTPSecret provisions the shared secret for a rotating-passcode session.
func NewTOTPSecret(courseCode string) (string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      "studyhall",
		AccountName: courseCode,
	})
	if err != nil {
		return "", err
	}
	return key.Secret(), nil
}

// CurrentPasscode computes the rotating passcode for display on the
// projector view.
func CurrentPasscode(secret string, at time.Time, period uint) (string, error) {
	return totp.GenerateCodeCustom(secret, at, validateOpts(period))
}

func verifyRotatingPasscode(secret string, passcode string, at time.Time, period uint) bool {
	ok, err := totp.ValidateCustom(passcode, secret, at, validateOpts(period))
	return err == nil && ok
}

// One period of skew keeps codes valid across the rotation boundary, so a
// student who reads the code just before it flips can still submit it.
func validateOpts(period uint) totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    period,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	}
}
