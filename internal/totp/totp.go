// Package totp implements RFC 4226/6238 one-time passwords for the
// authenticator enrollment and login flows.
package totp

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

const (
	// SecretBytes is the length of a freshly generated shared secret.
	SecretBytes = 20
	// Digits per code.
	Digits = 6
	// Period is the time-step length in seconds.
	Period = 30
	// Skew is the accepted clock drift in steps on either side of now,
	// i.e. a ±300 second window.
	Skew = 10
)

var enc = base32.StdEncoding.WithPadding(base32.NoPadding)

// GenerateSecret returns a new random shared secret, base32 encoded.
func GenerateSecret() (string, error) {
	raw := make([]byte, SecretBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return enc.EncodeToString(raw), nil
}

// ProvisionURI builds the otpauth URL an authenticator app scans during
// enrollment.
func ProvisionURI(secretBase32, account, issuer string) string {
	v := url.Values{}
	v.Set("secret", secretBase32)
	v.Set("issuer", issuer)
	v.Set("period", strconv.Itoa(Period))
	v.Set("digits", strconv.Itoa(Digits))

	return "otpauth://totp/" + url.PathEscape(account) + "?" + v.Encode()
}

// Verify reports whether the code matches the secret at any step inside
// the skew window around now. Replay inside the window is accepted; there
// is no last-used-counter tracking.
func Verify(secretBase32, code string, now time.Time) (bool, error) {
	if len(code) != Digits || !isNumeric(code) {
		return false, nil
	}
	secret, err := decodeSecret(secretBase32)
	if err != nil {
		return false, err
	}

	baseCounter := now.Unix() / Period
	for step := int64(-Skew); step <= Skew; step++ {
		counter := baseCounter + step
		if counter < 0 {
			continue
		}
		generated := hotp(secret, counter)
		if subtle.ConstantTimeCompare([]byte(generated), []byte(code)) == 1 {
			return true, nil
		}
	}
	return false, nil
}

// Code returns the code for the given instant. Used by enrollment previews
// and tests.
func Code(secretBase32 string, at time.Time) (string, error) {
	secret, err := decodeSecret(secretBase32)
	if err != nil {
		return "", err
	}
	return hotp(secret, at.Unix()/Period), nil
}

func decodeSecret(secretBase32 string) ([]byte, error) {
	if secretBase32 == "" {
		return nil, errors.New("empty totp secret")
	}
	secret, err := enc.DecodeString(secretBase32)
	if err != nil {
		return nil, fmt.Errorf("decode totp secret: %w", err)
	}
	return secret, nil
}

func hotp(secret []byte, counter int64) string {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], uint64(counter))

	mac := hmac.New(sha1.New, secret)
	_, _ = mac.Write(msg[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	bin := (int(sum[offset])&0x7f)<<24 |
		(int(sum[offset+1])&0xff)<<16 |
		(int(sum[offset+2])&0xff)<<8 |
		(int(sum[offset+3]) & 0xff)

	mod := 1
	for i := 0; i < Digits; i++ {
		mod *= 10
	}
	return fmt.Sprintf("%0*d", Digits, bin%mod)
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
