package checkin

import (
	"encoding/json"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

// ScannedCode is the payload a session QR code carries.
type ScannedCode struct {
	SessionID int64  `json:"sessionId"`
	Passcode  string `json:"passcode,omitempty"`
}

// ParseQRCode decodes raw scanner input. It is total: malformed input of any
// kind returns nil, never an error and never a panic. Unknown JSON fields
// are ignored so older clients keep working when the payload grows.
func ParseQRCode(raw string) *ScannedCode {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	var code ScannedCode
	if err := json.Unmarshal([]byte(raw), &code); err != nil {
		return nil
	}
	if code.SessionID <= 0 {
		return nil
	}
	return &code
}

// EncodeQRContent is the inverse of ParseQRCode.
func EncodeQRContent(sessionID int64, passcode string) string {
	payload, _ := json.Marshal(ScannedCode{SessionID: sessionID, Passcode: passcode})
	return string(payload)
}

// MatchSession checks the code against the session the client is submitting
// to. Scanning the wrong classroom's code is a client-side mixup, reported
// before any verification runs.
func (c *ScannedCode) MatchSession(sessionID int64) error {
	if c.SessionID != sessionID {
		return &WrongSessionError{Scanned: c.SessionID, Target: sessionID}
	}
	return nil
}

// QRImage renders content as a PNG.
func QRImage(content string, size int) ([]byte, error) {
	return qrcode.Encode(content, qrcode.Medium, size)
}
