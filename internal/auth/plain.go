package auth

import (
	"encoding/base64"
	"fmt"
)

// Mechanism is the only SASL mechanism the chat server offers.
const Mechanism = "PLAIN"

// PlainToken builds the base64 SASL PLAIN payload. The server expects the
// authcid in numericId#login form, so identity is assembled here rather
// than taken from the caller.
func PlainToken(userID, login, password string) string {
	authcid := fmt.Sprintf("%s#%s", userID, login)
	raw := fmt.Sprintf("\x00%s\x00%s", authcid, password)
	return base64.StdEncoding.EncodeToString([]byte(raw))
}
