package stanza

import "strings"

// Occupant addresses follow the grammar numericId#login/resourceOrGame,
// where the id#login pair may also sit in the resource of a room JID
// (room@conference/12345#alice). SplitAddress returns the numeric id and
// login derived from either shape; both are empty when the address carries
// no # separator.
func SplitAddress(addr string) (userID, login string) {
	i := strings.Index(addr, "#")
	if i < 0 {
		return "", ""
	}
	left, right := addr[:i], addr[i+1:]
	if j := strings.LastIndex(left, "/"); j >= 0 {
		left = left[j+1:]
	}
	if j := strings.Index(right, "/"); j >= 0 {
		right = right[:j]
	}
	return left, right
}

// Resource returns the part of a JID after the last slash, or the JID
// itself when it has no resource.
func Resource(addr string) string {
	if i := strings.LastIndex(addr, "/"); i >= 0 {
		return addr[i+1:]
	}
	return addr
}

// LoginFromAddress derives a display login from a sender address:
// the login half of an id#login resource, else the bare resource.
func LoginFromAddress(addr string) string {
	res := Resource(addr)
	if i := strings.Index(res, "#"); i >= 0 {
		return res[i+1:]
	}
	return res
}
