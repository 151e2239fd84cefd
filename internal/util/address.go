package util

import (
	"net/mail"
	"strings"
)

// ReplyAddress extracts the deliverable address from a From header.
// - Parses RFC 5322 "From" values like "Name <user+case@Example.COM>"
// - Lowercases the domain; the local part is kept verbatim (local parts are
//   case-sensitive per RFC 5321, and +suffixes route back to the sender's filter)
// Returns empty string if parsing fails or the address is missing.
func ReplyAddress(fromHeader string) string {
	if fromHeader == "" {
		return ""
	}
	addr, err := mail.ParseAddress(fromHeader)
	if err != nil || addr == nil {
		// Some headers may be a list; try a crude fallback by splitting on comma.
		parts := strings.Split(fromHeader, ",")
		for _, p := range parts {
			p = strings.TrimSpace(p)
			a, e := mail.ParseAddress(p)
			if e == nil && a != nil {
				addr = a
				break
			}
		}
		if addr == nil {
			return ""
		}
	}

	email := strings.TrimSpace(addr.Address)
	at := strings.LastIndexByte(email, '@')
	if at <= 0 {
		return email
	}
	return email[:at] + "@" + strings.ToLower(email[at+1:])
}
