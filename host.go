package federation

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
	"strings"
)

// MaxHostLength is the longest accepted host value.
const MaxHostLength = 255

// maxDomainLength bounds the full domain name, per RFC 1035.
const maxDomainLength = 253

// IsIPv4 reports whether s is an IPv4 address literal.
func IsIPv4(s string) bool {
	ip := net.ParseIP(s)
	return ip != nil && ip.To4() != nil && strings.Contains(s, ".")
}

// IsIPv6 reports whether s is an IPv6 address literal.
func IsIPv6(s string) bool {
	ip := net.ParseIP(s)
	return ip != nil && strings.Contains(s, ":")
}

// IsDomainName reports whether s is a strict domain name: at least two
// labels, each 1-63 chars of [a-z0-9-] with no leading or trailing hyphen,
// and at most 253 chars overall. Comparison is case-insensitive.
func IsDomainName(s string) bool {
	if len(s) == 0 || len(s) > maxDomainLength {
		return false
	}
	labels := strings.Split(strings.ToLower(s), ".")
	if len(labels) < 2 {
		return false
	}
	for _, label := range labels {
		if len(label) == 0 || len(label) > 63 {
			return false
		}
		if label[0] == '-' || label[len(label)-1] == '-' {
			return false
		}
		for i := 0; i < len(label); i++ {
			c := label[i]
			if c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '-' {
				continue
			}
			return false
		}
	}
	return true
}

// IsValidHost reports whether s is accepted as an entity host: a strict
// domain name or an IPv4/IPv6 literal.
func IsValidHost(s string) bool {
	if len(s) == 0 || len(s) > MaxHostLength {
		return false
	}
	return IsDomainName(s) || IsIPv4(s) || IsIPv6(s)
}

// CanonicalForm returns the canonical identity of an entity: the host alone,
// or "id@host" when an id is present.
func CanonicalForm(host string, id *string) string {
	if id == nil || *id == "" {
		return host
	}
	return *id + "@" + host
}

// EntityHash returns the hex SHA-256 of the canonical form. It is the unique
// lookup key of an entity.
func EntityHash(host string, id *string) string {
	sum := sha256.Sum256([]byte(CanonicalForm(host, id)))
	return hex.EncodeToString(sum[:])
}
