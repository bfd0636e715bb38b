// Package scan finds named entities (URLs, email addresses, IP literals,
// domain names) in free text and resolves them against the registered
// entity set.
package scan

import (
	"regexp"
	"sort"
	"strings"

	federation "github.com/federatedsec/federation"
)

// EntityType classifies an extracted position.
type EntityType string

const (
	TypeURL    EntityType = "URL"
	TypeEmail  EntityType = "EMAIL"
	TypeIPv6   EntityType = "IPV6"
	TypeIPv4   EntityType = "IPV4"
	TypeDomain EntityType = "DOMAIN"
)

// NamedEntityPosition is one occurrence of a named entity in the scanned
// content. Offset and Length are byte positions into the original text.
type NamedEntityPosition struct {
	Type   EntityType `json:"type"`
	Value  string     `json:"value"`
	Offset int        `json:"offset"`
	Length int        `json:"length"`
}

var (
	urlPattern   = regexp.MustCompile(`https?://[^\s<>"'` + "`" + `]+`)
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,63}`)
	// Candidate IPv6 spans; net.ParseIP decides what is real.
	ipv6Pattern   = regexp.MustCompile(`[0-9A-Fa-f:]*:[0-9A-Fa-f:]+(?:\.[0-9.]+)?`)
	ipv4Pattern   = regexp.MustCompile(`(?:\d{1,3}\.){3}\d{1,3}`)
	domainPattern = regexp.MustCompile(
		`[A-Za-z0-9](?:[A-Za-z0-9\-]*[A-Za-z0-9])?(?:\.[A-Za-z0-9](?:[A-Za-z0-9\-]*[A-Za-z0-9])?)+`)
)

// trailingPunct is stripped off match ends so sentence punctuation does not
// leak into extracted values.
const trailingPunct = ".,;:!?)"

// extractors in priority order. A lower-priority match overlapping an
// accepted span is dropped, so "user@example.com" yields an email, not an
// email plus a domain.
var extractors = []struct {
	typ     EntityType
	pattern *regexp.Regexp
	valid   func(string) bool
}{
	{TypeURL, urlPattern, validURL},
	{TypeEmail, emailPattern, validEmail},
	{TypeIPv6, ipv6Pattern, federation.IsIPv6},
	{TypeIPv4, ipv4Pattern, federation.IsIPv4},
	{TypeDomain, domainPattern, federation.IsDomainName},
}

// Extract returns the named entity positions found in content, ordered by
// offset. A limit of 0 means unlimited; otherwise extraction keeps the
// first limit positions in text order.
func Extract(content string, limit int) []NamedEntityPosition {
	var accepted []NamedEntityPosition
	for _, ex := range extractors {
		for _, loc := range ex.pattern.FindAllStringIndex(content, -1) {
			start, end := loc[0], loc[1]
			value := strings.TrimRight(content[start:end], trailingPunct)
			if value == "" || !ex.valid(value) {
				continue
			}
			pos := NamedEntityPosition{
				Type:   ex.typ,
				Value:  value,
				Offset: start,
				Length: len(value),
			}
			if overlapsAny(accepted, pos) {
				continue
			}
			accepted = append(accepted, pos)
		}
	}
	sort.Slice(accepted, func(i, j int) bool {
		return accepted[i].Offset < accepted[j].Offset
	})
	if limit > 0 && len(accepted) > limit {
		accepted = accepted[:limit]
	}
	return accepted
}

func overlapsAny(accepted []NamedEntityPosition, pos NamedEntityPosition) bool {
	for _, a := range accepted {
		if pos.Offset < a.Offset+a.Length && a.Offset < pos.Offset+pos.Length {
			return true
		}
	}
	return false
}

func validURL(s string) bool {
	host := urlHost(s)
	return host != "" && (federation.IsDomainName(host) || federation.IsIPv4(host) || federation.IsIPv6(host))
}

func validEmail(s string) bool {
	at := strings.LastIndexByte(s, '@')
	if at <= 0 || at == len(s)-1 {
		return false
	}
	return federation.IsDomainName(s[at+1:])
}
