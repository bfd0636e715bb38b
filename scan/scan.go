package scan

import (
	"context"
	"net/url"
	"strings"

	federation "github.com/federatedsec/federation"
	"github.com/federatedsec/federation/registry"
)

// NamedEntity is one extracted position whose host resolved to a registered
// entity, together with that entity's full reputation picture.
type NamedEntity struct {
	Position NamedEntityPosition         `json:"position"`
	Result   *registry.EntityQueryResult `json:"result"`
}

// Scanner extracts named entities from text and queries the known ones.
// Positions whose host is not a registered entity are dropped from the
// result; scanning unknown hosts is not registration.
type Scanner struct {
	entities *registry.EntityManager
	composer *registry.Composer
}

// NewScanner returns a scanner over the given managers.
func NewScanner(entities *registry.EntityManager, composer *registry.Composer) *Scanner {
	return &Scanner{entities: entities, composer: composer}
}

// ScanContent extracts up to limit positions (0 = unlimited) and resolves
// each against the entity registry. An email address resolves twice: once as
// the id@host pair and once as the bare domain, the latter reported at the
// domain's own position within the address.
func (s *Scanner) ScanContent(ctx context.Context, content string, limit int, includeConfidential, includeLifted bool) ([]NamedEntity, error) {
	positions := Extract(content, limit)
	results := make([]NamedEntity, 0, len(positions))
	for _, pos := range positions {
		switch pos.Type {
		case TypeEmail:
			at := strings.LastIndexByte(pos.Value, '@')
			id := pos.Value[:at]
			host := pos.Value[at+1:]

			match, err := s.resolve(ctx, pos, federation.EntityHash(host, &id), includeConfidential, includeLifted)
			if err != nil {
				return nil, err
			}
			if match != nil {
				results = append(results, *match)
			}

			domainPos := NamedEntityPosition{
				Type:   TypeDomain,
				Value:  host,
				Offset: pos.Offset + at + 1,
				Length: len(host),
			}
			match, err = s.resolve(ctx, domainPos, federation.EntityHash(host, nil), includeConfidential, includeLifted)
			if err != nil {
				return nil, err
			}
			if match != nil {
				results = append(results, *match)
			}
		case TypeURL:
			host := urlHost(pos.Value)
			if host == "" {
				continue
			}
			match, err := s.resolve(ctx, pos, federation.EntityHash(host, nil), includeConfidential, includeLifted)
			if err != nil {
				return nil, err
			}
			if match != nil {
				results = append(results, *match)
			}
		default:
			match, err := s.resolve(ctx, pos, federation.EntityHash(pos.Value, nil), includeConfidential, includeLifted)
			if err != nil {
				return nil, err
			}
			if match != nil {
				results = append(results, *match)
			}
		}
	}
	return results, nil
}

func (s *Scanner) resolve(ctx context.Context, pos NamedEntityPosition, hash string, includeConfidential, includeLifted bool) (*NamedEntity, error) {
	result, err := s.composer.QueryByHash(ctx, hash, includeConfidential, includeLifted)
	if err != nil {
		if federation.CodeOf(err) == federation.NotFound {
			return nil, nil
		}
		return nil, err
	}
	return &NamedEntity{Position: pos, Result: result}, nil
}

// urlHost returns the lowercased host part of an absolute URL, "" when the
// URL does not parse or has no host.
func urlHost(s string) string {
	u, err := url.Parse(s)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
