package federation

import (
	"crypto/rand"
	"math/big"
)

// MaxOperatorNameLength is the longest accepted operator name.
const MaxOperatorNameLength = 32

// APIKeyLength is the fixed length of operator API keys.
const APIKeyLength = 32

// OperatorRecord is an authenticated principal. Capabilities are three
// boolean flags; the master operator (API key equal to the configured server
// key) implicitly satisfies all of them.
type OperatorRecord struct {
	UUID            UUID   `db:"uuid" json:"uuid"`
	APIKey          string `db:"api_key" json:"api_key"`
	Name            string `db:"name" json:"name"`
	Disabled        bool   `db:"disabled" json:"disabled"`
	ManageOperators bool   `db:"manage_operators" json:"manage_operators"`
	ManageBlacklist bool   `db:"manage_blacklist" json:"manage_blacklist"`
	IsClient        bool   `db:"is_client" json:"is_client"`
	Created         int64  `db:"created" json:"created"`
	Updated         int64  `db:"updated" json:"updated"`
}

const apiKeyCharset = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// NewAPIKey generates a 32-character opaque API key from [0-9A-Za-z] using
// crypto/rand.
func NewAPIKey() string {
	b := make([]byte, APIKeyLength)
	max := big.NewInt(int64(len(apiKeyCharset)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand failing means the platform's entropy source is gone.
			panic(err)
		}
		b[i] = apiKeyCharset[n.Int64()]
	}
	return string(b)
}

// ValidateOperatorName checks the operator name constraints.
func ValidateOperatorName(name string) error {
	if name == "" {
		return NewError(InvalidArgument, "operator name must not be empty")
	}
	if len(name) > MaxOperatorNameLength {
		return Errorf(InvalidArgument, "operator name exceeds %d characters", MaxOperatorNameLength)
	}
	return nil
}

// ToMap serializes the record for the cache.
func (o OperatorRecord) ToMap() map[string]string {
	return map[string]string{
		"uuid":             o.UUID.String(),
		"api_key":          o.APIKey,
		"name":             o.Name,
		"disabled":         formatBool(o.Disabled),
		"manage_operators": formatBool(o.ManageOperators),
		"manage_blacklist": formatBool(o.ManageBlacklist),
		"is_client":        formatBool(o.IsClient),
		"created":          formatInt(o.Created),
		"updated":          formatInt(o.Updated),
	}
}

// OperatorFromMap reconstructs a record from its cache serialization.
func OperatorFromMap(m map[string]string) OperatorRecord {
	return OperatorRecord{
		UUID:            mustParseUUID(m["uuid"]),
		APIKey:          m["api_key"],
		Name:            m["name"],
		Disabled:        parseBool(m["disabled"]),
		ManageOperators: parseBool(m["manage_operators"]),
		ManageBlacklist: parseBool(m["manage_blacklist"]),
		IsClient:        parseBool(m["is_client"]),
		Created:         parseInt(m["created"]),
		Updated:         parseInt(m["updated"]),
	}
}
