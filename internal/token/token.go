// Package token models the claim bag presented at authorization time.
// Tokens carry the subject id under a primary claim with a legacy alias, and
// optionally an embedded list of group names asserted by the issuer.
package token

// Claim keys shared between token issuers and evaluators.
const (
	// ClaimUserID is the primary subject id claim.
	ClaimUserID = "userid"
	// ClaimUID is the legacy alias still emitted by older issuers.
	ClaimUID = "uid"
	// ClaimGroups is the optional embedded group list.
	ClaimGroups = "groups"
)

// AuthToken exposes typed access to token claims.
type AuthToken interface {
	// GetString returns a string claim; ok is false when absent or not a
	// string.
	GetString(key string) (value string, ok bool)
	// GetStringList returns a string-list claim; ok is false when absent.
	GetStringList(key string) (values []string, ok bool)
}

// Claims is a map-backed AuthToken, the shape produced by JWT parsing.
type Claims map[string]any

func (c Claims) GetString(key string) (string, bool) {
	value, ok := c[key].(string)
	return value, ok
}

func (c Claims) GetStringList(key string) ([]string, bool) {
	switch values := c[key].(type) {
	case []string:
		return values, true
	case []any:
		out := make([]string, 0, len(values))
		for _, v := range values {
			s, ok := v.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}

// SubjectID resolves the subject from the primary claim, falling back to the
// legacy alias. ok is false when neither claim is present.
func SubjectID(tok AuthToken) (string, bool) {
	if uid, ok := tok.GetString(ClaimUserID); ok && uid != "" {
		return uid, true
	}
	if uid, ok := tok.GetString(ClaimUID); ok && uid != "" {
		return uid, true
	}
	return "", false
}
