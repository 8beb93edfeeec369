package portal

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

const roleClaimURI = "http://schemas.microsoft.com/ws/2008/06/identity/claims/role"

// Claim is one token claim relayed by the auth gateway.
type Claim struct {
	Type  string `json:"typ"`
	Value string `json:"val"`
}

// ClientPrincipal is the decoded x-ms-client-principal header.
type ClientPrincipal struct {
	IdentityProvider string   `json:"identityProvider"`
	UserID           string   `json:"userId"`
	UserDetails      string   `json:"userDetails"`
	UserRoles        []string `json:"userRoles"`
	Claims           []Claim  `json:"claims"`
}

// DecodeClientPrincipal parses the base64 JSON principal header.
func DecodeClientPrincipal(header string) (*ClientPrincipal, error) {
	raw, err := base64.StdEncoding.DecodeString(header)
	if err != nil {
		return nil, fmt.Errorf("decode client principal: %w", err)
	}
	var cp ClientPrincipal
	if err := json.Unmarshal(raw, &cp); err != nil {
		return nil, fmt.Errorf("parse client principal: %w", err)
	}
	return &cp, nil
}

// Roles returns app-role claims followed by the gateway's built-in roles,
// without duplicates, in first-seen order.
func (cp *ClientPrincipal) Roles() []string {
	seen := make(map[string]struct{})
	roles := []string{}
	add := func(r string) {
		if _, ok := seen[r]; ok {
			return
		}
		seen[r] = struct{}{}
		roles = append(roles, r)
	}

	for _, c := range cp.Claims {
		if c.Type == "roles" || c.Type == roleClaimURI {
			add(c.Value)
		}
	}
	for _, r := range cp.UserRoles {
		add(r)
	}
	return roles
}

// Principal returns the audit identity carried by the header.
func (cp *ClientPrincipal) Principal() Principal {
	return Principal{
		UserID:           cp.UserID,
		UserDetails:      cp.UserDetails,
		IdentityProvider: cp.IdentityProvider,
		Roles:            cp.Roles(),
	}
}
