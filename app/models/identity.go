package models

// Identity is the authenticated caller as asserted by the identity provider.
// The zero value is the anonymous caller.
type Identity struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoUrl"`
}

func (i Identity) IsAnonymous() bool {
	return NormalizeEmail(i.Email) == ""
}
