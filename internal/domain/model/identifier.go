package model

import "strings"

type IdentifierKind int

const (
	IdentifierEmail IdentifierKind = iota + 1
	IdentifierName
)

func (k IdentifierKind) String() string {
	switch k {
	case IdentifierEmail:
		return "email"
	case IdentifierName:
		return "name"
	default:
		return "unknown"
	}
}

// Identifier is a login handle resolved to either an email or a display name.
type Identifier struct {
	Kind  IdentifierKind
	Value string
}

// ParseIdentifier resolves the login fields once. An explicit username wins;
// otherwise a value containing "@" is an email and anything else is a name.
// Emails come back lower-cased.
func ParseIdentifier(email, username string) (Identifier, bool) {
	if u := strings.TrimSpace(username); u != "" {
		return Identifier{Kind: IdentifierName, Value: u}, true
	}
	e := strings.TrimSpace(email)
	if e == "" {
		return Identifier{}, false
	}
	if strings.Contains(e, "@") {
		return Identifier{Kind: IdentifierEmail, Value: strings.ToLower(e)}, true
	}
	return Identifier{Kind: IdentifierName, Value: e}, true
}
