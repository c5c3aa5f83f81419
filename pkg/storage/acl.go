package storage

import "github.com/adfharrison1/go-docrepo/pkg/domain"

// publicACLKey grants access to everyone
const publicACLKey = "*"

// principal is the resolved identity of a call
type principal struct {
	userID   string
	elevated bool
}

// canRead reports whether p may read doc. Objects without an ACL are public.
func (p principal) canRead(doc domain.Document) bool {
	return p.allowed(doc, "read")
}

// canWrite reports whether p may modify or delete doc
func (p principal) canWrite(doc domain.Document) bool {
	return p.allowed(doc, "write")
}

func (p principal) allowed(doc domain.Document, perm string) bool {
	if p.elevated {
		return true
	}
	acl, ok := toMap(doc[domain.FieldACL])
	if !ok {
		return true
	}
	if grants(acl[publicACLKey], perm) {
		return true
	}
	return p.userID != "" && grants(acl[p.userID], perm)
}

func grants(entry interface{}, perm string) bool {
	m, ok := toMap(entry)
	if !ok {
		return false
	}
	allowed, _ := m[perm].(bool)
	return allowed
}

func toMap(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case map[string]interface{}:
		return m, true
	case domain.Document:
		return m, true
	}
	return nil, false
}
