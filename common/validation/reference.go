package validation

// ReferenceRole is the function a file plays inside a reference genome bundle
type ReferenceRole string

const (
	RoleFASTA    ReferenceRole = "FASTA"
	RoleFAI      ReferenceRole = "FAI"
	RoleDICT     ReferenceRole = "DICT"
	RoleBWAIndex ReferenceRole = "BWA_INDEX"
	RoleVEPCache ReferenceRole = "VEP_CACHE"
)

// RequiredRoles must all be present for a bundle to back a run
var RequiredRoles = []ReferenceRole{RoleFASTA, RoleFAI, RoleDICT, RoleBWAIndex}

// Valid reports whether r is a known role
func (r ReferenceRole) Valid() bool {
	switch r {
	case RoleFASTA, RoleFAI, RoleDICT, RoleBWAIndex, RoleVEPCache:
		return true
	}
	return false
}

// ReferenceComponent is one file of a reference bundle
type ReferenceComponent struct {
	Role ReferenceRole `json:"role" validate:"required"`
	URI  string        `json:"uri" validate:"required"`
	MD5  *string       `json:"md5,omitempty"`
}

// EvaluateComplete reports whether every required role is present and every
// component carrying a required role has a URI and, if given, a well-formed md5.
// The result does not depend on the order of components.
func EvaluateComplete(components []ReferenceComponent) bool {
	required := make(map[ReferenceRole]bool, len(RequiredRoles))
	for _, role := range RequiredRoles {
		required[role] = false
	}

	for _, c := range components {
		if _, ok := required[c.Role]; !ok {
			continue
		}
		if c.URI == "" || (c.MD5 != nil && *c.MD5 != "" && !IsValidMD5(*c.MD5)) {
			return false
		}
		required[c.Role] = true
	}

	for _, present := range required {
		if !present {
			return false
		}
	}

	return true
}

// IsValidMD5 reports whether s is 32 hex characters, case-insensitive
func IsValidMD5(s string) bool {
	if len(s) != 32 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
