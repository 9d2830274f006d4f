package domain

// Capability describes what an actor may do with the subject of a request.
type Capability int

const (
	SelfAccess Capability = iota
	AdminOverride
)

// Actor is the acting context resolved once per request from the
// authenticated principal and the optional target-user override.
type Actor struct {
	UserID       uint
	Admin        bool
	TargetUserID uint // zero when no override was requested
}

// Authenticated reports whether the request carries a principal.
func (a Actor) Authenticated() bool { return a.UserID != 0 }

// Capability is AdminOverride only for administrators naming a target.
func (a Actor) Capability() Capability {
	if a.Admin && a.TargetUserID != 0 {
		return AdminOverride
	}
	return SelfAccess
}

// SystemOperatorID attributes ledger entries recorded without a principal.
const SystemOperatorID uint = 0
