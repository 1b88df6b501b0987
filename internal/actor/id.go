package actor

import "github.com/google/uuid"

// newUUID mints an opaque id for participants and spins. Group ids are
// minted the same way at the router layer (see router.newGroupID).
func newUUID() string {
	return uuid.NewString()
}

// newSpinID is overridable in tests; production uses google/uuid.
var newSpinID = newUUID
