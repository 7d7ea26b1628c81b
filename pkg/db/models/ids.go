package models

import "github.com/google/uuid"

// ensureID assigns a v4 id when the caller left it empty. Ids are generated
// application-side so rows can be referenced before the insert round-trips.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
