package models

import "github.com/google/uuid"

// ensureID assigns a random id before insert. Ids are generated in Go so the
// same models run on Postgres and on sqlite in tests.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
