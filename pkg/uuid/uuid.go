// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package uuid generates the primary keys of accounts, roles, social links and
sessions.

Keys are UUIDv7 values: time-ordered, so inserts into the session partitions
and the users.account index stay append-mostly.
*/
package uuid

import "github.com/google/uuid"

// New returns a new UUIDv7 string. It panics only when the system entropy
// source fails.
func New() string {
	return uuid.Must(uuid.NewV7()).String()
}

// canonicalLength is the hyphenated 8-4-4-4-12 form.
const canonicalLength = 36

// Valid reports whether s is a UUID of any version in canonical hyphenated
// form. Braced, URN and unhyphenated spellings are rejected.
func Valid(s string) bool {
	return len(s) == canonicalLength && uuid.Validate(s) == nil
}
