package sql

import _ "embed"

// Schema creates the members, tasks, applications and reviews relations.
//
//go:embed schema.sql
var Schema string
