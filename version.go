package sqlupsert

import "strings"

// Version is the generation of the synthesized routines. Routines of
// different generations never share a name.
const Version = "1.0.0"

// NamePrefix starts the name of every routine synthesized by this
// version, e.g. "upsert_1_0_0".
var NamePrefix = "upsert_" + strings.ReplaceAll(Version, ".", "_")

// helperRoutine is excluded from ClearAll. Older generations installed it
// to drop their own routines.
const helperRoutine = "upsert_delfunc"
