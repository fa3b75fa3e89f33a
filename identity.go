package sqlupsert

import (
	"crypto/md5"
	"encoding/hex"
	"slices"
	"strconv"
	"strings"
)

// MaxNameLength bounds the length of a routine name. It stays below the
// identifier limits of Postgres (63) and MySQL (64).
const MaxNameLength = 62

// Parameter name postfixes. They keep a column that is both a selector and
// a setter from collapsing into a single routine parameter.
const (
	SelectorPostfix = "_sel"
	SetterPostfix   = "_set"
)

// Identity identifies the routine shared by all upserts of the same shape.
// Selector and Setter must be sorted; Spec guarantees it.
type Identity struct {
	Prefix   string
	Table    string // flattened, see sql.TableRef.Flatten
	Selector []string
	Setter   []string
}

// Readable returns the human readable candidate name.
//
//	upsert_1_0_0_pets_sel_name_a_owner_set_color
func (id Identity) Readable() string {
	var b strings.Builder
	b.WriteString(id.Prefix)
	b.WriteString("_")
	b.WriteString(id.Table)
	b.WriteString("_sel_")
	b.WriteString(strings.Join(id.Selector, "_a_"))
	b.WriteString("_set_")
	b.WriteString(strings.Join(id.Setter, "_a_"))
	return b.String()
}

// Ambiguous reports whether the readable name could also be produced by a
// different shape. It happens when a field name holds an empty segment or
// one of the "a", "sel" or "set" separator segments, e.g. selector
// [a_a_b c] and selector [a b_a_c] both read "sel_a_a_b_a_c", or when the
// table holds a "sel" segment.
func (id Identity) Ambiguous() bool {
	if slices.Contains(strings.Split(id.Table, "_"), "sel") {
		return true
	}
	for _, keys := range [][]string{id.Selector, id.Setter} {
		for _, k := range keys {
			for _, seg := range strings.Split(k, "_") {
				switch seg {
				case "", "a", "sel", "set":
					return true
				}
			}
		}
	}
	return false
}

// digestInput is the hashed text: the readable name, or a length prefixed
// encoding of every part when the readable name is ambiguous.
func (id Identity) digestInput() string {
	if !id.Ambiguous() {
		return id.Readable()
	}
	var b strings.Builder
	part := func(tag string, keys ...string) {
		b.WriteString(tag)
		for _, k := range keys {
			b.WriteString(strconv.Itoa(len(k)))
			b.WriteByte(':')
			b.WriteString(k)
		}
		b.WriteByte(';')
	}
	part("p", id.Prefix)
	part("t", id.Table)
	part("sel", id.Selector...)
	part("set", id.Setter...)
	return b.String()
}

// Hashed returns the fixed width name built from the MD5 digest of
// digestInput. The table part is truncated when the name would still
// exceed MaxNameLength.
func (id Identity) Hashed() string {
	sum := md5.Sum([]byte(id.digestInput()))
	digest := hex.EncodeToString(sum[:])
	table := id.Table
	if room := MaxNameLength - len(id.Prefix) - len(digest) - 2; len(table) > room {
		table = table[:max(room, 0)]
	}
	if table == "" {
		return id.Prefix + "_" + digest
	}
	return id.Prefix + "_" + table + "_" + digest
}

// Name returns the routine name: the readable form when it fits in
// MaxNameLength characters and is not ambiguous, the hashed form otherwise.
func (id Identity) Name() string {
	if id.IsHashed() {
		return id.Hashed()
	}
	return id.Readable()
}

// IsHashed reports whether Name falls back to the hashed form.
func (id Identity) IsHashed() bool {
	return len(id.Readable()) > MaxNameLength || id.Ambiguous()
}
