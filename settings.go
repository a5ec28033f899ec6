package til

import "strings"

// Setting is one entry in a Settings tree: a key (a bare token such as "b"
// in "a=1,b" parses as Key "b" with no value), a raw string value (nil
// distinguishes "key present, no value" from "key=", an empty-string
// value), an optional nested
// Settings for recursively configuring a sub-module, and the SettingDesc
// it was last validated against (set once Setup binds a descriptor to it).
type Setting struct {
	Key   string
	Value *string

	Nested *Settings // lazily constructed the first time a descriptor with AsNestedSettings is applied
	Desc   *SettingDesc
}

// HasKey reports whether Key is non-empty. ParseSettings stores a bare
// token in Key, so only an empty token (eg. between two commas) has none.
func (s *Setting) HasKey() bool { return s.Key != "" }

// Settings is an ordered, duplicate-tolerant collection of Setting parsed
// from a flat "key1=value1,key2=value2,key3" string (see spec §6). Nested
// settings strings are themselves opaque string values until a descriptor
// bearing AsNestedSettings forces them to be parsed.
type Settings struct {
	Parent  *Setting // the Setting this tree is nested under, nil at the root
	Entries []*Setting
}

// fsmState is the settings-string parser's state machine state (spec §4.3).
type fsmState int

const (
	fsmKey fsmState = iota
	fsmEqual
	fsmValue
	fsmComma
)

// ParseSettings parses a settings string into a tree. An empty string
// yields an empty, non-nil Settings. Missing values (bare keys) are
// represented with a nil Value; a trailing "=" yields a non-nil pointer
// to an empty string, distinct from a missing value.
func ParseSettings(s string) *Settings {
	settings := &Settings{}
	if s == "" {
		return settings
	}

	state := fsmKey
	tokenStart := 0
	var cur *Setting

	flushKey := func(end int) {
		cur = &Setting{Key: s[tokenStart:end]}
		settings.Entries = append(settings.Entries, cur)
	}
	flushValue := func(end int) {
		v := s[tokenStart:end]
		cur.Value = &v
	}

	for i := 0; i <= len(s); i++ {
		var c byte
		atEnd := i == len(s)
		if !atEnd {
			c = s[i]
		}

		switch state {
		case fsmComma:
			tokenStart = i
			state = fsmKey
			if atEnd {
				// trailing comma: emit one final empty key
				flushKey(i)
				return settings
			}
			fallthrough
		case fsmKey:
			if atEnd || c == '=' || c == ',' {
				flushKey(i)
				switch {
				case atEnd:
					return settings
				case c == '=':
					state = fsmEqual
				case c == ',':
					state = fsmComma
				}
			}
		case fsmEqual:
			tokenStart = i
			state = fsmValue
			if atEnd {
				flushValue(i)
				return settings
			}
			fallthrough
		case fsmValue:
			if atEnd || c == ',' {
				flushValue(i)
				if atEnd {
					return settings
				}
				state = fsmComma
			}
		}
	}

	return settings
}

// Serialize reconstructs the flat settings string for this tree. It is the
// inverse of ParseSettings modulo whitespace: ParseSettings(Serialize(t))
// produces a tree equal in content to t for any tree without nested
// settings, and Serialize(ParseSettings(s)) == s for any valid s.
func (t *Settings) Serialize() string {
	var b strings.Builder
	for i, e := range t.Entries {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(e.Key)
		if e.Value != nil {
			b.WriteByte('=')
			b.WriteString(*e.Value)
		}
	}
	return b.String()
}

// GetValue returns the value of the first entry matching key, and whether
// it was found at all (to distinguish "absent" from "present but nil").
func (t *Settings) GetValue(key string) (*string, bool) {
	for _, e := range t.Entries {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

// GetByPos returns the entry at position pos, or nil if out of range.
func (t *Settings) GetByPos(pos int) *Setting {
	if pos < 0 || pos >= len(t.Entries) {
		return nil
	}
	return t.Entries[pos]
}

// Add appends a new entry. value == nil produces a bare key.
func (t *Settings) Add(key string, value *string) *Setting {
	s := &Setting{Key: key, Value: value}
	t.Entries = append(t.Entries, s)
	return s
}

// NestedFor lazily constructs and returns the nested Settings for entry e,
// parsing e.Value as a settings string the first time it's needed. Called
// when a descriptor bearing AsNestedSettings is bound to e (see setup.go).
func (t *Settings) NestedFor(e *Setting) *Settings {
	if e.Nested != nil {
		return e.Nested
	}

	raw := ""
	if e.Value != nil {
		raw = *e.Value
	}
	nested := ParseSettings(raw)
	nested.Parent = e
	e.Nested = nested

	return nested
}
