package til

import "math/rand"

// SettingDesc is the schema for one setting: its human name, key, an
// optional legal-value list (with parallel annotations), a preferred
// default, and the flags attached to it.
type SettingDesc struct {
	Name string // human-readable name, shown by an interactive frontend
	Key  string // left side of key=value; empty means "value is positional"

	Regex *string // optional regex the value must conform to

	Preferred string // default value when none is supplied

	Values      []string // finite list of legal values, if any
	Annotations []string // parallel annotations for Values, if any

	AsNestedSettings bool // value is itself a settings string for a sub-module
	AsLabel          bool // marks the value as a path label; no code in this package builds paths from it

	// Random, if set, generates a value for this setting when asked to
	// randomize (eg. by an interactive "surprise me" picker). Seeded per
	// call by the caller so successive calls with the same seed agree.
	Random func(seed int64) string

	// Override, if set, post-processes a raw string value, eg. to parse it
	// into a richer type before storing on the baked Setup. GetAndDescribe
	// does not call it.
	Override func(raw string) (string, error)
}

// Pick returns a concrete value for this descriptor: Random(seed) if set,
// else a uniform pick from Values if non-empty, else Preferred.
func (d *SettingDesc) Pick(seed int64) string {
	if d.Random != nil {
		return d.Random(seed)
	}
	if len(d.Values) > 0 {
		r := rand.New(rand.NewSource(seed))
		return d.Values[r.Intn(len(d.Values))]
	}
	return d.Preferred
}

// Valid reports whether raw is a legal value per this descriptor (regex
// and/or the finite Values list, whichever are set; no constraint means
// anything is legal).
func (d *SettingDesc) Valid(raw string) bool {
	if len(d.Values) > 0 {
		found := false
		for _, v := range d.Values {
			if v == raw {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if d.Regex != nil {
		if !regexCache(*d.Regex).MatchString(raw) {
			return false
		}
	}
	return true
}
