package til

// Jenkins computes the "one at a time" Jenkins hash of key, as used for
// tap names and context paths throughout the stream (see Stream, Tap,
// Setup.Path). Cached once at initialization time by callers since the
// inputs never change after that point.
func Jenkins(key []byte) uint32 {
	var hash uint32

	for _, c := range key {
		hash += uint32(c)
		hash += hash << 10
		hash ^= hash >> 6
	}

	hash += hash << 3
	hash ^= hash >> 11
	hash += hash << 15

	return hash
}

// JenkinsString is a convenience wrapper around Jenkins for string keys.
func JenkinsString(key string) uint32 {
	return Jenkins([]byte(key))
}
