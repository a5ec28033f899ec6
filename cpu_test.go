package til

import "testing"

func TestNumCPUsAtLeastOne(t *testing.T) {
	if n := NumCPUs(); n < 1 {
		t.Fatalf("NumCPUs() = %d, want >= 1", n)
	}
}
