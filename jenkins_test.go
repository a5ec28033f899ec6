package til

import "testing"

func TestJenkinsTiller(t *testing.T) {
	if got := JenkinsString("tiller"); got != 0x4E6A8B59 {
		t.Fatalf("hash(%q) = 0x%X, want 0x4E6A8B59", "tiller", got)
	}
}

func TestJenkinsEmpty(t *testing.T) {
	if got := JenkinsString(""); got != 0 {
		t.Fatalf("hash(\"\") = 0x%X, want 0", got)
	}
}
