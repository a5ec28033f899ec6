package til

import (
	"os"
	"regexp"
	"runtime"
)

const sysfsCPUPath = "/sys/devices/system/cpu"

var sysfsCPUEntry = regexp.MustCompile(`^cpu[0-9]+$`)

// NumCPUs reports the number of logical CPUs available for the thread
// pool. On Linux this counts cpuN entries under /sys/devices/system/cpu,
// the same source the original consulted directly, since it reflects
// cgroup/affinity-aware CPU visibility that runtime.NumCPU() alone doesn't
// always track; everywhere else, and if sysfs can't be read, it falls back
// to runtime.NumCPU(). Always at least 1.
func NumCPUs() int {
	if runtime.GOOS == "linux" {
		if n := sysfsCPUCount(); n > 0 {
			return n
		}
	}

	if n := runtime.NumCPU(); n > 0 {
		return n
	}
	return 1
}

func sysfsCPUCount() int {
	entries, err := os.ReadDir(sysfsCPUPath)
	if err != nil {
		return 0
	}

	n := 0
	for _, e := range entries {
		if sysfsCPUEntry.MatchString(e.Name()) {
			n++
		}
	}
	return n
}
