package til

import (
	"errors"
	"syscall"
)

// Core operations report failure with one of these, mirroring the errno
// convention of the original C implementation (see spec §7). Reusing
// syscall's ready-made Errno values keeps errors.Is comparisons working
// against both til's own returns and anything wrapping a real syscall
// failure (eg. a backend's file I/O).
var (
	ErrNoMem   = syscall.ENOMEM // allocation/resource exhaustion
	ErrInvalid = syscall.EINVAL // setting/value/path failed validation
	ErrNotExist = syscall.ENOENT // module, path or setting not found
	ErrClosed  = syscall.EPIPE  // backend/stream signaled shutdown
)

// Sentinel errors for conditions with no natural errno analog.
var (
	ErrModuleUnknown   = errors.New("til: unknown module")
	ErrPoolShutdown    = errors.New("til: threads pool already shut down")
	ErrStreamHooksSet  = errors.New("til: stream already has different hooks installed")
	ErrContextDestroyed = errors.New("til: module context already destroyed")
)
