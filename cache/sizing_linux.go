//go:build linux

package cache

import "syscall"

// totalSystemMemory reports the host's total RAM in bytes via sysinfo(2).
func totalSystemMemory() (uint64, bool) {
	var info syscall.Sysinfo_t
	if err := syscall.Sysinfo(&info); err != nil {
		return 0, false
	}
	return uint64(info.Totalram) * uint64(info.Unit), true
}
