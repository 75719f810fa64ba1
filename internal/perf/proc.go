package perf

import (
	"os"
	"runtime"
	"strconv"
	"strings"
)

// clockTicksPerSecond is the kernel's USER_HZ; fixed at 100 on Linux.
const clockTicksPerSecond = 100

// processSnapshot reads the current process CPU percentage and resident
// memory in MB from /proc. On platforms without /proc the CPU reading is 0
// and memory falls back to the Go runtime's heap accounting.
func processSnapshot() (cpuPercent, memoryMB float64) {
	memoryMB = residentMemoryMB()
	cpuPercent = cpuSinceStart()
	return cpuPercent, memoryMB
}

// residentMemoryMB parses VmRSS from /proc/self/status.
func residentMemoryMB() float64 {
	data, err := os.ReadFile("/proc/self/status")
	if err != nil {
		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)
		return float64(ms.HeapAlloc) / (1 << 20)
	}
	for _, line := range strings.Split(string(data), "\n") {
		if !strings.HasPrefix(line, "VmRSS:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			break
		}
		kb, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			break
		}
		return kb / 1024
	}
	return 0
}

// cpuSinceStart computes average CPU usage of this process over its lifetime
// from /proc/self/stat (utime+stime vs elapsed time since starttime).
func cpuSinceStart() float64 {
	stat, err := os.ReadFile("/proc/self/stat")
	if err != nil {
		return 0
	}
	// Field 2 (comm) may contain spaces; fields after the closing paren are
	// fixed-position.
	raw := string(stat)
	idx := strings.LastIndex(raw, ")")
	if idx < 0 {
		return 0
	}
	fields := strings.Fields(raw[idx+1:])
	// After comm: field[11] = utime, field[12] = stime, field[19] = starttime
	// (0-based within the remainder).
	if len(fields) < 20 {
		return 0
	}
	utime, _ := strconv.ParseFloat(fields[11], 64)
	stime, _ := strconv.ParseFloat(fields[12], 64)
	starttime, _ := strconv.ParseFloat(fields[19], 64)

	uptimeData, err := os.ReadFile("/proc/uptime")
	if err != nil {
		return 0
	}
	uptimeFields := strings.Fields(string(uptimeData))
	if len(uptimeFields) < 1 {
		return 0
	}
	uptime, _ := strconv.ParseFloat(uptimeFields[0], 64)

	elapsed := uptime - starttime/clockTicksPerSecond
	if elapsed <= 0 {
		return 0
	}
	cpuSeconds := (utime + stime) / clockTicksPerSecond
	return cpuSeconds / elapsed * 100
}
