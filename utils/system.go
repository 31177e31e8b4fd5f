package utils

import (
	"fmt"
	"math"
	"runtime"
)

// GetMemUsage summarizes the heap for verbose runs.
func GetMemUsage() string {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	const mib = 1 << 20
	return fmt.Sprintf("heap %.1f MiB in use, %.1f MiB allocated in total, %.1f MiB from the OS, %d GC cycles",
		float64(ms.HeapAlloc)/mib, float64(ms.TotalAlloc)/mib, float64(ms.Sys)/mib, ms.NumGC)
}

// IsNan reports whether A holds a NaN.
func IsNan(A any) bool {
	switch v := A.(type) {
	case float64:
		return math.IsNaN(v)
	case []float64:
		for _, f := range v {
			if math.IsNaN(f) {
				return true
			}
		}
	case *Matrix[float64]:
		return IsNan(v.Data())
	}
	return false
}
