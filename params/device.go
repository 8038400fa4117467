package params

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/klauspost/cpuid/v2"
)

// DeviceInfo describes the processor the run is placed on.
// Only the CPU path exists; the report goes to the top of the training log.
func DeviceInfo() string {
	var feats []string
	for _, f := range []struct {
		id   cpuid.FeatureID
		name string
	}{
		{cpuid.AVX2, "avx2"},
		{cpuid.FMA3, "fma3"},
		{cpuid.AVX512F, "avx512f"},
		{cpuid.ASIMD, "asimd"},
	} {
		if cpuid.CPU.Supports(f.id) {
			feats = append(feats, f.name)
		}
	}
	brand := cpuid.CPU.BrandName
	if brand == "" {
		brand = runtime.GOARCH
	}
	return fmt.Sprintf("cpu: %s (%d logical cores, GOMAXPROCS=%d) features=[%s]",
		brand, cpuid.CPU.LogicalCores, runtime.GOMAXPROCS(0), strings.Join(feats, " "))
}
