// Package naming resolves name collisions for items derived from existing
// workspace content.
package naming

import (
	"strconv"

	mapset "github.com/deckarep/golang-set/v2"
)

// Unique returns base if it is not in existing, otherwise the first free
// base_1, base_2, ... The result depends only on its inputs.
func Unique(base string, existing mapset.Set[string]) string {
	if existing == nil || !existing.ContainsOne(base) {
		return base
	}
	for i := 1; ; i++ {
		candidate := base + "_" + strconv.Itoa(i)
		if !existing.ContainsOne(candidate) {
			return candidate
		}
	}
}
