package cache

import "strconv"

// ReportKey returns the cache key for a report produced by policy over the
// registry at version.
// Format: report:<policy>:v<version>
func ReportKey(policy string, version uint64) string {
	return "report:" + policy + ":v" + strconv.FormatUint(version, 10)
}
