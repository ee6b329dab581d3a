// Package cache provides a TTL cache for encoded health reports.
//
// Keys are derived from the registry version and the aggregation policy, so
// any registry mutation moves readers to a fresh key and stale reports age
// out on their own. Caching is disabled unless Policy.TTL is positive.
package cache
