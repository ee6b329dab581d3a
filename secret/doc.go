// Package secret expands environment references in configuration values.
//
// Service addresses in a config file often embed credentials or hosts that
// differ per environment:
//
//	services:
//	  billing: https://${BILLING_HOST}/healthz
//
// ExpandEnvStrict fails when a braced reference names an unset variable,
// so a typo surfaces at load time instead of as a probe against a
// malformed URL.
package secret
