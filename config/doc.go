// Package config loads and watches the healthagg configuration file.
//
// Load(path) reads the YAML file, expands ${VAR} references in values,
// applies defaults (listen :8080, 3s probe timeout, healthy status 200,
// three-tier policy), then validates ranges and enums.
//
// The services key is a mapping from name to address. Document order is kept
// and becomes registry order:
//
//	services:
//	  github_api: https://api.github.com
//	  httpbin_ok: https://httpbin.org/status/200
//
// Watch(ctx, path, logger, onChange) uses fsnotify to detect file changes
// and calls onChange with the newly parsed Config. A reload that fails to
// parse or validate is logged and skipped.
package config
