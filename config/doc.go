// Package config loads memoization settings from YAML.
//
//	dir: ${XDG_CACHE_HOME}/reports
//	max_age: 1h
//	exceptions_max_age: never
//	version: 2
//	codec: msgpack
//	coalesce: true
//	observe:
//	  service_name: reports
//	  logging: {enabled: true, level: info}
//
// Durations are Go duration strings; "unbounded" and "never" are also
// accepted. The dir value is expanded with ExpandEnvStrict.
package config
