/*
Package enforcement bridges the build system and the runtime policy logic.
It uses the Go embed package to bake leak_patterns.yaml directly into the
compiled binary so the leak-detection rules are immutable at runtime and
travel with the executable.
*/
package enforcement

import (
	_ "embed"
)

// LeakPatterns holds the raw byte content of the 'leak_patterns.yaml' file.
//
// The variable is populated at compile time via the Go 'embed' directive.
// Pass these bytes directly to yaml.Unmarshal.
//
//go:embed leak_patterns.yaml
var LeakPatterns []byte
