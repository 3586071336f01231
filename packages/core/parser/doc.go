// Package parser reads srcguard suite files.
//
// A suite is a YAML document listing source assertions:
//
//	name: mobile smoke
//	root: ..
//	assertions:
//	  - name: pet detail guard
//	    file: app/index.tsx
//	    contains: "selectedPet && ("
//	    message: pet detail must only render when a pet is selected
//	    tags: [smoke]
//
// Each case names exactly one check: contains, notContains, matches,
// jsonPath (optionally with equals) or schema. Cases may be tagged, skipped
// with a reason, or marked only.
package parser
