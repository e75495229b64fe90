// Package docbuild builds declarative document trees and emits them
// as structured text. A Tree is assembled with Set and Child calls,
// optionally carries {{VAR}} placeholders in its string leaves, and
// renders to YAML or JSON.
//
// It is an independent utility with no interaction with the
// publication workflow.
package docbuild
