// Package common holds enums shared by the configuration and the compiler
// packages, so neither has to import the other.
package common

// Output formatting of compiled stylesheets.
// ENUM(nested, expanded, compact, compressed)
type OutputStyle int
