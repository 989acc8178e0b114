// Package schema provides embedded JSON schemas for aqareport configuration
// files and result records.
package schema

import "embed"

// FS contains the embedded schema files.
//
//go:embed *.schema.json
var FS embed.FS
