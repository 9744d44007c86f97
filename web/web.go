// Package web holds the browser client served at / and /static.
package web

import "embed"

//go:embed static
var StaticFiles embed.FS
