package web

import (
	"embed"
)

// staticFiles holds the booth page and its assets, compiled into the binary.
//
//go:embed static/*
var staticFiles embed.FS
