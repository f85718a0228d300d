package web

import "embed"

// StaticFS embeds the frontend (index.html, scripts and styles).
//
//go:embed static/*
var StaticFS embed.FS
