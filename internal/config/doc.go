// Package config loads, normalizes, and validates newscast configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// NEWSCAST_LLM_API_KEY or YOUTUBE_REFRESH_TOKEN. The Config type centralizes
// every knob the CLI needs, from generation fan-out limits to timeline
// composition constants and render polling.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
