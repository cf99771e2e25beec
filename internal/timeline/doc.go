// Package timeline converts ordered, render-ready segments into a
// renderer-agnostic Spec of z-ordered tracks and clip placements.
//
// The base video track is chained so that each clip starts where the previous
// one ends minus the transition overlap; the total duration is therefore the
// sum of clip lengths minus (n-1) transitions. Every overlay (lower thirds,
// name plates, date badge, live indicator, ticker, subtitles) derives its
// time range from the base clips, so overlays never outlive or precede the
// clip they annotate. A Spec is a disposable artifact recomputed from segment
// data; it is never persisted as the source of truth.
package timeline
