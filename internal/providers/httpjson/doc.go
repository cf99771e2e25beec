// Package httpjson is the retrying JSON-over-HTTP client shared by the news,
// speech, video and render adapters. Requests are retried on 408, 429, 5xx and
// network timeouts with capped exponential backoff, honoring Retry-After.
package httpjson
