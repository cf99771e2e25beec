// Package providers declares the external collaborators a production talks to
// and holds the HTTP adapters for the news source, speech synthesis and video
// synthesis providers. The script generator lives in providers/llmscript and
// the publish target in providers/youtube.
package providers
