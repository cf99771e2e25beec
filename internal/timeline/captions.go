package timeline

import "strings"

// Caption is one subtitle chunk relative to the start of its segment.
type Caption struct {
	Text   string
	Offset float64
	Length float64
}

// ChunkText splits text on word boundaries into chunks of at most maxChars characters.
// A single word longer than maxChars becomes its own chunk.
func ChunkText(text string, maxChars int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if maxChars <= 0 {
		return []string{strings.Join(words, " ")}
	}
	var chunks []string
	var current strings.Builder
	for _, word := range words {
		if current.Len() > 0 && current.Len()+1+len(word) > maxChars {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

// Captions chunks text and gives each chunk words/wordsPerSecond seconds, chained from
// offset 0. When the chunks would overrun window they are scaled down to fit it.
func Captions(text string, window float64, opts Options) []Caption {
	chunks := ChunkText(text, opts.CaptionMaxChars)
	if len(chunks) == 0 || window <= 0 {
		return nil
	}
	wps := opts.WordsPerSecond
	if wps <= 0 {
		wps = 1
	}
	lengths := make([]float64, len(chunks))
	var total float64
	for i, chunk := range chunks {
		lengths[i] = float64(len(strings.Fields(chunk))) / wps
		total += lengths[i]
	}
	scale := 1.0
	if total > window {
		scale = window / total
	}

	captions := make([]Caption, len(chunks))
	offset := 0.0
	for i, chunk := range chunks {
		length := lengths[i] * scale
		captions[i] = Caption{Text: chunk, Offset: round(offset), Length: round(length)}
		offset += length
	}
	// Rounding must not push the last caption past the window.
	last := &captions[len(captions)-1]
	if last.Offset+last.Length > window {
		last.Length = round(window - last.Offset)
	}
	return captions
}
