package wizard

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"newscast/internal/production"
)

var titleCaser = cases.Title(language.English)

// StepLabel returns a human readable label such as "Audio Generate".
func StepLabel(step production.Step) string {
	return titleCaser.String(strings.ReplaceAll(string(step), "_", " "))
}
