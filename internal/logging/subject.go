package logging

import (
	"strconv"
	"strings"
)

// FormatSubject builds the production/step/segment subject string used in console output.
// A negative segment index omits the segment part.
func FormatSubject(productionID, step string, segment int) string {
	productionID = strings.TrimSpace(productionID)
	step = strings.TrimSpace(step)
	parts := make([]string, 0, 3)
	if productionID != "" {
		short := productionID
		if len(short) > 8 {
			short = short[:8]
		}
		parts = append(parts, short)
	}
	if step != "" {
		parts = append(parts, step)
	}
	if segment >= 0 {
		parts = append(parts, "seg "+strconv.Itoa(segment+1))
	}
	return strings.Join(parts, " · ")
}
