package exporter

import (
	"fmt"
)

// formatFloat renders a float with exactly 2 decimal places, so 13.4
// exports as 13.40 in every report artifact.
func formatFloat(f float64) string {
	return fmt.Sprintf("%.2f", f)
}
