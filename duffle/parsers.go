package duffle

import "strings"

// parseLines splits stdout on newlines, trims each line, and drops
// blank ones. This is the only structured output shape the tool
// produces that this layer understands; everything else is discarded.
func parseLines(stdout string) []string {
	var lines []string
	for _, line := range strings.Split(stdout, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}
