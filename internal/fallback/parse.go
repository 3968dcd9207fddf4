package fallback

import "strings"

// Definitions extracts the definition bodies out of a successful DEFINE
// transcript (terminal status line starting with '2'). Each "151 ..."
// header begins one definition block; the block ends at a line whose sole
// content is ".". Lines inside the block are rejoined with "\n", matching
// the body format internal/store hands back for local dictionaries.
func Definitions(lines []string) []string {
	var defs []string
	var body []string
	inBlock := false

	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "151 "):
			inBlock = true
			body = body[:0]
		case inBlock && line == ".":
			defs = append(defs, strings.Join(body, "\n")+"\n")
			inBlock = false
		case inBlock:
			body = append(body, line)
		}
	}
	return defs
}

// Succeeded reports whether a DEFINE transcript's terminal status line
// indicates success (a "2xx" code) rather than failure ("5xx").
func Succeeded(lines []string) bool {
	if len(lines) == 0 {
		return false
	}
	return lines[len(lines)-1][0] == '2'
}
