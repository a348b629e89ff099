package analyzer

import "regexp"

const redirectSource = "redirect"

// redirectPattern matches > or >> followed by a quoted or bare target.
var redirectPattern = regexp.MustCompile(`>{1,2}\s*(?:"([^"]+)"|'([^']+)'|([^\s;|&>]+))`)

// scanRedirects returns every output redirect target in command. It reads the
// whole command text, so targets are found whatever command writes to them.
func scanRedirects(command string) []string {
	matches := redirectPattern.FindAllStringSubmatch(command, -1)
	targets := make([]string, 0, len(matches))
	for _, match := range matches {
		for _, group := range match[1:] {
			if group != "" {
				targets = append(targets, group)
				break
			}
		}
	}
	return targets
}
