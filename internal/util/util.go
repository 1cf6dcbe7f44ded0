// Package util holds the line-splitting helpers shared by the host input
// layer, the command parser and the metric parser.
package util

import "strings"

// ArgSeparator splits a command line into its command and arguments.
const ArgSeparator = "|"

// Unquote strips surrounding double quotes from a host argument and turns
// the host's doubled quotes ("") back into single ones.
func Unquote(s string) string {
	return strings.ReplaceAll(strings.Trim(s, `"`), `""`, `"`)
}

// UnquoteAll applies Unquote to every element of args in place.
func UnquoteAll(args []string) []string {
	for i, a := range args {
		args[i] = Unquote(a)
	}
	return args
}

// SplitCommand splits a raw line such as ":FIRE:|1|0.5" into its command and
// trimmed arguments. A blank line yields an empty command.
func SplitCommand(line string) (string, []string) {
	cmd, rest, found := strings.Cut(strings.TrimSpace(line), ArgSeparator)
	cmd = strings.TrimSpace(cmd)
	if !found {
		if cmd == "" {
			return "", nil
		}
		return cmd, []string{}
	}
	args := strings.Split(rest, ArgSeparator)
	for i := range args {
		args[i] = strings.TrimSpace(args[i])
	}
	return cmd, args
}
