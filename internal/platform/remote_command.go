package platform

import (
	"path"
	"strings"
)

// quoteArg single-quotes s for a POSIX shell. Embedded quotes close the
// quoted run, emit an escaped quote and reopen it.
func quoteArg(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// shellCommand appends quoted operands to prefix, which is the literal
// command and its flags.
func shellCommand(prefix string, args ...string) string {
	var b strings.Builder
	b.WriteString(prefix)
	for _, a := range args {
		b.WriteByte(' ')
		b.WriteString(quoteArg(a))
	}
	return b.String()
}

func safeRune(c rune) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' ||
		c == '-' || c == '_' || c == '.' || c == '/'
}

// kernelPath reports whether p may be read on a remote host: a clean
// absolute path below /proc or /sys made of safe characters. Since ':'
// is excluded, grep -H output splits unambiguously on the first colon.
func kernelPath(p string) bool {
	if !strings.HasPrefix(p, "/proc/") && !strings.HasPrefix(p, "/sys/") {
		return false
	}
	if path.Clean(p) != p {
		return false
	}
	return strings.IndexFunc(p, func(c rune) bool { return !safeRune(c) }) < 0
}

// sysctlName reports whether name is a dotted MIB name such as
// "hw.perflevel0.physicalcpu".
func sysctlName(name string) bool {
	if name == "" || name[0] == '.' || name[len(name)-1] == '.' || strings.Contains(name, "..") {
		return false
	}
	return strings.IndexFunc(name, func(c rune) bool { return c == '/' || c == '-' || !safeRune(c) }) < 0
}
