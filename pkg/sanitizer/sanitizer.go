package sanitizer

import (
	"regexp"
	"strings"
)

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

var (
	reKeepLettersDigits = regexp.MustCompile(`[^0-9\p{L}]+`)
	reTrimUnderscores   = regexp.MustCompile(`_+`)
	reBlankLines        = regexp.MustCompile(`\n{3,}`)
)

func trimAndLower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func collapseUnderscores(s string) string {
	s = reTrimUnderscores.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}

func NormalizeBedType(input string) string {
	p := Pipeline{
		trimAndLower,
		func(s string) string { return reKeepLettersDigits.ReplaceAllString(s, "_") },
		collapseUnderscores,
	}
	return p.Apply(input)
}

func NormalizeDescription(input string) string {
	input = strings.ReplaceAll(input, "\r\n", "\n")
	lines := strings.Split(input, "\n")
	for i, line := range lines {
		lines[i] = TrimAndNormalize(line)
	}
	p := Pipeline{
		func(s string) string { return reBlankLines.ReplaceAllString(s, "\n\n") },
		strings.TrimSpace,
	}
	return p.Apply(strings.Join(lines, "\n"))
}

func NormalizeID(id string) string {
	return trimAndLower(id)
}
