package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

type checkKind int

const (
	checkInfo checkKind = iota
	checkOK
	checkError
)

const (
	ansiReset = "\x1b[0m"
	ansiRed   = "\x1b[31m"
	ansiGreen = "\x1b[32m"
	ansiBlue  = "\x1b[34m"
)

const (
	checkLabelWidth = 24
	checkIndent     = "  "
)

func renderCheckLine(label string, kind checkKind, detail string, colorize bool) string {
	statusText := fmt.Sprintf("[%s]", checkKindLabel(kind))
	if detail != "" {
		statusText = fmt.Sprintf("%s %s", statusText, detail)
	}
	base := fmt.Sprintf("%s%-*s %s", checkIndent, checkLabelWidth, label+":", statusText)
	if colorize {
		if color := checkKindColor(kind); color != "" {
			return color + base + ansiReset
		}
	}
	return base
}

func checkKindLabel(kind checkKind) string {
	switch kind {
	case checkOK:
		return "OK"
	case checkError:
		return "FAILED"
	default:
		return "INFO"
	}
}

func checkKindColor(kind checkKind) string {
	switch kind {
	case checkOK:
		return ansiGreen
	case checkError:
		return ansiRed
	case checkInfo:
		return ansiBlue
	default:
		return ""
	}
}

func renderSectionHeader(title string, colorize bool) string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	if colorize {
		return ansiBlue + line + ansiReset
	}
	return line
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
