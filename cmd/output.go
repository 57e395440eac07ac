package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
)

var (
	successColor = color.New(color.FgGreen)
	errorColor   = color.New(color.FgRed)
	warningColor = color.New(color.FgYellow)
	infoColor    = color.New(color.FgCyan)
	boldColor    = color.New(color.Bold)
	dimColor     = color.New(color.Faint)
)

// stdin is shared by line prompts and the interactive shell.
var stdin = bufio.NewReader(os.Stdin)

// Success prints a success message in green.
func Success(format string, a ...any) {
	successColor.Fprintf(os.Stdout, "✓ "+format+"\n", a...)
}

// Warning prints a warning message in yellow to stderr.
func Warning(format string, a ...any) {
	warningColor.Fprintf(os.Stderr, "warning: "+format+"\n", a...)
}

// Info prints an info message in cyan.
func Info(format string, a ...any) {
	infoColor.Fprintf(os.Stdout, format+"\n", a...)
}

// Bold returns text in bold.
func Bold(format string, a ...any) string {
	return boldColor.Sprintf(format, a...)
}

// Dim returns text in dim/faint style.
func Dim(format string, a ...any) string {
	return dimColor.Sprintf(format, a...)
}

// PrintKeyValue prints a key-value pair with the key highlighted.
func PrintKeyValue(key, value string) {
	fmt.Printf("%s %s\n", boldColor.Sprintf("%-14s", key+":"), value)
}

// readLine prompts for a single line of input.
func readLine(prompt string) (string, error) {
	fmt.Print(prompt)
	line, err := stdin.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// readLineDefault prompts for a line and returns def when it is empty.
func readLineDefault(prompt, def string) (string, error) {
	if def != "" {
		prompt = fmt.Sprintf("%s [%s]: ", prompt, def)
	} else {
		prompt += ": "
	}
	line, err := readLine(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(line) == "" {
		return def, nil
	}
	return line, nil
}

// PromptConfirm asks for user confirmation and returns true if confirmed.
func PromptConfirm(message string) bool {
	response, err := readLine(message + " [y/N]: ")
	if err != nil {
		return false
	}
	response = strings.ToLower(strings.TrimSpace(response))
	return response == "y" || response == "yes"
}

// labelColor picks a color for a strength label.
func labelColor(label string) *color.Color {
	switch label {
	case "strong", "good":
		return successColor
	case "fair":
		return warningColor
	default:
		return errorColor
	}
}
