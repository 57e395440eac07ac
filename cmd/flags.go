package cmd

import (
	"flag"
	"fmt"
	"strconv"
)

// ParseArgs parses fs allowing flags before and after positional
// arguments, and returns the positional ones.
func ParseArgs(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		args = fs.Args()
		if len(args) == 0 {
			return positional, nil
		}
		positional = append(positional, args[0])
		args = args[1:]
	}
}

// EntryFlags registers the entry field flags on fs. The returned function
// reads them after parsing; fields whose flag was not given stay nil.
func EntryFlags(fs *flag.FlagSet) func() EntryFields {
	website := fs.String("website", "", "Website or service name")
	username := fs.String("username", "", "Username or email")
	category := fs.String("category", "", "Category (default \"other\")")
	notes := fs.String("notes", "", "Notes")
	generate := fs.Int("generate", 0, "Generate a password of this length")
	classes := fs.String("classes", "all", "Character classes for --generate: lower,upper,digit,symbol")
	password := fs.Bool("password", false, "Prompt for a new password")

	return func() EntryFields {
		f := EntryFields{
			Generate:       *generate,
			Classes:        *classes,
			PromptPassword: *password,
		}
		fs.Visit(func(fl *flag.Flag) {
			switch fl.Name {
			case "website":
				f.Website = website
			case "username":
				f.Username = username
			case "category":
				f.Category = category
			case "notes":
				f.Notes = notes
			}
		})
		return f
	}
}

// SettingsFlags registers --auto-lock and --require-password on fs.
func SettingsFlags(fs *flag.FlagSet) func() (int, *bool, error) {
	autoLock := fs.Int("auto-lock", 0, "Auto-lock after this many idle minutes")
	require := fs.String("require-password", "", "Require the master password (true|false)")

	return func() (int, *bool, error) {
		if *autoLock < 0 {
			return 0, nil, fmt.Errorf("--auto-lock must be positive")
		}
		if *require == "" {
			return *autoLock, nil, nil
		}
		b, err := strconv.ParseBool(*require)
		if err != nil {
			return 0, nil, fmt.Errorf("--require-password must be true or false")
		}
		return *autoLock, &b, nil
	}
}
