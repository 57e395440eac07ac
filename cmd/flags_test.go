package cmd

import (
	"flag"
	"io"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func TestParseArgs(t *testing.T) {
	fs := newFlagSet("get")
	show := fs.Bool("show", false, "")
	category := fs.String("category", "", "")

	rest, err := ParseArgs(fs, []string{"github", "--show", "mail", "--category", "work"})
	if err != nil {
		t.Fatalf("ParseArgs() error = %v", err)
	}
	if diff := cmp.Diff([]string{"github", "mail"}, rest); diff != "" {
		t.Errorf("positional args mismatch (-want +got):\n%s", diff)
	}
	if !*show || *category != "work" {
		t.Errorf("flags not parsed: show=%v category=%q", *show, *category)
	}

	if _, err := ParseArgs(newFlagSet("x"), []string{"--unknown"}); err == nil {
		t.Error("Expected error for unknown flag")
	}
}

func TestEntryFlags(t *testing.T) {
	fs := newFlagSet("edit")
	fields := EntryFlags(fs)

	rest, err := ParseArgs(fs, []string{"3", "--website", "github.com", "--notes", "", "--generate", "24"})
	if err != nil {
		t.Fatalf("ParseArgs() error = %v", err)
	}
	if diff := cmp.Diff([]string{"3"}, rest); diff != "" {
		t.Errorf("positional args mismatch (-want +got):\n%s", diff)
	}

	f := fields()
	if f.Website == nil || *f.Website != "github.com" {
		t.Errorf("Website = %v, want github.com", f.Website)
	}
	if f.Notes == nil || *f.Notes != "" {
		t.Errorf("Notes should be set to empty, got %v", f.Notes)
	}
	if f.Username != nil || f.Category != nil {
		t.Error("Unset fields should be nil")
	}
	if f.Generate != 24 || f.Classes != "all" || f.PromptPassword {
		t.Errorf("unexpected generate options: %+v", f)
	}
}

func TestSettingsFlags(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		autoLock int
		require  *bool
		wantErr  bool
	}{
		{"none", nil, 0, nil, false},
		{"auto-lock", []string{"--auto-lock", "15"}, 15, nil, false},
		{"require false", []string{"--require-password=false"}, 0, new(bool), false},
		{"negative", []string{"--auto-lock", "-1"}, 0, nil, true},
		{"bad bool", []string{"--require-password", "maybe"}, 0, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := newFlagSet("settings")
			settings := SettingsFlags(fs)
			if _, err := ParseArgs(fs, tt.args); err != nil {
				t.Fatalf("ParseArgs() error = %v", err)
			}

			autoLock, require, err := settings()
			if tt.wantErr {
				if err == nil {
					t.Error("Expected error, got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if autoLock != tt.autoLock {
				t.Errorf("autoLock = %d, want %d", autoLock, tt.autoLock)
			}
			if diff := cmp.Diff(tt.require, require); diff != "" {
				t.Errorf("require mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDefaultExportName(t *testing.T) {
	got := DefaultExportName(time.Date(2024, 3, 9, 23, 0, 0, 0, time.UTC))
	if got != "password-manager-export-2024-03-09.json" {
		t.Errorf("DefaultExportName() = %q", got)
	}
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		size int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
	}
	for _, tt := range tests {
		if got := formatSize(tt.size); got != tt.want {
			t.Errorf("formatSize(%d) = %q, want %q", tt.size, got, tt.want)
		}
	}
}

func TestPlural(t *testing.T) {
	if got := plural(1, "y", "ies"); got != "y" {
		t.Errorf("plural(1) = %q", got)
	}
	if got := plural(2, "y", "ies"); got != "ies" {
		t.Errorf("plural(2) = %q", got)
	}
}
