package core

import (
	"errors"
	"strings"
	"testing"
)

func TestCreateLineDiff_SingleFieldChange(t *testing.T) {
	local := "website: example.com\nusername: alice\npassword: one\n"
	incoming := "website: example.com\nusername: alice\npassword: two\n"

	result := string(createLineDiff(local, incoming))

	if !strings.Contains(result, "website: example.com\n") {
		t.Error("Result should contain unchanged website line")
	}
	if !strings.Contains(result, "<<<<<<< vault") {
		t.Error("Result should contain vault marker")
	}
	if !strings.Contains(result, ">>>>>>> import") {
		t.Error("Result should contain import marker")
	}
	if !strings.Contains(result, "password: one") || !strings.Contains(result, "password: two") {
		t.Errorf("Result should contain both versions, got:\n%s", result)
	}
	if strings.Count(result, "website: example.com") != 1 {
		t.Error("Common lines should appear once")
	}
}

func TestCreateLineDiff_Identical(t *testing.T) {
	content := "website: example.com\nusername: alice\n"

	result := string(createLineDiff(content, content))

	if strings.Contains(result, "<<<<<<<") || strings.Contains(result, ">>>>>>>") {
		t.Error("Identical content should not have conflict markers")
	}
	if result != content {
		t.Errorf("Identical content should pass through.\nGot: %q\nWant: %q", result, content)
	}
}

func TestCreateLineDiff_MultipleChanges(t *testing.T) {
	local := "a\nb\nc\nd\ne\n"
	incoming := "a\nB\nc\nD\ne\n"

	result := string(createLineDiff(local, incoming))

	if count := strings.Count(result, "<<<<<<< vault"); count != 2 {
		t.Errorf("Expected 2 conflict sections, got %d", count)
	}
}

func TestPrefixedDiff(t *testing.T) {
	if got := prefixedDiff("same\n", "same\n"); got != "" {
		t.Errorf("prefixedDiff of equal input = %q, want empty", got)
	}

	got := prefixedDiff("a\nb\n", "a\nc\n")
	want := " a\n-b\n+c\n"
	if got != want {
		t.Errorf("prefixedDiff() = %q, want %q", got, want)
	}

	got = prefixedDiff("", "x\ny\n")
	if got != "+x\n+y\n" {
		t.Errorf("prefixedDiff() for new entry = %q", got)
	}
}

func TestConflictDiff_MasksSecrets(t *testing.T) {
	c := Conflict{
		Local:    Entry{Website: "example.com", Username: "alice", Secret: "hunter2", Category: "other"},
		Incoming: Entry{Website: "example.com", Username: "alice", Secret: "correct horse", Category: "other"},
	}

	masked := string(ConflictDiff(c, false))
	if strings.Contains(masked, "hunter2") || strings.Contains(masked, "correct horse") {
		t.Errorf("masked diff leaks a secret:\n%s", masked)
	}
	if !strings.Contains(masked, "(changed)") {
		t.Errorf("masked diff should flag the changed secret:\n%s", masked)
	}

	revealed := string(ConflictDiff(c, true))
	if !strings.Contains(revealed, "hunter2") || !strings.Contains(revealed, "correct horse") {
		t.Errorf("revealed diff should show both secrets:\n%s", revealed)
	}
}

func TestResolveConflict(t *testing.T) {
	c := Conflict{Local: Entry{Website: "example.com"}, Incoming: Entry{Website: "example.com"}}

	tests := []struct {
		strategy ConflictStrategy
		want     Resolution
	}{
		{StrategyKeepLocal, ResolutionKeepLocal},
		{StrategyUseImport, ResolutionUseImport},
		{StrategyKeepBoth, ResolutionKeepBoth},
	}
	for _, tt := range tests {
		t.Run(tt.strategy.String(), func(t *testing.T) {
			got, err := resolveConflict(c, tt.strategy, nil)
			if err != nil {
				t.Fatalf("resolveConflict() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("resolveConflict() = %v, want %v", got, tt.want)
			}
		})
	}

	if _, err := resolveConflict(c, StrategyAbort, nil); !errors.Is(err, ErrImportAborted) {
		t.Errorf("abort strategy error = %v, want ErrImportAborted", err)
	}
	if _, err := resolveConflict(c, StrategyAsk, nil); !errors.Is(err, ErrImportAborted) {
		t.Errorf("ask without resolver error = %v, want ErrImportAborted", err)
	}

	asked := false
	got, err := resolveConflict(c, StrategyAsk, func(Conflict) (Resolution, error) {
		asked = true
		return ResolutionKeepBoth, nil
	})
	if err != nil || got != ResolutionKeepBoth || !asked {
		t.Errorf("ask strategy = %v, %v (asked %v)", got, err, asked)
	}
}

func TestParseStrategy(t *testing.T) {
	for strategy, name := range strategyNames {
		got, err := ParseStrategy(strings.ToUpper(name))
		if err != nil {
			t.Fatalf("ParseStrategy(%q) error = %v", name, err)
		}
		if got != strategy {
			t.Errorf("ParseStrategy(%q) = %v, want %v", name, got, strategy)
		}
	}

	if _, err := ParseStrategy("overwrite"); err == nil {
		t.Error("ParseStrategy should reject unknown names")
	}
}
