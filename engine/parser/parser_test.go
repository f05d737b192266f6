package parser

import (
	"errors"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Command
	}{
		// Empty / whitespace
		{
			name:  "empty string",
			input: "",
			want:  Command{},
		},
		{
			name:  "whitespace only",
			input: "   ",
			want:  Command{},
		},

		// Ticks
		{
			name:  "tick defaults to one",
			input: "tick",
			want:  Command{Verb: "tick", N: 1},
		},
		{
			name:  "tick n",
			input: "tick 40",
			want:  Command{Verb: "tick", N: 40, HasN: true},
		},
		{
			name:  "t alias",
			input: "t 3",
			want:  Command{Verb: "tick", N: 3, HasN: true},
		},
		{
			name:  "run seconds",
			input: "run 2.5",
			want:  Command{Verb: "run", Seconds: 2.5},
		},

		// Mouse
		{
			name:  "click",
			input: "click 120 45.5",
			want:  Command{Verb: "click", X: 120, Y: 45.5},
		},
		{
			name:  "rc alias",
			input: "RC 1 2",
			want:  Command{Verb: "rclick", X: 1, Y: 2},
		},
		{
			name:  "move",
			input: "move 10 -4",
			want:  Command{Verb: "move", X: 10, Y: -4},
		},

		// Keyboard
		{
			name:  "key down",
			input: "key 32",
			want:  Command{Verb: "key", N: 32, HasN: true},
		},
		{
			name:  "key up",
			input: "key 32 UP",
			want:  Command{Verb: "key", N: 32, HasN: true, Up: true},
		},

		// Names
		{
			name:  "carry object",
			input: "carry lamp",
			want:  Command{Verb: "carry", Name: "lamp"},
		},
		{
			name:  "carry nothing",
			input: "carry",
			want:  Command{Verb: "carry"},
		},
		{
			name:  "scene keeps case",
			input: "scene Cellar",
			want:  Command{Verb: "scene", Name: "Cellar"},
		},
		{
			name:  "p alias",
			input: "p hero",
			want:  Command{Verb: "personage", Name: "hero"},
		},
		{
			name:  "mark root",
			input: "mark intro -1",
			want:  Command{Verb: "mark", Name: "intro", ID: -1},
		},
		{
			name:  "chains",
			input: "chains",
			want:  Command{Verb: "chains"},
		},

		// Meta
		{
			name:  "save default slot",
			input: "/save",
			want:  Command{Verb: "/save"},
		},
		{
			name:  "load slot",
			input: "/l 3",
			want:  Command{Verb: "/load", N: 3, HasN: true},
		},
		{
			name:  "help alias",
			input: "?",
			want:  Command{Verb: "/help"},
		},
		{
			name:  "exit alias",
			input: "/exit",
			want:  Command{Verb: "/quit"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q) returned error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		input string
		want  error
	}{
		{"dance", ErrUnknownCommand},
		{"tick x", ErrUsage},
		{"tick -2", ErrUsage},
		{"tick 1 2", ErrUsage},
		{"run 0", ErrUsage},
		{"click 10", ErrUsage},
		{"click a b", ErrUsage},
		{"key 32 down", ErrUsage},
		{"scene", ErrUsage},
		{"mark intro x", ErrUsage},
		{"chains all", ErrUsage},
		{"/save one", ErrUsage},
	}
	for _, tt := range tests {
		_, err := Parse(tt.input)
		if !errors.Is(err, tt.want) {
			t.Errorf("Parse(%q): expected %v, got %v", tt.input, tt.want, err)
		}
	}

	_, err := Parse("click 10")
	if err == nil || !strings.Contains(err.Error(), "click <x> <y>") {
		t.Errorf("expected the usage line in the error, got %v", err)
	}
}

func TestHelp(t *testing.T) {
	lines := Help()
	if len(lines) != len(verbs) {
		t.Fatalf("expected %d usage lines, got %d", len(verbs), len(lines))
	}
	for i := 1; i < len(lines); i++ {
		if lines[i] < lines[i-1] {
			t.Errorf("expected sorted help, %q before %q", lines[i-1], lines[i])
		}
	}
}
