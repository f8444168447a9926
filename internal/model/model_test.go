package model

import (
	"errors"
	"testing"
)

func TestParseSubject(t *testing.T) {
	tests := []struct {
		in      string
		want    Subject
		wantErr bool
	}{
		{"vocabulary", SubjectVocabulary, false},
		{"Arithmetic", SubjectArithmetic, false},
		{" characters ", SubjectCharacters, false},
		{"english", SubjectVocabulary, false},
		{"math", SubjectArithmetic, false},
		{"chinese", SubjectCharacters, false},
		{"music", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSubject(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownSubject) {
					t.Fatalf("ParseSubject(%q) error = %v, want ErrUnknownSubject", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseSubject(%q): %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseSubject(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestTraitsOf(t *testing.T) {
	for _, s := range Subjects {
		if _, err := TraitsOf(s); err != nil {
			t.Errorf("TraitsOf(%q): %v", s, err)
		}
	}
	if _, err := TraitsOf("music"); !errors.Is(err, ErrUnknownSubject) {
		t.Errorf("TraitsOf(music) error = %v, want ErrUnknownSubject", err)
	}

	vocab, _ := TraitsOf(SubjectVocabulary)
	if !vocab.Categorized || vocab.PromptTarget == nil {
		t.Error("vocabulary should be categorized and pronounceable")
	}
	arith, _ := TraitsOf(SubjectArithmetic)
	if arith.Categorized || arith.PromptTarget != nil || arith.ItemSpeech != nil {
		t.Error("arithmetic should be flat and never pronounced")
	}
	chars, _ := TraitsOf(SubjectCharacters)
	if !chars.Categorized || chars.PromptTarget != nil {
		t.Error("characters should be categorized without prompt pronunciation")
	}
}

func TestFirstLatinWord(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"Apple 的中文意思是？", "Apple"},
		{"🍊 对应的英文是？", ""},
		{"草莓 的英文是？", ""},
		{"Which is Cat or Dog?", "Which"},
		{"x1y", "x"},
		{"“Bus”", "Bus"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := FirstLatinWord(tt.text); got != tt.want {
			t.Errorf("FirstLatinWord(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestIsLatinWord(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"Orange", true},
		{"苹果", false},
		{"Ice cream", false},
		{"", false},
		{"A1", false},
	}
	for _, tt := range tests {
		if got := IsLatinWord(tt.text); got != tt.want {
			t.Errorf("IsLatinWord(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestCategoryLabel(t *testing.T) {
	if got := (LessonItem{Category: "fruit"}).CategoryLabel(); got != "fruit" {
		t.Errorf("CategoryLabel() = %q, want fruit", got)
	}
	if got := (LessonItem{}).CategoryLabel(); got != UncategorizedLabel {
		t.Errorf("CategoryLabel() = %q, want %q", got, UncategorizedLabel)
	}
}
