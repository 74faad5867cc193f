package analytics

import (
	"errors"
	"reflect"
	"testing"
)

func TestWordFrequency(t *testing.T) {
	tests := []struct {
		name   string
		record string
		want   map[string]int64
	}{
		{
			name:   "empty record",
			record: "",
			want:   map[string]int64{},
		},
		{
			name:   "whitespace only",
			record: " \t\n  ",
			want:   map[string]int64{},
		},
		{
			name:   "repeated tokens are not clamped",
			record: "a a #x",
			want:   map[string]int64{"a": 2, "#x": 1},
		},
		{
			name:   "case sensitive",
			record: "Go go GO go",
			want:   map[string]int64{"Go": 1, "go": 2, "GO": 1},
		},
		{
			name:   "mixed whitespace runs",
			record: "one\ttwo\n\none  two",
			want:   map[string]int64{"one": 2, "two": 2},
		},
		{
			name:   "punctuation stays attached",
			record: "hello, hello world!",
			want:   map[string]int64{"hello,": 1, "hello": 1, "world!": 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WordFrequency(tt.record)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("WordFrequency(%q) = %v, want %v", tt.record, got, tt.want)
			}
		})
	}
}

func TestAccumulate_AddsToExisting(t *testing.T) {
	dst := map[string]int64{"a": 5}
	Accumulate(dst, "a b")
	Accumulate(dst, "b")

	want := map[string]int64{"a": 6, "b": 2}
	if !reflect.DeepEqual(dst, want) {
		t.Errorf("Accumulate() = %v, want %v", dst, want)
	}
}

func TestTokenize(t *testing.T) {
	got := Tokenize("  #covid19   vaccine news ")
	want := []string{"#covid19", "vaccine", "news"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize() = %q, want %q", got, want)
	}
}

func TestClassifier(t *testing.T) {
	def := Classifier{}
	at, err := NewClassifier("@")
	if err != nil {
		t.Fatalf("NewClassifier(@) error = %v", err)
	}

	tests := []struct {
		name       string
		classifier Classifier
		token      string
		want       Category
	}{
		{"default marker tag", def, "#x", Tag},
		{"default marker word", def, "x#", Word},
		{"bare marker is a tag", def, "#", Tag},
		{"custom marker tag", at, "@user", Tag},
		{"custom marker ignores hash", at, "#x", Word},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.classifier.Classify(tt.token); got != tt.want {
				t.Errorf("Classify(%q) = %v, want %v", tt.token, got, tt.want)
			}
			if !tt.classifier.Is(tt.want)(tt.token) {
				t.Errorf("Is(%v)(%q) = false, want true", tt.want, tt.token)
			}
		})
	}
}

func TestNewClassifier_RejectsBadMarkers(t *testing.T) {
	for _, marker := range []string{"", "##", "ab", "\xff"} {
		if _, err := NewClassifier(marker); !errors.Is(err, ErrInvalidMarker) {
			t.Errorf("NewClassifier(%q) error = %v, want ErrInvalidMarker", marker, err)
		}
	}

	c, err := NewClassifier("ß")
	if err != nil {
		t.Fatalf("NewClassifier(multi-byte rune) error = %v", err)
	}
	if c.Marker() != "ß" {
		t.Errorf("Marker() = %q, want %q", c.Marker(), "ß")
	}
}

func TestParseCategory(t *testing.T) {
	for in, want := range map[string]Category{"word": Word, "Tags": Tag, " hashtag ": Tag} {
		got, err := ParseCategory(in)
		if err != nil || got != want {
			t.Errorf("ParseCategory(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseCategory("emoji"); err == nil {
		t.Error("ParseCategory(emoji) expected error")
	}
	if Tag.String() != "tag" || Word.String() != "word" {
		t.Errorf("String() = %q/%q", Tag.String(), Word.String())
	}
}
