package ingest

import (
	"testing"

	"github.com/pemistahl/lingua-go"
)

func TestParseLanguage(t *testing.T) {
	tests := []struct {
		in      string
		want    lingua.Language
		wantErr bool
	}{
		{"english", lingua.English, false},
		{"EN", lingua.English, false},
		{" de ", lingua.German, false},
		{"Spanish", lingua.Spanish, false},
		{"klingon", lingua.Unknown, true},
	}
	for _, tt := range tests {
		got, err := ParseLanguage(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseLanguage(%q) = %v, %v; want %v, wantErr %v", tt.in, got, err, tt.want, tt.wantErr)
		}
	}
}

func TestLanguageFilter(t *testing.T) {
	filter, err := NewLanguageFilter([]string{"en"})
	if err != nil {
		t.Fatalf("NewLanguageFilter() error = %v", err)
	}

	records := []string{
		"The health organization published new guidance for hospitals and families today",
		"Die Gesundheitsorganisation hat heute neue Empfehlungen für Krankenhäuser veröffentlicht",
		"Stay home and wash your hands to protect the people you love",
	}
	kept, dropped := filter.Apply(records)
	if dropped != 1 {
		t.Errorf("Apply() dropped = %d, want 1", dropped)
	}
	if len(kept) != 2 || kept[0] != records[0] || kept[1] != records[2] {
		t.Errorf("Apply() kept = %q", kept)
	}
}

func TestNewLanguageFilter_Errors(t *testing.T) {
	if _, err := NewLanguageFilter(nil); err == nil {
		t.Error("NewLanguageFilter(nil) expected error")
	}
	if _, err := NewLanguageFilter([]string{"en", "zz-not-a-language"}); err == nil {
		t.Error("NewLanguageFilter(unknown) expected error")
	}
}
