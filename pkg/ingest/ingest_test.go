package ingest

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
)

func TestReadCSV(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		opts      CSVOptions
		want      []string
		wantStats Stats
	}{
		{
			name:      "text column only",
			input:     "user,text\nann,hello #world\nbob,second tweet\n",
			opts:      CSVOptions{TextColumn: "text"},
			want:      []string{"hello #world", "second tweet"},
			wantStats: Stats{Rows: 2},
		},
		{
			name:      "duplicate ids keep first position and last value",
			input:     "id_str,text\n1,first\n2,other\n1,replaced\n",
			opts:      CSVOptions{TextColumn: "text", IDColumn: "id_str"},
			want:      []string{"replaced", "other"},
			wantStats: Stats{Rows: 3, Duplicates: 1},
		},
		{
			name:      "missing id column disables dedupe",
			input:     "text\nsame\nsame\n",
			opts:      CSVOptions{IDColumn: "id_str"},
			want:      []string{"same", "same"},
			wantStats: Stats{Rows: 2},
		},
		{
			name:      "utf-8 bom on header",
			input:     "\ufefftext\nbom ok\n",
			want:      []string{"bom ok"},
			wantStats: Stats{Rows: 1},
		},
		{
			name:      "invalid utf-8 rejected",
			input:     "text\ngood\nbad \xff row\n",
			want:      []string{"good"},
			wantStats: Stats{Rows: 2, Rejected: 1},
		},
		{
			name:      "literal replacement character kept",
			input:     "text\nunknown \ufffd glyph\n",
			want:      []string{"unknown \ufffd glyph"},
			wantStats: Stats{Rows: 1},
		},
		{
			name:      "invalid utf-8 after bom rejected",
			input:     "\ufefftext\nok\n\xc3\x28\n",
			want:      []string{"ok"},
			wantStats: Stats{Rows: 2, Rejected: 1},
		},
		{
			name:      "short row rejected",
			input:     "id,text\n1\n2,kept\n",
			want:      []string{"kept"},
			wantStats: Stats{Rows: 2, Rejected: 1},
		},
		{
			name:      "quoted newlines stay in one record",
			input:     "text\n\"line one\nline two\"\n",
			want:      []string{"line one\nline two"},
			wantStats: Stats{Rows: 1},
		},
		{
			name:      "semicolon separated",
			input:     "text;lang\nbonjour;fr\n",
			opts:      CSVOptions{Comma: ';'},
			want:      []string{"bonjour"},
			wantStats: Stats{Rows: 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, stats, err := ReadCSV(strings.NewReader(tt.input), tt.opts)
			if err != nil {
				t.Fatalf("ReadCSV() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ReadCSV() records = %q, want %q", got, tt.want)
			}
			if stats != tt.wantStats {
				t.Errorf("ReadCSV() stats = %+v, want %+v", stats, tt.wantStats)
			}
		})
	}
}

func TestReadCSV_MissingTextColumn(t *testing.T) {
	_, _, err := ReadCSV(strings.NewReader("id,body\n1,x\n"), CSVOptions{TextColumn: "text"})
	if !errors.Is(err, ErrColumnNotFound) {
		t.Errorf("ReadCSV() error = %v, want ErrColumnNotFound", err)
	}
	_, _, err = ReadCSV(strings.NewReader(""), CSVOptions{})
	if !errors.Is(err, ErrColumnNotFound) {
		t.Errorf("ReadCSV(empty) error = %v, want ErrColumnNotFound", err)
	}
}

func TestReadLines(t *testing.T) {
	got, stats, err := ReadLines(strings.NewReader("a a #x\r\na #x #x\n\nb\n"))
	if err != nil {
		t.Fatalf("ReadLines() error = %v", err)
	}
	want := []string{"a a #x", "a #x #x", "", "b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ReadLines() = %q, want %q", got, want)
	}
	if stats.Rows != 4 || stats.Rejected != 0 {
		t.Errorf("ReadLines() stats = %+v", stats)
	}
}

func TestReadLines_InvalidUTF8(t *testing.T) {
	got, stats, err := ReadLines(strings.NewReader("keep \ufffd\ndrop \xff\n"))
	if err != nil {
		t.Fatalf("ReadLines() error = %v", err)
	}
	if want := []string{"keep \ufffd"}; !reflect.DeepEqual(got, want) {
		t.Errorf("ReadLines() = %q, want %q", got, want)
	}
	if stats.Rows != 2 || stats.Rejected != 1 {
		t.Errorf("ReadLines() stats = %+v, want 2 rows, 1 rejected", stats)
	}
}

func TestReadHTML_Selector(t *testing.T) {
	page := `<html><body>
<p>First   paragraph #go</p>
<div class="tweet">not selected</div>
<p>   </p>
<p>Second <b>bold</b> one</p>
</body></html>`

	got, err := ReadHTML(strings.NewReader(page), HTMLOptions{})
	if err != nil {
		t.Fatalf("ReadHTML() error = %v", err)
	}
	want := []string{"First paragraph #go", "Second bold one"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ReadHTML() = %q, want %q", got, want)
	}

	got, err = ReadHTML(strings.NewReader(page), HTMLOptions{Selector: "div.tweet"})
	if err != nil {
		t.Fatalf("ReadHTML(div.tweet) error = %v", err)
	}
	if want := []string{"not selected"}; !reflect.DeepEqual(got, want) {
		t.Errorf("ReadHTML(div.tweet) = %q, want %q", got, want)
	}
}

func TestReadHTML_Readability(t *testing.T) {
	var body strings.Builder
	body.WriteString("<html><head><title>Counting tags</title></head><body><nav>menu</nav><article>")
	for i := 0; i < 8; i++ {
		body.WriteString("<p>Hashtags like #covid19 and #health were counted across many tweets, and the totals were merged by every worker in the pool.</p>")
	}
	body.WriteString("</article></body></html>")

	got, err := ReadHTML(strings.NewReader(body.String()), HTMLOptions{Readability: true})
	if err != nil {
		t.Fatalf("ReadHTML(readability) error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("ReadHTML(readability) returned %d records, want 1", len(got))
	}
	if !strings.Contains(got[0], "#covid19") {
		t.Errorf("article text missing content: %q", got[0])
	}
}

func TestDetectFormat(t *testing.T) {
	tests := map[string]Format{
		"data/full_who_dataset1.csv": FormatCSV,
		"data/a.CSV.gz":              FormatCSV,
		"x.tsv":                      FormatTSV,
		"page.htm":                   FormatHTML,
		"page.html.gz":               FormatHTML,
		"tweets.txt":                 FormatLines,
		"noext":                      FormatLines,
	}
	for path, want := range tests {
		if got := DetectFormat(path); got != want {
			t.Errorf("DetectFormat(%q) = %q, want %q", path, got, want)
		}
	}
}

func writeGzip(t *testing.T, path, content string) {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "tweets.csv")
	gzPath := filepath.Join(dir, "more.tsv.gz")
	txtPath := filepath.Join(dir, "lines.txt")

	if err := os.WriteFile(csvPath, []byte("id_str,text\n1,a a #x\n1,a a #x\n"), 0644); err != nil {
		t.Fatal(err)
	}
	writeGzip(t, gzPath, "id_str\ttext\n2\ta #x #x\n")
	if err := os.WriteFile(txtPath, []byte("b\n"), 0644); err != nil {
		t.Fatal(err)
	}

	corpus, err := Load(context.Background(), []string{csvPath, gzPath, txtPath}, Options{
		CSV: CSVOptions{TextColumn: "text", IDColumn: "id_str"},
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := []string{"a a #x", "a #x #x", "b"}
	if !reflect.DeepEqual(corpus.Records, want) {
		t.Errorf("Load() records = %q, want %q", corpus.Records, want)
	}
	if corpus.Stats.Files != 3 || corpus.Stats.Rows != 4 || corpus.Stats.Duplicates != 1 {
		t.Errorf("Load() stats = %+v", corpus.Stats)
	}
	if corpus.Stats.Bytes == 0 {
		t.Error("Load() stats.Bytes = 0")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(context.Background(), []string{filepath.Join(t.TempDir(), "gone.csv")}, Options{})
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load() error = %v, want os.ErrNotExist", err)
	}
}

func TestLoad_Empty(t *testing.T) {
	corpus, err := Load(context.Background(), nil, Options{})
	if err != nil {
		t.Fatalf("Load(nil) error = %v", err)
	}
	if len(corpus.Records) != 0 {
		t.Errorf("Load(nil) records = %q", corpus.Records)
	}
}
