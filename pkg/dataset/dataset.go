// Package dataset downloads input files and checks them against known md5 digests.
package dataset

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/klauspost/compress/gzip"
	"golang.org/x/sync/errgroup"

	"github.com/dtnitsch/tagcount/models"
	"github.com/dtnitsch/tagcount/pkg/fetcher"
	"github.com/dtnitsch/tagcount/pkg/storage"
)

// ErrChecksumMismatch is returned when downloaded bytes do not match the expected digest.
var ErrChecksumMismatch = errors.New("md5 checksum mismatch")

// Status tells what Ensure did for a dataset.
type Status string

const (
	StatusPresent    Status = "present"
	StatusDownloaded Status = "downloaded"
)

// Result describes one ensured dataset.
type Result struct {
	Name     string        `json:"name" yaml:"name"`
	Path     string        `json:"path" yaml:"path"`
	Status   Status        `json:"status" yaml:"status"`
	Bytes    int64         `json:"bytes" yaml:"bytes"`
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// checksumSuffix names the sidecar that records the archive digest of an
// extracted dataset, since the archive itself is removed.
const checksumSuffix = ".md5"

type Fetcher struct {
	dir     string
	client  *fetcher.Fetcher
	logger  *slog.Logger
	storage *storage.Storage
}

// NewFetcher stores datasets under dir. A nil client gets default retry
// settings and a nil logger discards output.
func NewFetcher(dir string, client *fetcher.Fetcher, logger *slog.Logger) *Fetcher {
	if client == nil {
		client = fetcher.NewFetcher(fetcher.Config{})
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Fetcher{dir: dir, client: client, logger: logger, storage: &storage.Storage{}}
}

// Path is where the usable (extracted, if requested) file lives.
func (f *Fetcher) Path(ds models.Dataset) string {
	return filepath.Join(f.dir, localName(ds))
}

// Paths returns the local paths of every dataset, in order.
func (f *Fetcher) Paths(datasets []models.Dataset) []string {
	paths := make([]string, len(datasets))
	for i, ds := range datasets {
		paths[i] = f.Path(ds)
	}
	return paths
}

func localName(ds models.Dataset) string {
	if ds.Extract && strings.HasSuffix(strings.ToLower(ds.Name), ".gz") {
		return ds.Name[:len(ds.Name)-len(".gz")]
	}
	return ds.Name
}

func extracting(ds models.Dataset) bool {
	return localName(ds) != ds.Name
}

// Ensure makes sure the dataset is present and intact, downloading it when
// it is missing or its digest does not match.
func (f *Fetcher) Ensure(ctx context.Context, ds models.Dataset) (Result, error) {
	start := time.Now()
	result := Result{Name: ds.Name, Path: f.Path(ds)}

	ok, err := f.Intact(ds)
	if err != nil {
		return result, err
	}
	if ok {
		result.Status = StatusPresent
		if st, err := f.storage.GetFileStats(result.Path); err == nil {
			result.Bytes = st.SizeBytes
		}
		f.logger.Info("dataset present", "name", ds.Name, "path", result.Path)
		return result, nil
	}

	f.logger.Info("downloading dataset", "name", ds.Name, "url", ds.URL)
	archive := filepath.Join(f.dir, ds.Name)
	n, err := f.download(ctx, ds, archive)
	if err != nil {
		return result, fmt.Errorf("failed to download %s: %w", ds.Name, err)
	}
	result.Bytes = n

	if extracting(ds) {
		n, err = f.extract(archive, result.Path)
		if err != nil {
			return result, fmt.Errorf("failed to extract %s: %w", ds.Name, err)
		}
		if err := f.storage.SaveFile(result.Path+checksumSuffix, []byte(strings.ToLower(ds.MD5)+"\n")); err != nil {
			return result, err
		}
		result.Bytes = n
	}

	result.Status = StatusDownloaded
	result.Duration = time.Since(start)
	f.logger.Info("dataset ready",
		"name", ds.Name,
		"path", result.Path,
		"size", humanize.Bytes(uint64(result.Bytes)),
		"duration", result.Duration.String())
	return result, nil
}

// Intact reports whether the local copy can be used as is.
func (f *Fetcher) Intact(ds models.Dataset) (bool, error) {
	path := f.Path(ds)
	if !f.storage.HasFile(path) {
		return false, nil
	}
	if ds.MD5 == "" {
		return true, nil
	}
	if extracting(ds) {
		recorded, err := os.ReadFile(path + checksumSuffix)
		if err != nil {
			return false, nil
		}
		return strings.EqualFold(strings.TrimSpace(string(recorded)), ds.MD5), nil
	}
	return VerifyFile(path, ds.MD5)
}

func (f *Fetcher) download(ctx context.Context, ds models.Dataset, dest string) (int64, error) {
	if err := os.MkdirAll(f.dir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create data dir: %w", err)
	}

	resp, err := f.client.Get(ctx, ds.URL)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	tmp, err := os.CreateTemp(f.dir, "."+ds.Name+".*.part")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	hash := md5.New()
	n, err := io.Copy(io.MultiWriter(tmp, hash), resp.Body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return n, fmt.Errorf("failed to write body: %w", err)
	}

	if ds.MD5 != "" {
		if got := hex.EncodeToString(hash.Sum(nil)); !strings.EqualFold(got, ds.MD5) {
			return n, fmt.Errorf("%w: got %s, want %s", ErrChecksumMismatch, got, ds.MD5)
		}
	}
	if err := os.Rename(tmpName, dest); err != nil {
		return n, fmt.Errorf("failed to move download into place: %w", err)
	}
	return n, nil
}

// extract decompresses archive into dest and removes the archive.
func (f *Fetcher) extract(archive, dest string) (int64, error) {
	in, err := os.Open(archive)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	zr, err := gzip.NewReader(in)
	if err != nil {
		return 0, fmt.Errorf("failed to open gzip stream: %w", err)
	}
	defer zr.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*.part")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	n, err := io.Copy(tmp, zr)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return n, fmt.Errorf("failed to decompress: %w", err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		return n, err
	}
	_ = in.Close()
	if err := os.Remove(archive); err != nil {
		return n, fmt.Errorf("failed to remove archive: %w", err)
	}
	return n, nil
}

// EnsureAll ensures every dataset concurrently. Results keep the input order.
func (f *Fetcher) EnsureAll(ctx context.Context, datasets []models.Dataset) ([]Result, error) {
	results := make([]Result, len(datasets))
	g, ctx := errgroup.WithContext(ctx)
	for i, ds := range datasets {
		g.Go(func() error {
			r, err := f.Ensure(ctx, ds)
			results[i] = r
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// VerifyFile reports whether the md5 digest of the file at path equals md5hex.
func VerifyFile(path, md5hex string) (bool, error) {
	file, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	hash := md5.New()
	if _, err := io.Copy(hash, file); err != nil {
		return false, fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return strings.EqualFold(hex.EncodeToString(hash.Sum(nil)), md5hex), nil
}
