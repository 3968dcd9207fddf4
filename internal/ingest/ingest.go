// Package ingest implements the StarDict ingest pipeline (C2): it streams a
// possibly gzip-wrapped .dict file, tokenizes <k>…</k> head-word entries,
// batches them, and drives them into a compressed store.Map.
package ingest

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/ianlewis/go-dictzip"
	"github.com/rs/zerolog"

	"github.com/joshuafuller/dictd/internal/dicterrors"
	"github.com/joshuafuller/dictd/internal/store"
)

// batchSize is the number of entries accumulated before a batch is flushed
// via store.Map.Extend, per spec §4.2.
const batchSize = 1280

// headWordTag matches a <k>…</k> head-word delimiter, discarding an optional
// leading entity reference like "&amp;".
var headWordTag = regexp.MustCompile(`<k>(&.+?;)?(?P<word>.+?)</k>`)

// wordGroup is the index of the "word" submatch within headWordTag.
var wordGroup = headWordTag.SubexpIndex("word")

// Target is anything that accepts batched entries and can be frozen; an
// *store.Map satisfies it.
type Target interface {
	Extend(batch []store.Entry) error
	Finalize() error
}

// LoadFile opens path (transparently decompressing it if the name ends in
// "z", per spec §6) and streams its StarDict entries into target.
func LoadFile(path, dictionary string, target Target, log zerolog.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return &dicterrors.LoadError{Dictionary: dictionary, Path: path, Err: err}
	}
	defer f.Close()

	r, err := openDecompressed(f, path)
	if err != nil {
		return &dicterrors.LoadError{Dictionary: dictionary, Path: path, Err: err}
	}

	n, err := Stream(r, target)
	if err != nil {
		return &dicterrors.LoadError{Dictionary: dictionary, Path: path, Err: err}
	}

	log.Info().Str("dictionary", dictionary).Str("path", path).Int("entries", n).Msg("dictionary loaded")
	return nil
}

// isGzipWrapped reports whether the file name indicates a gzip-compressed
// payload: suffix ending in "z" (e.g. ".dict.dz", ".dict.gz").
func isGzipWrapped(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), "z")
}

// openDecompressed returns a reader over f's content, transparently
// inserting a dictzip or plain gzip decoder when the file name says the
// payload is wrapped.
func openDecompressed(f *os.File, path string) (io.Reader, error) {
	if !isGzipWrapped(path) {
		return f, nil
	}

	if dz, err := dictzip.NewReader(f); err == nil {
		return dz, nil
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek before gzip fallback: %w", err)
	}
	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("open as gzip: %w", err)
	}
	return gz, nil
}

// Stream tokenizes entries out of r and drives them into target, batching
// ~1280 entries per Extend call and calling Finalize once the stream ends.
// It returns the total number of entries ingested.
func Stream(r io.Reader, target Target) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		batch       = make([]store.Entry, 0, batchSize)
		total       int
		havePending bool
		pendingWord string
		pendingDef  strings.Builder
	)

	flushEntry := func() {
		batch = append(batch, store.Entry{
			Word:       pendingWord,
			Definition: []byte(pendingDef.String()),
		})
		total++
		pendingDef.Reset()
	}

	flushBatch := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := target.Extend(batch); err != nil {
			return err
		}
		batch = make([]store.Entry, 0, batchSize)
		return nil
	}

	for scanner.Scan() {
		line := scanner.Text()
		pos := 0

		for _, idx := range headWordTag.FindAllStringSubmatchIndex(line, -1) {
			fullStart, fullEnd := idx[0], idx[1]
			wStart, wEnd := idx[2*wordGroup], idx[2*wordGroup+1]

			// Text before this tag belongs to the currently pending word's
			// definition (same line, no line-boundary \n yet).
			if havePending {
				pendingDef.WriteString(line[pos:fullStart])
				flushEntry()
			}

			havePending = true
			pendingWord = line[wStart:wEnd]
			pos = fullEnd
		}

		remainder := line[pos:]
		if havePending {
			trimmed := dropDanglingTag(remainder)
			pendingDef.WriteString(trimmed)
			// Only count this as a complete line (and append its
			// terminator) if it wasn't cut short by a dangling tag; a
			// truncated line is corrupt and must not leave a blank line
			// behind in the still-open definition.
			if trimmed == remainder {
				pendingDef.WriteString("\n")
			}
		}
		// Text on a line with no <k> ever seen yet is discarded, per the
		// "bytes before the first <k> are discarded" rule.

		if len(batch) >= batchSize {
			if err := flushBatch(); err != nil {
				return total, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return total, err
	}

	if havePending {
		flushEntry()
	}
	if err := flushBatch(); err != nil {
		return total, err
	}

	if err := target.Finalize(); err != nil {
		return total, err
	}
	return total, nil
}

// dropDanglingTag truncates s at an unclosed "<k" fragment, so a head-word
// tag split across a stream boundary (or truncated by EOF) is silently
// discarded instead of leaking its raw markup into the previous
// definition.
func dropDanglingTag(s string) string {
	if i := strings.Index(s, "<k"); i >= 0 && !strings.Contains(s[i:], "</k>") {
		return s[:i]
	}
	return s
}
