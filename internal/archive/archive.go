// Package archive reads and writes export bundles: JSON Lines files
// holding stored frictions and saved analyses, optionally zstd-compressed.
package archive

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/suykerbuyk/flywheel/internal/friction"
	"github.com/suykerbuyk/flywheel/internal/funnel"
)

// FormatVersion is written in the header line of every bundle.
const FormatVersion = 1

const (
	extJSONL      = ".jsonl"
	extCompressed = ".jsonl.zst"
)

// Line kinds.
const (
	kindHeader   = "header"
	kindFriction = "friction"
	kindAnalysis = "analysis"
)

// Bundle is the content of one export file.
type Bundle struct {
	ExportedAt time.Time
	Frictions  []friction.Record
	Analyses   []funnel.Analysis
}

type line struct {
	Kind       string           `json:"kind"`
	Version    int              `json:"version,omitempty"`
	ExportedAt *time.Time       `json:"exported_at,omitempty"`
	Friction   *friction.Record `json:"friction,omitempty"`
	Analysis   *funnel.Analysis `json:"analysis,omitempty"`
}

// Write encodes b as JSON Lines: one header line, then one line per
// friction and per analysis.
func Write(w io.Writer, b Bundle) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	exported := b.ExportedAt.UTC()
	if err := enc.Encode(line{Kind: kindHeader, Version: FormatVersion, ExportedAt: &exported}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i := range b.Frictions {
		if err := enc.Encode(line{Kind: kindFriction, Friction: &b.Frictions[i]}); err != nil {
			return fmt.Errorf("write friction %s: %w", b.Frictions[i].ID, err)
		}
	}
	for i := range b.Analyses {
		if err := enc.Encode(line{Kind: kindAnalysis, Analysis: &b.Analyses[i]}); err != nil {
			return fmt.Errorf("write analysis %s: %w", b.Analyses[i].ID, err)
		}
	}
	return nil
}

// Read decodes a bundle written by Write. Blank lines are skipped.
// The header must come first and carry a version this build understands.
func Read(r io.Reader) (Bundle, error) {
	var b Bundle
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	lineNo := 0
	sawHeader := false
	for scanner.Scan() {
		lineNo++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		var l line
		if err := json.Unmarshal([]byte(text), &l); err != nil {
			return Bundle{}, fmt.Errorf("line %d: %w", lineNo, err)
		}

		if !sawHeader {
			if l.Kind != kindHeader {
				return Bundle{}, fmt.Errorf("line %d: missing header", lineNo)
			}
			if l.Version > FormatVersion {
				return Bundle{}, fmt.Errorf("line %d: unsupported bundle version %d", lineNo, l.Version)
			}
			if l.ExportedAt != nil {
				b.ExportedAt = *l.ExportedAt
			}
			sawHeader = true
			continue
		}

		switch l.Kind {
		case kindFriction:
			if l.Friction == nil {
				return Bundle{}, fmt.Errorf("line %d: empty friction", lineNo)
			}
			b.Frictions = append(b.Frictions, *l.Friction)
		case kindAnalysis:
			if l.Analysis == nil {
				return Bundle{}, fmt.Errorf("line %d: empty analysis", lineNo)
			}
			b.Analyses = append(b.Analyses, *l.Analysis)
		default:
			return Bundle{}, fmt.Errorf("line %d: unknown kind %q", lineNo, l.Kind)
		}
	}
	if err := scanner.Err(); err != nil {
		return Bundle{}, fmt.Errorf("read bundle: %w", err)
	}
	if !sawHeader {
		return Bundle{}, errors.New("read bundle: empty file")
	}
	return b, nil
}

// ExportFile writes b to path, compressing with zstd when path ends
// in .jsonl.zst. Parent directories are created.
func ExportFile(path string, b Bundle) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}

	dest, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export: %w", err)
	}
	defer dest.Close()

	if !IsCompressed(path) {
		if err := Write(dest, b); err != nil {
			return err
		}
		return dest.Close()
	}

	encoder, err := zstd.NewWriter(dest)
	if err != nil {
		return fmt.Errorf("create zstd encoder: %w", err)
	}

	if err := Write(encoder, b); err != nil {
		encoder.Close()
		return err
	}

	if err := encoder.Close(); err != nil {
		return fmt.Errorf("finalize compression: %w", err)
	}

	return dest.Close()
}

// ImportFile reads a bundle from path, decompressing .jsonl.zst files.
func ImportFile(path string) (Bundle, error) {
	src, err := os.Open(path)
	if err != nil {
		return Bundle{}, fmt.Errorf("open export: %w", err)
	}
	defer src.Close()

	if !IsCompressed(path) {
		return Read(src)
	}

	decoder, err := zstd.NewReader(src)
	if err != nil {
		return Bundle{}, fmt.Errorf("create zstd decoder: %w", err)
	}
	defer decoder.Close()

	return Read(decoder)
}

// IsCompressed reports whether path names a zstd bundle.
func IsCompressed(path string) bool {
	return strings.HasSuffix(path, extCompressed)
}

// ExportPath returns the default export path for a bundle written at t.
func ExportPath(dir string, t time.Time, compress bool) string {
	name := "flywheel-" + t.UTC().Format("20060102-150405")
	if compress {
		return filepath.Join(dir, name+extCompressed)
	}
	return filepath.Join(dir, name+extJSONL)
}
