package rocket

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/zstd"
)

// Rocket editor sessions historically saved tracks as one ".track" file per
// track, plain-text and uncompressed; a long timeline with many tracks adds
// up, so SaveTracks/LoadTracks wrap the same line format in a compressor.
// zstd is the default (fast, good ratio); bzip2 is accepted on load for
// archives saved by older tooling that preferred it.
type Codec int

const (
	CodecZstd Codec = iota
	CodecBzip2
)

// SaveTracks serializes every track in d, compressed with codec, to w. The
// format is one line per key across all tracks: "<track> <row> <value>
// <interp>", sorted by track name then row, so a diff between two saves is
// meaningful.
func (d *Device) SaveTracks(w io.Writer, codec Codec) error {
	var cw io.WriteCloser
	switch codec {
	case CodecZstd:
		enc, err := zstd.NewWriter(w)
		if err != nil {
			return fmt.Errorf("rocket: zstd writer: %w", err)
		}
		cw = enc
	case CodecBzip2:
		enc, err := bzip2.NewWriter(w, &bzip2.WriterConfig{Level: bzip2.DefaultCompression})
		if err != nil {
			return fmt.Errorf("rocket: bzip2 writer: %w", err)
		}
		cw = enc
	default:
		return fmt.Errorf("rocket: unknown codec %d", codec)
	}

	tracks := d.Tracks()
	sort.Slice(tracks, func(i, j int) bool { return tracks[i].Name < tracks[j].Name })

	bw := bufio.NewWriter(cw)
	for _, t := range tracks {
		for _, k := range t.Keys() {
			fmt.Fprintf(bw, "%s %d %g %d\n", t.Name, k.Row, k.Value, k.Type)
		}
	}
	if err := bw.Flush(); err != nil {
		cw.Close()
		return fmt.Errorf("rocket: flushing track save: %w", err)
	}
	return cw.Close()
}

// LoadTracks reads a SaveTracks-produced stream, compressed with codec, and
// populates d's tracks (creating any not already present). Existing keys at
// the same row are overwritten.
func (d *Device) LoadTracks(r io.Reader, codec Codec) error {
	var cr io.Reader
	switch codec {
	case CodecZstd:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return fmt.Errorf("rocket: zstd reader: %w", err)
		}
		defer dec.Close()
		cr = dec
	case CodecBzip2:
		dec, err := bzip2.NewReader(r, nil)
		if err != nil {
			return fmt.Errorf("rocket: bzip2 reader: %w", err)
		}
		defer dec.Close()
		cr = dec
	default:
		return fmt.Errorf("rocket: unknown codec %d", codec)
	}

	scanner := bufio.NewScanner(cr)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 4 {
			return fmt.Errorf("rocket: malformed track line %q", line)
		}

		row, err := strconv.Atoi(fields[1])
		if err != nil {
			return fmt.Errorf("rocket: malformed row in %q: %w", line, err)
		}
		value, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return fmt.Errorf("rocket: malformed value in %q: %w", line, err)
		}
		interp, err := strconv.Atoi(fields[3])
		if err != nil {
			return fmt.Errorf("rocket: malformed interp in %q: %w", line, err)
		}

		d.Track(fields[0]).SetKey(row, value, InterpType(interp))
	}
	return scanner.Err()
}
