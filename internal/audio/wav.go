// Package audio accumulates a session's audio by concatenating WAV chunks.
// Chunks arrive from the telephony edge and can be truncated or corrupt;
// merging skips bad chunks instead of failing the session.
package audio

import (
	"encoding/binary"
	"log/slog"
	"os"

	"github.com/voicesentinel/voicesentinel/internal/errors"
)

var ErrNoValidChunks = errors.NewSentinel("no valid audio chunks to merge")

const riffHeaderSize = 12

// wavChunk is the decoded payload of a single WAV file.
type wavChunk struct {
	format []byte
	data   []byte
}

// Merge concatenates the PCM frames of the given WAV files into dst, using
// the format header of the first readable chunk. Unreadable or malformed
// chunks are skipped and logged; Merge fails only when no chunk was usable.
func Merge(logger *slog.Logger, dst string, chunkPaths []string) error {
	var (
		format []byte
		frames []byte
	)

	for _, path := range chunkPaths {
		chunk, err := readWAV(path)
		if err != nil {
			logger.Warn("skipping malformed audio chunk", slog.String("chunk", path), errors.SlogError(err))
			continue
		}
		if format == nil {
			format = chunk.format
		}
		frames = append(frames, chunk.data...)
	}

	if format == nil {
		return errors.Wrap(ErrNoValidChunks, "merge audio", slog.String("dst", dst))
	}

	return writeWAV(dst, format, frames)
}

// readWAV extracts the fmt and data sub-chunks of a RIFF/WAVE file.
func readWAV(path string) (*wavChunk, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read chunk file")
	}
	if len(raw) < riffHeaderSize || string(raw[0:4]) != "RIFF" || string(raw[8:12]) != "WAVE" {
		return nil, errors.New("not a RIFF/WAVE file")
	}

	var chunk wavChunk
	offset := riffHeaderSize
	for offset+8 <= len(raw) {
		id := string(raw[offset : offset+4])
		size := int(binary.LittleEndian.Uint32(raw[offset+4 : offset+8]))
		body := offset + 8
		if size < 0 || body+size > len(raw) {
			return nil, errors.New("truncated sub-chunk", slog.String("id", id))
		}
		switch id {
		case "fmt ":
			chunk.format = raw[body : body+size]
		case "data":
			chunk.data = raw[body : body+size]
		}
		// Sub-chunks are word-aligned.
		offset = body + size + size%2
	}

	if chunk.format == nil || chunk.data == nil {
		return nil, errors.New("missing fmt or data sub-chunk")
	}
	return &chunk, nil
}

// writeWAV assembles a minimal RIFF/WAVE file from a fmt sub-chunk and raw
// PCM frames.
func writeWAV(path string, format, frames []byte) error {
	size := 4 + (8 + len(format)) + (8 + len(frames))
	out := make([]byte, 0, 8+size)

	out = append(out, "RIFF"...)
	out = binary.LittleEndian.AppendUint32(out, uint32(size))
	out = append(out, "WAVE"...)

	out = append(out, "fmt "...)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(format)))
	out = append(out, format...)

	out = append(out, "data"...)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(frames)))
	out = append(out, frames...)

	if err := os.WriteFile(path, out, 0o600); err != nil {
		return errors.Wrap(err, "write merged audio")
	}
	return nil
}
