package level

import (
	"errors"
	"fmt"
	"io"
	"os"

	"multickpt/internal/ckptfile"
	"multickpt/internal/digest"
)

// bodyReadSize is the fixed read size spec section 4.7 names for
// re-hashing a candidate file's data region: "fixed-size reads (128 KiB
// chunks)".
const bodyReadSize = 128 << 10

// Discover walks dir (non-recursively; one LEVEL_DIR per spec section 6)
// and returns every filename that parses as a candidate, regardless of
// kind. Callers filter by kind and target rank.
func Discover(dir string) ([]Candidate, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("level: read dir %s: %w", dir, err)
	}
	var out []Candidate
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		c, ok := parseFileName(e.Name())
		if !ok {
			continue
		}
		c.Path = dir + string(os.PathSeparator) + e.Name()
		out = append(out, c)
	}
	return out, nil
}

// validated is the result of validating one candidate file.
type validated struct {
	Candidate
	Meta FileMetaView
	Err  error // nil, errMissingFile (possibly wrapped), ckptfile.ErrHeaderCorrupt, or ckptfile.ErrDataCorrupt
}

// FileMetaView re-exports the subset of ckptfile.FileMeta the scanner
// needs, so callers outside ckptfile don't need that package's full
// surface just to read a scan result.
type FileMetaView struct {
	Checksum string
	Fs       int64
	PtFs     int64
	MaxFs    int64
}

// validate implements spec section 4.7's per-candidate checks: stat +
// regular + size, header self-hash, and whole-file checksum re-hash.
// Parity files carry FileMeta at the end of the file instead of the
// start (spec section 6).
func validate(c Candidate) validated {
	f, err := os.Open(c.Path)
	if err != nil {
		return validated{Candidate: c, Err: fmt.Errorf("%w: %v", errMissingFile, err)}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return validated{Candidate: c, Err: fmt.Errorf("%w: %v", errMissingFile, err)}
	}
	if !info.Mode().IsRegular() || info.Size() <= ckptfile.MetaBytes {
		return validated{Candidate: c, Err: errMissingFile}
	}

	var metaOff, bodyOff, bodyLen int64
	if c.Kind == KindParity {
		metaOff = info.Size() - ckptfile.MetaBytes
		bodyOff = 0
		bodyLen = metaOff
	} else {
		metaOff = 0
		bodyOff = ckptfile.MetaBytes
	}

	metaBuf := make([]byte, ckptfile.MetaBytes)
	if _, err := f.ReadAt(metaBuf, metaOff); err != nil {
		return validated{Candidate: c, Err: fmt.Errorf("%w: %v", errMissingFile, err)}
	}
	meta, err := ckptfile.Decode(metaBuf)
	if err != nil {
		return validated{Candidate: c, Err: fmt.Errorf("%w: %v", ckptfile.ErrHeaderCorrupt, err)}
	}
	if err := ckptfile.Validate(meta); err != nil {
		return validated{Candidate: c, Err: err}
	}

	if c.Kind != KindParity {
		bodyLen = meta.Fs - ckptfile.MetaBytes
	}
	if bodyLen < 0 {
		return validated{Candidate: c, Err: ckptfile.ErrHeaderCorrupt}
	}

	sum, err := rehashBody(f, bodyOff, bodyLen)
	if err != nil {
		return validated{Candidate: c, Err: fmt.Errorf("%w: %v", errMissingFile, err)}
	}
	if sum != meta.Checksum {
		return validated{Candidate: c, Err: ckptfile.ErrDataCorrupt}
	}

	return validated{
		Candidate: c,
		Meta: FileMetaView{
			Checksum: meta.Checksum,
			Fs:       meta.Fs,
			PtFs:     meta.PtFs,
			MaxFs:    meta.MaxFs,
		},
	}
}

func rehashBody(f *os.File, off, length int64) (string, error) {
	d := digest.New()
	buf := make([]byte, bodyReadSize)
	remaining := length
	cursor := off
	for remaining > 0 {
		n := int64(len(buf))
		if n > remaining {
			n = remaining
		}
		read, err := f.ReadAt(buf[:n], cursor)
		if err != nil && err != io.EOF {
			return "", err
		}
		if int64(read) < n {
			return "", io.ErrUnexpectedEOF
		}
		d.Update(buf[:n])
		cursor += n
		remaining -= n
	}
	return digest.HexString(d.Finalize()), nil
}

func classify(err error) reasonCode {
	switch {
	case err == nil:
		return reasonOK
	case errors.Is(err, ckptfile.ErrHeaderCorrupt):
		return reasonHeaderCorrupt
	case errors.Is(err, ckptfile.ErrDataCorrupt):
		return reasonDataCorrupt
	default:
		return reasonMissing
	}
}
