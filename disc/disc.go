// Package disc implements the public navigation surface of the read
// path: Disc, Titleset, Title, and Track, plus open_disc and
// the open_titleset/open_title/open_track chain. IFO parsing (the
// title/track table itself) is an external collaborator supplied by the
// caller through the Navigator interface; this package only validates
// the one piece of the filesystem layout that is explicitly in scope,
// the AUDIO_TS.IFO AMG magic and titleset count.
package disc

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// amgMagic is the ASCII magic stored at offset 0 of AUDIO_TS.IFO.
const amgMagic = "DVDAUDIO-AMG"

// titlesetCountOffset is the fixed byte offset of the title-set count in
// AUDIO_TS.IFO. The IFO's own internal table-of-contents layout places a
// one-byte title-set count immediately after the 12-byte magic and a
// reserved run of zero bytes used for the volume/version fields that
// this read path never interprets.
const titlesetCountOffset = 63

// Disc is a rooted AUDIO_TS tree: it owns the path strings and the
// title-set count probed from AUDIO_TS.IFO. Navigation below a Disc
// (titles, tracks, sector ranges) comes from the caller-supplied
// Navigator; ATS IFO table parsing lives outside this library.
type Disc struct {
	AudioTSPath   string
	DevicePath    string
	TitlesetCount int
	Nav           Navigator
}

// Navigator supplies the title/track table that OpenDisc itself does not
// parse. A real implementation reads ATS_NN_0.IFO; tests can supply a
// fixed table directly.
type Navigator interface {
	// TitleCount returns the number of titles in titleset n (1-99).
	TitleCount(titleset int) (int, error)
	// TrackCount returns the number of tracks in title t of titleset n.
	TrackCount(titleset, title int) (int, error)
	// TrackRange returns the sector range and PTS length of track k
	// (1-based) within title t of titleset n.
	TrackRange(titleset, title, track int) (firstSector, lastSector, ptsLength uint32, err error)
}

// OpenDisc validates the AMG magic and returns a Disc carrying the
// probed title-set count. devicePath may be empty; it is only consulted
// later, by aob.Open, for CPPM activation.
func OpenDisc(audioTSPath, devicePath string, nav Navigator) (*Disc, error) {
	ifoPath, err := findCaseInsensitive(audioTSPath, "AUDIO_TS.IFO")
	if err != nil {
		return nil, errors.Wrap(ErrNotFound, "disc: AUDIO_TS.IFO")
	}

	data, err := os.ReadFile(ifoPath)
	if err != nil {
		return nil, errors.Wrap(ErrNotFound, "disc: reading AUDIO_TS.IFO")
	}
	if len(data) <= titlesetCountOffset || string(data[:len(amgMagic)]) != amgMagic {
		return nil, errors.Wrap(ErrMalformedContainer, "disc: AUDIO_TS.IFO magic mismatch")
	}

	return &Disc{
		AudioTSPath:   audioTSPath,
		DevicePath:    devicePath,
		TitlesetCount: int(data[titlesetCountOffset]),
		Nav:           nav,
	}, nil
}

// Titleset is one 1..99 title set within a Disc.
type Titleset struct {
	Disc   *Disc
	Number int
}

// OpenTitleset returns titleset n (1-based) of d, validated against the
// probed title-set count.
func OpenTitleset(d *Disc, n int) (*Titleset, error) {
	if n < 1 || n > d.TitlesetCount {
		return nil, errors.Wrapf(ErrNotFound, "disc: titleset %d out of range 1-%d", n, d.TitlesetCount)
	}
	return &Titleset{Disc: d, Number: n}, nil
}

// TitleCount returns the number of titles in this title set, per the
// caller-supplied Navigator.
func (ts *Titleset) TitleCount() (int, error) {
	return ts.Disc.Nav.TitleCount(ts.Number)
}

// Title is one title within a Titleset.
type Title struct {
	Titleset *Titleset
	Number   int
}

// TrackCount returns the number of tracks in this title, per the
// caller-supplied Navigator.
func (t *Title) TrackCount() (int, error) {
	return t.Titleset.Disc.Nav.TrackCount(t.Titleset.Number, t.Number)
}

// OpenTitle returns title n (1-based) of ts, validated through ts.Disc.Nav.
func OpenTitle(ts *Titleset, n int) (*Title, error) {
	count, err := ts.Disc.Nav.TitleCount(ts.Number)
	if err != nil {
		return nil, errors.Wrap(err, "disc: reading title count")
	}
	if n < 1 || n > count {
		return nil, errors.Wrapf(ErrNotFound, "disc: title %d out of range 1-%d", n, count)
	}
	return &Title{Titleset: ts, Number: n}, nil
}

// Track is one track within a Title, carrying the sector range and
// PTS-derived frame-count bound that track.Open needs.
type Track struct {
	Title       *Title
	Number      int
	FirstSector uint32
	LastSector  uint32
	PTSLength   uint32
}

// OpenTrack returns track n (1-based) of t, validated through
// t.Titleset.Disc.Nav, with its sector range and PTS length resolved.
func OpenTrack(t *Title, n int) (*Track, error) {
	ts := t.Titleset
	count, err := ts.Disc.Nav.TrackCount(ts.Number, t.Number)
	if err != nil {
		return nil, errors.Wrap(err, "disc: reading track count")
	}
	if n < 1 || n > count {
		return nil, errors.Wrapf(ErrNotFound, "disc: track %d out of range 1-%d", n, count)
	}

	first, last, pts, err := ts.Disc.Nav.TrackRange(ts.Number, t.Number, n)
	if err != nil {
		return nil, errors.Wrap(err, "disc: reading track range")
	}
	if first > last {
		return nil, errors.Wrapf(ErrMalformedContainer, "disc: track %d first_sector %d > last_sector %d", n, first, last)
	}

	return &Track{
		Title:       t,
		Number:      n,
		FirstSector: first,
		LastSector:  last,
		PTSLength:   pts,
	}, nil
}

// findCaseInsensitive locates name within dir under ASCII case-folding;
// DVD-A filenames vary in case depending on how the disc was mounted.
func findCaseInsensitive(dir, name string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	want := strings.ToUpper(name)
	for _, e := range entries {
		if strings.ToUpper(e.Name()) == want {
			return filepath.Join(dir, e.Name()), nil
		}
	}
	return "", os.ErrNotExist
}
