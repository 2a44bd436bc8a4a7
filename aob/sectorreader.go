// Package aob implements the L1 sector reader: it presents the
// concatenation of a title set's ATS_XX_1.AOB .. ATS_XX_9.AOB files as a
// single seekable sequence of fixed-size 2048-byte sectors, with an
// optional CPPM descrambling pass over every sector successfully read.
package aob

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"dvda/cppm"
	"dvda/disc"
)

// SectorSize is the fixed size of every DVD-Audio sector.
const SectorSize = 2048

// aobCount is the maximum AOB index (ATS_XX_1.AOB .. ATS_XX_9.AOB).
const aobCount = 9

// aobFile is one opened AOB file and its sector count.
type aobFile struct {
	name    string
	sectors int64
}

// SectorReader reads sectors across the sequence of AOB files belonging
// to one title set, closing each file eagerly once reading has moved
// past it.
type SectorReader struct {
	dir   string
	files []aobFile

	cur       int // index into files of the currently open file
	f         *os.File
	nextSect  int64 // global index of the next sector to read
	totalSect int64

	descrambler cppm.Descrambler
}

// Open opens the sequence of AOB files for titleset n (1-99) under the
// given AUDIO_TS directory, stopping at the first missing AOB number.
// Filename lookup is case-insensitive to tolerate discs commonly mounted
// via ISO9660 with variable case.
//
// descrambler, if non-nil, is the CPPM collaborator to try to activate
// when devicePath is non-empty and AUDIO_TS/DVDAUDIO.MKB exists; on a
// successful Init every sector read is passed through it before being
// returned. Pass nil (or cppm.Disabled{}) when no CPPM support is wired.
func Open(audioTSPath string, devicePath string, titleset int, descrambler cppm.Descrambler) (*SectorReader, error) {
	if titleset < 1 || titleset > 99 {
		return nil, errors.Errorf("aob: titleset %d out of range 1-99", titleset)
	}

	entries, err := readDirFold(audioTSPath)
	if err != nil {
		return nil, errors.Wrap(err, "aob: reading AUDIO_TS directory")
	}

	sr := &SectorReader{dir: audioTSPath, descrambler: cppm.Disabled{}}
	if descrambler == nil {
		descrambler = cppm.Disabled{}
	}

	for n := 1; n <= aobCount; n++ {
		want := fmt.Sprintf("ATS_%02d_%d.AOB", titleset, n)
		actual, ok := entries[strings.ToUpper(want)]
		if !ok {
			break
		}
		full := filepath.Join(audioTSPath, actual)
		info, err := os.Stat(full)
		if err != nil {
			break
		}
		if info.Size()%SectorSize != 0 {
			return nil, errors.Errorf("aob: %s size %d is not a multiple of %d", actual, info.Size(), SectorSize)
		}
		sr.files = append(sr.files, aobFile{name: full, sectors: info.Size() / SectorSize})
		sr.totalSect += info.Size() / SectorSize
	}

	if len(sr.files) == 0 {
		return nil, errors.Wrapf(disc.ErrNotFound, "aob: no AOB files found for titleset %d", titleset)
	}

	if mkbPath, ok := entries["DVDAUDIO.MKB"]; ok && devicePath != "" {
		mkb, err := os.ReadFile(filepath.Join(audioTSPath, mkbPath))
		if err == nil && descrambler.Init(devicePath, mkb) {
			sr.descrambler = descrambler
		}
	}

	if err := sr.openFile(0); err != nil {
		return nil, err
	}
	return sr, nil
}

func (sr *SectorReader) openFile(index int) error {
	if sr.f != nil {
		sr.f.Close()
		sr.f = nil
	}
	if index >= len(sr.files) {
		sr.f = nil
		sr.cur = index
		return nil
	}
	f, err := os.Open(sr.files[index].name)
	if err != nil {
		return errors.Wrapf(err, "aob: opening %s", sr.files[index].name)
	}
	sr.f = f
	sr.cur = index
	return nil
}

// TotalSectors returns the number of sectors across every AOB in the
// title set.
func (sr *SectorReader) TotalSectors() int64 {
	return sr.totalSect
}

// Tell returns the global index of the next sector to be read.
func (sr *SectorReader) Tell() int64 {
	return sr.nextSect
}

// Seek positions the reader at the given global sector index. It fails
// if the index is past the end of the title set.
func (sr *SectorReader) Seek(sector int64) error {
	if sector < 0 || sector > sr.totalSect {
		return errors.Errorf("aob: seek to sector %d past end (%d total)", sector, sr.totalSect)
	}

	remaining := sector
	for i, af := range sr.files {
		if remaining <= af.sectors {
			if i != sr.cur {
				if err := sr.openFile(i); err != nil {
					return err
				}
			}
			if sr.f != nil {
				if _, err := sr.f.Seek(remaining*SectorSize, io.SeekStart); err != nil {
					return errors.Wrap(err, "aob: seeking within AOB")
				}
			}
			sr.nextSect = sector
			return nil
		}
		remaining -= af.sectors
	}

	// sector == totalSect: positioned exactly at end of stream.
	if err := sr.openFile(len(sr.files)); err != nil {
		return err
	}
	sr.nextSect = sector
	return nil
}

// Read reads the next 2048-byte sector into buf, which must be exactly
// SectorSize bytes. It returns io.EOF once every AOB has been exhausted.
func (sr *SectorReader) Read(buf []byte) error {
	if len(buf) != SectorSize {
		return errors.Errorf("aob: Read buffer must be %d bytes, got %d", SectorSize, len(buf))
	}

	for {
		if sr.f == nil {
			return io.EOF
		}

		n, err := io.ReadFull(sr.f, buf)
		if err == nil && n == SectorSize {
			sr.nextSect++
			if sr.descrambler != nil {
				sr.descrambler.DescrambleSector(buf)
			}
			return nil
		}

		// EOF, ErrUnexpectedEOF (partial sector), or any other read
		// error on the current file: treat as end of this AOB and
		// advance to the next one.
		if advErr := sr.openFile(sr.cur + 1); advErr != nil {
			return advErr
		}
		if sr.f == nil {
			return io.EOF
		}
	}
}

// Close releases the currently open AOB file handle, if any.
func (sr *SectorReader) Close() error {
	if sr.f != nil {
		err := sr.f.Close()
		sr.f = nil
		return err
	}
	return nil
}

// readDirFold lists a directory and returns a map from ASCII-uppercased
// name to the actual on-disk name, so lookups can be done
// case-insensitively without re-scanning the directory per filename.
func readDirFold(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	index := make(map[string]string, len(entries))
	for _, e := range entries {
		index[strings.ToUpper(e.Name())] = e.Name()
	}
	return index, nil
}
