// Package mpegps implements the L2 MPEG-2 program-stream demultiplexer:
// it parses each 2048-byte sector's pack header, then yields the PES
// packets that follow as bounded bitstreams paired with the sector they
// came from.
package mpegps

import (
	"io"

	"github.com/pkg/errors"

	"dvda/bitio"
)

// AudioStreamID is the PES stream id carrying DVD-Audio payload.
const AudioStreamID = 0xBD

// packSyncWord is the 32-bit pack header sync value.
const packSyncWord = 0x000001BA

// pesStartCode is the 24-bit PES packet start code prefix.
const pesStartCode = 0x000001

// SectorSource is the L1 collaborator: anything that can hand over the
// next fixed-size sector, matching aob.SectorReader's Read method.
type SectorSource interface {
	Read(buf []byte) error
	Tell() int64
}

// Packet is one PES packet payload, tagged with the id of the sector it
// was extracted from.
type Packet struct {
	StreamID    byte
	SectorIndex int64
	Payload     []byte
}

// Demuxer pulls sectors from a SectorSource and yields PES packets.
type Demuxer struct {
	src        SectorSource
	sectorSize int

	cur       []byte // remaining bytes of the current sector, past any consumed packets
	curSector int64
	sectorBuf []byte
}

// New returns a Demuxer reading sectors from src.
func New(src SectorSource, sectorSize int) *Demuxer {
	return &Demuxer{src: src, sectorSize: sectorSize, sectorBuf: make([]byte, sectorSize)}
}

// NextPacket returns the next PES packet in the stream, pulling and
// parsing further sectors as needed. It returns io.EOF once the
// underlying sector source is exhausted.
func (d *Demuxer) NextPacket() (Packet, error) {
	for {
		if len(d.cur) == 0 {
			if err := d.fillSector(); err != nil {
				return Packet{}, err
			}
			continue
		}

		pkt, rest, err := parsePacket(d.cur, d.curSector)
		if err != nil {
			// Any parse error within a sector ends that sector; try
			// the next one.
			d.cur = nil
			continue
		}
		d.cur = rest
		return pkt, nil
	}
}

// NextAudioPacket is a convenience wrapper skipping non-audio packets.
func (d *Demuxer) NextAudioPacket() (int64, []byte, error) {
	for {
		pkt, err := d.NextPacket()
		if err != nil {
			return 0, nil, err
		}
		if pkt.StreamID == AudioStreamID {
			return pkt.SectorIndex, pkt.Payload, nil
		}
	}
}

// fillSector pulls the next sector from the source and parses its pack
// header, leaving d.cur positioned at the first packet header.
func (d *Demuxer) fillSector() error {
	sector := d.curSectorOf()
	if err := d.src.Read(d.sectorBuf); err != nil {
		return err
	}

	r := bitio.NewReader(d.sectorBuf)
	if err := readPackHeader(r); err != nil {
		// Malformed pack header: skip the whole sector and retry on
		// the next Read call.
		d.cur = nil
		d.curSector = sector
		return nil
	}

	rest, err := r.Rest()
	if err != nil {
		d.cur = nil
		return nil
	}
	buf := make([]byte, len(rest))
	copy(buf, rest)
	d.cur = buf
	d.curSector = sector
	return nil
}

func (d *Demuxer) curSectorOf() int64 {
	return d.src.Tell()
}

// readPackHeader parses and validates the MPEG-2 pack header at the
// start of a sector. The sync word and the six marker bits
// must all match, or the header is rejected.
func readPackHeader(r *bitio.Reader) error {
	sync, err := r.ReadBits(32)
	if err != nil {
		return err
	}
	if sync != packSyncWord {
		return errors.New("mpegps: bad pack header sync")
	}

	if err := expectMarker(r, 2, 1); err != nil { // "2?" => expect 0b01
		return err
	}
	if err := r.SkipBits(3); err != nil { // PTS[32..30]
		return err
	}
	if err := expectMarker(r, 1, 1); err != nil {
		return err
	}
	if err := r.SkipBits(15); err != nil { // PTS[29..15]
		return err
	}
	if err := expectMarker(r, 1, 1); err != nil {
		return err
	}
	if err := r.SkipBits(15); err != nil { // PTS[14..0]
		return err
	}
	if err := expectMarker(r, 1, 1); err != nil {
		return err
	}
	if err := r.SkipBits(9); err != nil { // SCR_extension
		return err
	}
	if err := expectMarker(r, 1, 1); err != nil {
		return err
	}
	if err := r.SkipBits(22); err != nil { // bitrate
		return err
	}
	if err := expectMarker(r, 2, 3); err != nil { // "2?" => expect 0b11
		return err
	}
	if err := r.SkipBits(5); err != nil { // reserved
		return err
	}
	stuffing, err := r.ReadBits(3)
	if err != nil {
		return err
	}
	if err := r.SkipBits(int(stuffing) * 8); err != nil {
		return err
	}
	return nil
}

// expectMarker reads n bits and requires them to equal want, per the
// pack header's fixed marker bits.
func expectMarker(r *bitio.Reader, n int, want uint32) error {
	got, err := r.ReadBits(n)
	if err != nil {
		return err
	}
	if got != want {
		return errors.Errorf("mpegps: bad pack header marker bits: got %0*b want %0*b", n, got, n, want)
	}
	return nil
}

// parsePacket parses one packet header plus payload out of the front of
// data, and returns the remaining bytes of the sector. If data is fully
// consumed already it returns io.EOF so fillSector is invoked again.
func parsePacket(data []byte, sector int64) (Packet, []byte, error) {
	if len(data) == 0 {
		return Packet{}, nil, io.EOF
	}
	r := bitio.NewReader(data)

	start, err := r.ReadBits(24)
	if err != nil {
		return Packet{}, nil, err
	}
	if start != pesStartCode {
		return Packet{}, nil, errors.New("mpegps: bad packet start code")
	}
	streamID, err := r.ReadBits(8)
	if err != nil {
		return Packet{}, nil, err
	}
	length, err := r.ReadBits(16)
	if err != nil {
		return Packet{}, nil, err
	}

	if r.BytesRemaining() < int(length) {
		return Packet{}, nil, errors.New("mpegps: short packet payload")
	}

	payload := make([]byte, length)
	if err := r.ReadBytes(payload); err != nil {
		return Packet{}, nil, err
	}

	rest, err := r.Rest()
	if err != nil {
		return Packet{}, nil, err
	}
	restCopy := make([]byte, len(rest))
	copy(restCopy, rest)

	return Packet{StreamID: byte(streamID), SectorIndex: sector, Payload: payload}, restCopy, nil
}
