package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"dvda/aob"
	"dvda/cppm"
	"dvda/disc"
	"dvda/track"
)

var (
	flagDevice      string
	flagTitleset    int
	flagFirstSector uint32
	flagLastSector  uint32
	flagPTSLength   uint32
)

func init() {
	probeCmd.Flags().StringVar(&flagDevice, "device", "", "optional DVD device path, for CPPM activation")
	probeCmd.Flags().IntVar(&flagTitleset, "titleset", 1, "title set number (1-99)")
	probeCmd.Flags().Uint32Var(&flagFirstSector, "first-sector", 0, "track's first sector (required)")
	probeCmd.Flags().Uint32Var(&flagLastSector, "last-sector", 0, "track's last sector (required)")
	probeCmd.Flags().Uint32Var(&flagPTSLength, "pts-length", 0, "track's PTS length in 90000-tick units (required)")
	_ = probeCmd.MarkFlagRequired("first-sector")
	_ = probeCmd.MarkFlagRequired("last-sector")
	_ = probeCmd.MarkFlagRequired("pts-length")
	rootCmd.AddCommand(probeCmd)
}

// singleTrackNavigator is a disc.Navigator fixture over the one track
// the caller named via flags -- IFO table parsing itself is an external
// collaborator out of scope for this read path.
type singleTrackNavigator struct {
	firstSector, lastSector, ptsLength uint32
}

func (n singleTrackNavigator) TitleCount(titleset int) (int, error) { return 1, nil }
func (n singleTrackNavigator) TrackCount(titleset, title int) (int, error) { return 1, nil }
func (n singleTrackNavigator) TrackRange(titleset, title, trackNum int) (uint32, uint32, uint32, error) {
	return n.firstSector, n.lastSector, n.ptsLength, nil
}

var probeCmd = &cobra.Command{
	Use:                   "probe AUDIO_TS_PATH",
	Short:                 "Open a disc and probe one track's codec and stream parameters",
	Args:                  cobra.ExactArgs(1),
	DisableFlagsInUseLine: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		audioTSPath := args[0]

		nav := singleTrackNavigator{
			firstSector: flagFirstSector,
			lastSector:  flagLastSector,
			ptsLength:   flagPTSLength,
		}

		d, err := disc.OpenDisc(audioTSPath, flagDevice, nav)
		if err != nil {
			return errors.Wrap(err, "opening disc")
		}
		fmt.Printf("disc: %d title set(s)\n", d.TitlesetCount)

		ts, err := disc.OpenTitleset(d, flagTitleset)
		if err != nil {
			return errors.Wrap(err, "opening titleset")
		}
		ti, err := disc.OpenTitle(ts, 1)
		if err != nil {
			return errors.Wrap(err, "opening title")
		}
		tr, err := disc.OpenTrack(ti, 1)
		if err != nil {
			return errors.Wrap(err, "opening track")
		}
		fmt.Printf("track: sectors %d-%d, pts_length=%d\n", tr.FirstSector, tr.LastSector, tr.PTSLength)

		sr, err := aob.Open(audioTSPath, flagDevice, flagTitleset, cppm.Disabled{})
		if err != nil {
			return errors.Wrap(err, "opening sector reader")
		}
		defer sr.Close()

		reader, err := track.Open(sr, tr)
		if err != nil {
			return errors.Wrap(err, "opening track reader")
		}
		defer reader.Close()

		fmt.Printf("codec: %s\n", reader.Codec())
		fmt.Printf("bits_per_sample: %d\n", reader.BitsPerSample())
		fmt.Printf("sample_rate: %d Hz\n", reader.SampleRate())
		fmt.Printf("channels: %d\n", reader.ChannelCount())
		fmt.Printf("riff_wave_channel_mask: 0x%03X\n", reader.RIFFWaveChannelMask())

		total := 0
		buf := make([]int32, 1024*reader.ChannelCount())
		for {
			n, err := reader.Read(1024, buf)
			if err != nil {
				return errors.Wrap(err, "reading frames")
			}
			if n == 0 {
				break
			}
			total += n
		}
		fmt.Printf("frames decoded: %d\n", total)
		return nil
	},
}
