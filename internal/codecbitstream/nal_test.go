// SPDX-License-Identifier: AGPL-3.0-or-later
// wivrnd - WiVRn session and transport daemon

package codecbitstream

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifyH264(t *testing.T) {
	cases := []struct {
		name   string
		header byte
		want   Class
	}{
		{"sps", 0x67, ClassCSD},
		{"pps", 0x68, ClassCSD},
		{"idr", 0x65, ClassData},
		{"slice", 0x41, ClassData},
		{"aud", 0x09, ClassGarbage},
		{"filler", 0x0c, ClassGarbage},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			require.Equal(t, c.want, ClassifyH264(c.header))
		})
	}
}

func TestClassifyH265(t *testing.T) {
	mkHeader := func(nalType byte) [2]byte {
		return [2]byte{nalType << 1, 0}
	}
	cases := []struct {
		name string
		t    byte
		want Class
	}{
		{"vps", 32, ClassCSD},
		{"sps", 33, ClassCSD},
		{"pps", 34, ClassCSD},
		{"idr_w_radl", 19, ClassData},
		{"trail_r", 1, ClassData},
		{"aud", 35, ClassGarbage},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			require.Equal(t, c.want, ClassifyH265(mkHeader(c.t)))
		})
	}
}

func TestClassify_RejectsShortNAL(t *testing.T) {
	_, err := Classify(CodecH264, nil)
	require.ErrorIs(t, err, ErrShortNAL)

	_, err = Classify(CodecH265, []byte{0x20})
	require.ErrorIs(t, err, ErrShortNAL)
}

func TestSplitAnnexB_HandlesThreeAndFourByteStartCodes(t *testing.T) {
	stream := []byte{}
	stream = append(stream, 0, 0, 0, 1, 0x67, 0xAA, 0xBB) // 4-byte start code, SPS
	stream = append(stream, 0, 0, 1, 0x68, 0xCC)          // 3-byte start code, PPS
	stream = append(stream, 0, 0, 1, 0x65, 0xDD, 0xEE)    // IDR

	nals := SplitAnnexB(stream)
	require.Len(t, nals, 3)
	require.Equal(t, []byte{0x67, 0xAA, 0xBB}, nals[0])
	require.Equal(t, []byte{0x68, 0xCC}, nals[1])
	require.Equal(t, []byte{0x65, 0xDD, 0xEE}, nals[2])
}

func TestSplitAnnexB_EmptyStreamYieldsNoNALs(t *testing.T) {
	require.Empty(t, SplitAnnexB(nil))
}
