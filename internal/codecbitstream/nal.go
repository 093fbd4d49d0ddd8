// SPDX-License-Identifier: AGPL-3.0-or-later
// wivrnd - WiVRn session and transport daemon

// Package codecbitstream classifies H.264 and H.265 Annex-B NAL units
// into the three buckets the shard splitter cares about: codec-specific
// data (SPS/PPS/VPS, sent once and cached for decoder initialization),
// regular frame data, and garbage (AUD, filler) that is stripped before
// shards are ever built.
package codecbitstream

import "errors"

// ErrShortNAL is returned when a byte slice is too short to contain a
// NAL header.
var ErrShortNAL = errors.New("codecbitstream: NAL unit too short")

// Class is the bucket a NAL unit falls into.
type Class int

const (
	ClassGarbage Class = iota
	ClassCSD
	ClassData
)

func (c Class) String() string {
	switch c {
	case ClassCSD:
		return "csd"
	case ClassData:
		return "data"
	default:
		return "garbage"
	}
}

// Codec selects which NAL unit type table to classify against.
type Codec int

const (
	CodecH264 Codec = iota
	CodecH265
)

// H.264 NAL unit types (Rec. ITU-T H.264 Table 7-1).
const (
	h264TypeSlice  = 1
	h264TypeIDR    = 5
	h264TypeSEI    = 6
	h264TypeSPS    = 7
	h264TypePPS    = 8
	h264TypeAUD    = 9
	h264TypeFiller = 12
)

// H.265 NAL unit types (Rec. ITU-T H.265 Table 7-1).
const (
	h265TypeVPS       = 32
	h265TypeSPS       = 33
	h265TypePPS       = 34
	h265TypeAUD       = 35
	h265TypeSEIPrefix = 39
	h265TypeSEISuffix = 40
	h265TypeFiller    = 38
)

// ClassifyH264 classifies a single H.264 NAL unit, nalHeader being the
// one-byte NAL header (start codes and the rest of the payload are not
// needed for classification).
func ClassifyH264(nalHeader byte) Class {
	switch nalHeader & 0x1f {
	case h264TypeSPS, h264TypePPS:
		return ClassCSD
	case h264TypeSlice, h264TypeIDR:
		return ClassData
	case h264TypeAUD, h264TypeFiller, h264TypeSEI:
		return ClassGarbage
	default:
		return ClassGarbage
	}
}

// ClassifyH265 classifies a single H.265 NAL unit. The H.265 NAL header
// is two bytes; the type occupies bits 1-6 of the first byte.
func ClassifyH265(nalHeader [2]byte) Class {
	nalType := (nalHeader[0] >> 1) & 0x3f
	switch nalType {
	case h265TypeVPS, h265TypeSPS, h265TypePPS:
		return ClassCSD
	case h265TypeAUD, h265TypeFiller, h265TypeSEIPrefix, h265TypeSEISuffix:
		return ClassGarbage
	default:
		if nalType <= 31 {
			return ClassData // VCL NAL unit types 0-31
		}
		return ClassGarbage
	}
}

// Classify dispatches to the codec-appropriate classifier. nal must
// include at least the NAL header bytes (1 for H.264, 2 for H.265),
// without any Annex-B start code.
func Classify(codec Codec, nal []byte) (Class, error) {
	switch codec {
	case CodecH264:
		if len(nal) < 1 {
			return ClassGarbage, ErrShortNAL
		}
		return ClassifyH264(nal[0]), nil
	case CodecH265:
		if len(nal) < 2 {
			return ClassGarbage, ErrShortNAL
		}
		return ClassifyH265([2]byte{nal[0], nal[1]}), nil
	default:
		return ClassGarbage, errors.New("codecbitstream: unknown codec")
	}
}

// SplitAnnexB splits an Annex-B byte stream into NAL unit payloads
// (start codes stripped), in stream order.
func SplitAnnexB(stream []byte) [][]byte {
	var nals [][]byte
	starts := findStartCodes(stream)
	for i, start := range starts {
		end := len(stream)
		if i+1 < len(starts) {
			end = starts[i+1].codeStart
		}
		if start.payloadStart >= end {
			continue
		}
		nals = append(nals, stream[start.payloadStart:end])
	}
	return nals
}

type startCode struct {
	codeStart    int
	payloadStart int
}

func findStartCodes(stream []byte) []startCode {
	var out []startCode
	for i := 0; i+2 < len(stream); i++ {
		if stream[i] != 0 || stream[i+1] != 0 {
			continue
		}
		if stream[i+2] == 1 {
			out = append(out, startCode{codeStart: i, payloadStart: i + 3})
			i += 2
			continue
		}
		if i+3 < len(stream) && stream[i+2] == 0 && stream[i+3] == 1 {
			out = append(out, startCode{codeStart: i, payloadStart: i + 4})
			i += 3
		}
	}
	return out
}
