// SDPF (Subdivision Patch File) writer and reader.
package formats

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Faultbox/subd-patches/pkg/encoding"
	"github.com/Faultbox/subd-patches/pkg/subd"
)

// SDPF format errors.
var (
	ErrInvalidPatchMagic       = errors.New("invalid patch file magic: expected 'SDPF'")
	ErrUnsupportedPatchVersion = errors.New("unsupported patch file version")
	ErrTruncatedPatchData      = errors.New("truncated patch file data")
)

const (
	patchMagic     = "SDPF"
	subsetNameSize = 64

	patchHeaderSize  = 20
	subsetRecordSize = subsetNameSize + 16
	patchRecordSize  = 8 + 4*subd.MaxPointCount
)

// PatchVersion represents the SDPF file version.
type PatchVersion struct {
	Major uint8
	Minor uint8
}

// CurrentPatchVersion is the version written by WritePatchFile.
var CurrentPatchVersion = PatchVersion{Major: 1, Minor: 0}

// String returns the version as "Major.Minor".
func (v PatchVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

type patchHeader struct {
	Magic         [4]byte
	Major, Minor  uint8
	Reserved      uint16
	SubsetCount   uint32
	QuadCount     uint32
	TriangleCount uint32
}

type subsetRecord struct {
	Name         [subsetNameSize]byte
	MeshSubsetID uint32
	IsQuad       uint32
	StartPatch   uint32
	PatchCount   uint32
}

// PatchFile represents a parsed SDPF file.
type PatchFile struct {
	Version         PatchVersion
	Subsets         []subd.Subset // quad subsets first, then triangle subsets
	QuadPatches     []subd.PatchData
	QuadIndices     []subd.PatchIndices
	TrianglePatches []subd.PatchData
	TriangleIndices []subd.PatchIndices
}

// WritePatchFile serializes converter output as SDPF:
// header, subset table, quad patch data, quad indices, triangle patch
// data, triangle indices. All values are little-endian.
func WritePatchFile(w io.Writer, pm *subd.PatchMesh) error {
	bw := bufio.NewWriter(w)
	subsets := pm.Subsets()

	hdr := patchHeader{
		Major:         CurrentPatchVersion.Major,
		Minor:         CurrentPatchVersion.Minor,
		SubsetCount:   uint32(len(subsets)),
		QuadCount:     uint32(len(pm.QuadPatches)),
		TriangleCount: uint32(len(pm.TrianglePatches)),
	}
	copy(hdr.Magic[:], patchMagic)
	if err := binary.Write(bw, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for _, s := range subsets {
		rec := subsetRecord{
			MeshSubsetID: uint32(s.MeshSubsetID),
			StartPatch:   uint32(s.StartPatch),
			PatchCount:   uint32(s.PatchCount),
		}
		if s.IsQuadPatches {
			rec.IsQuad = 1
		}
		copy(rec.Name[:], encoding.FixedString(s.Name, subsetNameSize))
		if err := binary.Write(bw, binary.LittleEndian, &rec); err != nil {
			return fmt.Errorf("writing subset %q: %w", s.Name, err)
		}
	}

	for _, section := range []any{pm.QuadPatches, pm.QuadIndices, pm.TrianglePatches, pm.TriangleIndices} {
		if err := binary.Write(bw, binary.LittleEndian, section); err != nil {
			return fmt.Errorf("writing patch buffers: %w", err)
		}
	}

	return bw.Flush()
}

// SavePatchFile writes an SDPF file to disk, creating parent directories.
func SavePatchFile(path string, pm *subd.PatchMesh) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating patch file: %w", err)
	}
	if err := WritePatchFile(f, pm); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ParsePatchFile parses SDPF data from a byte slice.
func ParsePatchFile(data []byte) (*PatchFile, error) {
	if len(data) < patchHeaderSize {
		return nil, ErrTruncatedPatchData
	}

	r := bytes.NewReader(data)

	var hdr patchHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, ErrTruncatedPatchData
	}
	if string(hdr.Magic[:]) != patchMagic {
		return nil, ErrInvalidPatchMagic
	}

	pf := &PatchFile{Version: PatchVersion{Major: hdr.Major, Minor: hdr.Minor}}
	if pf.Version.Major != CurrentPatchVersion.Major {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPatchVersion, pf.Version)
	}

	need := int64(hdr.SubsetCount)*subsetRecordSize +
		(int64(hdr.QuadCount)+int64(hdr.TriangleCount))*patchRecordSize
	if int64(r.Len()) < need {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", ErrTruncatedPatchData, need, r.Len())
	}

	pf.Subsets = make([]subd.Subset, hdr.SubsetCount)
	for i := range pf.Subsets {
		var rec subsetRecord
		if err := binary.Read(r, binary.LittleEndian, &rec); err != nil {
			return nil, fmt.Errorf("reading subset %d: %w", i, err)
		}
		pf.Subsets[i] = subd.Subset{
			Name:          encoding.TrimNullString(rec.Name[:]),
			MeshSubsetID:  int(rec.MeshSubsetID),
			IsQuadPatches: rec.IsQuad != 0,
			StartPatch:    int(rec.StartPatch),
			PatchCount:    int(rec.PatchCount),
		}
	}

	pf.QuadPatches = make([]subd.PatchData, hdr.QuadCount)
	pf.QuadIndices = make([]subd.PatchIndices, hdr.QuadCount)
	pf.TrianglePatches = make([]subd.PatchData, hdr.TriangleCount)
	pf.TriangleIndices = make([]subd.PatchIndices, hdr.TriangleCount)
	for _, section := range []any{pf.QuadPatches, pf.QuadIndices, pf.TrianglePatches, pf.TriangleIndices} {
		if err := binary.Read(r, binary.LittleEndian, section); err != nil {
			return nil, fmt.Errorf("reading patch buffers: %w", err)
		}
	}

	return pf, nil
}

// ParsePatchFileFromPath parses an SDPF file from disk.
func ParsePatchFileFromPath(path string) (*PatchFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading patch file: %w", err)
	}
	return ParsePatchFile(data)
}

// QuadSubsets returns the subsets covering quad patches.
func (pf *PatchFile) QuadSubsets() []subd.Subset {
	var out []subd.Subset
	for _, s := range pf.Subsets {
		if s.IsQuadPatches {
			out = append(out, s)
		}
	}
	return out
}

// TriangleSubsets returns the subsets covering triangle patches.
func (pf *PatchFile) TriangleSubsets() []subd.Subset {
	var out []subd.Subset
	for _, s := range pf.Subsets {
		if !s.IsQuadPatches {
			out = append(out, s)
		}
	}
	return out
}
