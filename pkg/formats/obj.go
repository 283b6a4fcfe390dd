// Package formats provides readers and writers for the files around the
// patch converter: Wavefront OBJ input and SDPF patch output.
package formats

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	textenc "golang.org/x/text/encoding"

	"github.com/Faultbox/subd-patches/pkg/encoding"
	"github.com/Faultbox/subd-patches/pkg/math"
	"github.com/Faultbox/subd-patches/pkg/subd"
)

// OBJ format errors.
var (
	ErrInvalidOBJ = errors.New("invalid OBJ data")
)

// DefaultMaterial names faces that appear before any usemtl statement.
const DefaultMaterial = "default"

// OBJFace is one polygon of an OBJ file.
type OBJFace struct {
	Vertices []uint32 // 0-based indices into OBJ.Vertices
}

// OBJGroup is a run of consecutive faces using the same material.
type OBJGroup struct {
	Material  string
	StartFace int
	FaceCount int
}

// OBJ represents the geometry of a parsed Wavefront OBJ file.
type OBJ struct {
	Vertices []math.Vec3
	Faces    []OBJFace
	Groups   []OBJGroup
}

// OBJOptions controls OBJ parsing.
type OBJOptions struct {
	// NameEncoding decodes material names. Nil keeps them as UTF-8.
	NameEncoding textenc.Encoding
}

// ParseOBJ parses OBJ geometry from r. Texture coordinates, normals,
// object/group names and smoothing groups are skipped.
func ParseOBJ(r io.Reader, opts OBJOptions) (*OBJ, error) {
	obj := &OBJ{}
	material := DefaultMaterial

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' {
			continue
		}

		keyword := strings.Fields(line)[0]
		rest := strings.TrimSpace(line[len(keyword):])

		switch keyword {
		case "v":
			v, err := parseOBJVertex(rest)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidOBJ, lineNo, err)
			}
			obj.Vertices = append(obj.Vertices, v)

		case "f":
			face, err := parseOBJFace(rest, len(obj.Vertices))
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidOBJ, lineNo, err)
			}
			if n := len(obj.Groups); n == 0 || obj.Groups[n-1].Material != material {
				obj.Groups = append(obj.Groups, OBJGroup{Material: material, StartFace: len(obj.Faces)})
			}
			obj.Groups[len(obj.Groups)-1].FaceCount++
			obj.Faces = append(obj.Faces, face)

		case "usemtl":
			material = encoding.Decode(opts.NameEncoding, []byte(rest))
			if material == "" {
				material = DefaultMaterial
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading OBJ: %w", err)
	}

	return obj, nil
}

// ParseOBJFile parses an OBJ file from disk.
func ParseOBJFile(path string, opts OBJOptions) (*OBJ, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening OBJ file: %w", err)
	}
	defer f.Close()
	return ParseOBJ(f, opts)
}

func parseOBJVertex(s string) (math.Vec3, error) {
	fields := strings.Fields(s)
	if len(fields) < 3 {
		return math.Vec3{}, fmt.Errorf("vertex has %d coordinates", len(fields))
	}
	var c [3]float32
	for i := 0; i < 3; i++ {
		f, err := strconv.ParseFloat(fields[i], 32)
		if err != nil {
			return math.Vec3{}, err
		}
		c[i] = float32(f)
	}
	return math.Vec3{X: c[0], Y: c[1], Z: c[2]}, nil
}

// parseOBJFace parses "v", "v/vt", "v//vn" and "v/vt/vn" corners.
// Negative indices are relative to the vertices read so far.
func parseOBJFace(s string, vertexCount int) (OBJFace, error) {
	fields := strings.Fields(s)
	if len(fields) < 3 {
		return OBJFace{}, fmt.Errorf("face has %d corners", len(fields))
	}

	face := OBJFace{Vertices: make([]uint32, len(fields))}
	for i, field := range fields {
		ref, _, _ := strings.Cut(field, "/")
		idx, err := strconv.Atoi(ref)
		if err != nil {
			return OBJFace{}, fmt.Errorf("bad vertex reference %q", field)
		}
		switch {
		case idx > 0:
			idx--
		case idx < 0:
			idx += vertexCount
		default:
			return OBJFace{}, errors.New("vertex index 0")
		}
		if idx < 0 || idx >= vertexCount {
			return OBJFace{}, fmt.Errorf("vertex reference %q out of range", field)
		}
		face.Vertices[i] = uint32(idx)
	}
	return face, nil
}

// Mesh fan-triangulates every face into the converter's input layout.
// Each face becomes one polygon id; each material run becomes one subset.
func (o *OBJ) Mesh() *subd.Mesh {
	m := &subd.Mesh{Positions: o.Vertices}

	for _, g := range o.Groups {
		sub := subd.InputSubset{Name: g.Material, StartTriangle: m.TriangleCount()}
		for f := g.StartFace; f < g.StartFace+g.FaceCount; f++ {
			v := o.Faces[f].Vertices
			for k := 1; k+1 < len(v); k++ {
				m.Indices = append(m.Indices, v[0], v[k], v[k+1])
				m.PolygonIDs = append(m.PolygonIDs, int32(f))
			}
		}
		sub.TriangleCount = m.TriangleCount() - sub.StartTriangle
		m.Subsets = append(m.Subsets, sub)
	}
	return m
}

// FaceCounts returns the number of triangles, quads and larger polygons.
func (o *OBJ) FaceCounts() (tris, quads, ngons int) {
	for _, f := range o.Faces {
		switch len(f.Vertices) {
		case 3:
			tris++
		case 4:
			quads++
		default:
			ngons++
		}
	}
	return tris, quads, ngons
}
