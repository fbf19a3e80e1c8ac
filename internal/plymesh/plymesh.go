// Package plymesh writes triangle meshes as ASCII PLY files.
package plymesh

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
)

// Mesh is a triangle mesh in the layout scene descriptions use: a flat
// index list, three indices per face, with optional per-vertex normals,
// tangents, and texture coordinates and optional per-face indices.
type Mesh struct {
	Indices     []int
	P           [][3]float64
	N           [][3]float64
	S           [][3]float64
	UV          [][2]float64
	FaceIndices []int
}

// WriteFile writes m to path in ASCII PLY form. Optional attributes are
// emitted only when present; attributes whose length does not match the
// vertex count are skipped.
func WriteFile(path string, m *Mesh) error {
	if len(m.Indices)%3 != 0 {
		return fmt.Errorf("plymesh: index count %d is not a multiple of 3", len(m.Indices))
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if err := write(w, m); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func write(w *bufio.Writer, m *Mesh) error {
	nVertices := len(m.P)
	nFaces := len(m.Indices) / 3
	hasN := len(m.N) == nVertices && nVertices > 0
	hasS := len(m.S) == nVertices && nVertices > 0
	hasUV := len(m.UV) == nVertices && nVertices > 0
	hasFaceIndices := len(m.FaceIndices) == nFaces && nFaces > 0

	fmt.Fprintf(w, "ply\nformat ascii 1.0\n")
	fmt.Fprintf(w, "element vertex %d\n", nVertices)
	fmt.Fprintf(w, "property float x\nproperty float y\nproperty float z\n")
	if hasN {
		fmt.Fprintf(w, "property float nx\nproperty float ny\nproperty float nz\n")
	}
	if hasS {
		fmt.Fprintf(w, "property float sx\nproperty float sy\nproperty float sz\n")
	}
	if hasUV {
		fmt.Fprintf(w, "property float u\nproperty float v\n")
	}
	fmt.Fprintf(w, "element face %d\n", nFaces)
	fmt.Fprintf(w, "property list uchar int vertex_indices\n")
	if hasFaceIndices {
		fmt.Fprintf(w, "property int face_indices\n")
	}
	fmt.Fprintf(w, "end_header\n")

	for i := 0; i < nVertices; i++ {
		writeTriple(w, m.P[i])
		if hasN {
			w.WriteByte(' ')
			writeTriple(w, m.N[i])
		}
		if hasS {
			w.WriteByte(' ')
			writeTriple(w, m.S[i])
		}
		if hasUV {
			fmt.Fprintf(w, " %s %s", ftoa(m.UV[i][0]), ftoa(m.UV[i][1]))
		}
		w.WriteByte('\n')
	}

	for i := 0; i < nFaces; i++ {
		fmt.Fprintf(w, "3 %d %d %d",
			m.Indices[3*i], m.Indices[3*i+1], m.Indices[3*i+2])
		if hasFaceIndices {
			fmt.Fprintf(w, " %d", m.FaceIndices[i])
		}
		w.WriteByte('\n')
	}
	return nil
}

func writeTriple(w *bufio.Writer, v [3]float64) {
	fmt.Fprintf(w, "%s %s %s", ftoa(v[0]), ftoa(v[1]), ftoa(v[2]))
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
