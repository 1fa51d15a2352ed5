// Package lightdump writes and reads debug dumps of a space's lighting
// and occupancy. The format is a JSON header line followed by a gob
// body, the whole stream zstd-compressed. Dumps are a diagnostic aid
// for comparing light relaxation results across runs, not a world
// persistence format.
package lightdump

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"cubespace.dev/internal/geom"
	"cubespace.dev/internal/space"
)

type Header struct {
	Version int    `json:"version"`
	Scene   string `json:"scene"`
	Digest  string `json:"digest"`
}

type DumpV1 struct {
	Header Header `json:"header"`

	Lower [3]int `json:"lower"`
	Size  [3]int `json:"size"`

	SkyColor [3]float32 `json:"sky_color"`

	// Palette describes every occupancy class by its evaluated
	// appearance, indexed by the values in Contents. Freed classes
	// appear as zero entries.
	Palette []PaletteEntryV1 `json:"palette"`

	// Contents and Light hold one entry per cell in x-major order.
	Contents []uint16 `json:"contents"`
	Light    []uint32 `json:"light"`
}

type PaletteEntryV1 struct {
	Color    [4]float32 `json:"color"`
	Emission [3]float32 `json:"emission"`
	Opaque   bool       `json:"opaque"`
	Visible  bool       `json:"visible"`
	Count    uint32     `json:"count"`
}

type cell struct {
	light space.PackedLight
}

// Capture copies the space's state into a dump record.
func Capture(scene string, sp *space.Space) (DumpV1, error) {
	bounds := sp.Bounds()
	lights, err := space.Extract(sp, bounds, func(_ *space.BlockData, l space.PackedLight) cell {
		return cell{light: l}
	})
	if err != nil {
		return DumpV1{}, err
	}

	dump := DumpV1{
		Header: Header{Version: 1, Scene: scene, Digest: sp.Digest()},
		Lower:  bounds.Lower().ToArray(),
		Size:   bounds.Size().ToArray(),
	}
	sky := sp.Physics().SkyColor
	dump.SkyColor = [3]float32{sky.R, sky.G, sky.B}

	for _, bd := range sp.BlockData() {
		ev := bd.Evaluated()
		dump.Palette = append(dump.Palette, PaletteEntryV1{
			Color:    [4]float32{ev.Color.R, ev.Color.G, ev.Color.B, ev.Color.A},
			Emission: [3]float32{ev.Emission.R, ev.Emission.G, ev.Emission.B},
			Opaque:   ev.Opaque,
			Visible:  ev.Visible,
			Count:    uint32(bd.Count()),
		})
	}

	dump.Contents = make([]uint16, 0, bounds.Volume())
	dump.Light = make([]uint32, 0, bounds.Volume())
	bounds.ForEach(func(p geom.Vec3i) {
		index, _ := sp.BlockIndexAt(p)
		dump.Contents = append(dump.Contents, uint16(index))
	})
	for _, c := range lights.Data() {
		dump.Light = append(dump.Light, uint32(c.light))
	}
	return dump, nil
}

func Write(path string, dump DumpV1) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	defer enc.Close()

	bw := bufio.NewWriterSize(enc, 256*1024)
	defer bw.Flush()

	hb, _ := json.Marshal(dump.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}

	if err := gob.NewEncoder(bw).Encode(&dump); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	return nil
}

func Read(path string) (DumpV1, error) {
	var dump DumpV1
	f, err := os.Open(path)
	if err != nil {
		return dump, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return dump, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	// Header line is informational, gob carries it too.
	_, _ = br.ReadBytes('\n')

	if err := gob.NewDecoder(br).Decode(&dump); err != nil {
		return dump, fmt.Errorf("gob decode: %w", err)
	}
	return dump, nil
}
