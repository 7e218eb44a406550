// Package playerdata persists the optional per-player .dat file: a
// gzip-compressed NBT document holding position, rotation, health, food,
// XP, gamemode, dimension, on-ground, fall distance, and motion. The
// inventory is not written or read. Loading is best-effort: a missing
// file is equivalent to a new player.
package playerdata

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ErikPelli/mc1710d/internal/nbt"
	"github.com/ErikPelli/mc1710d/internal/player"
	"github.com/ErikPelli/mc1710d/internal/world"
	"github.com/google/uuid"
)

// Path returns the canonical per-player file path under worldDir.
func Path(worldDir string, id uuid.UUID) string {
	return filepath.Join(worldDir, "players", id.String()+".dat")
}

// Save gzip-compresses the session's persisted subtree and writes it to
// its canonical path, creating the players directory if needed.
func Save(worldDir string, s *player.Session) error {
	path := Path(worldDir, s.StableID)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	doc := encode(s)
	var raw bytes.Buffer
	if err := nbt.WriteNamed(&raw, "", doc); err != nil {
		return fmt.Errorf("playerdata: encode: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	if _, err := gz.Write(raw.Bytes()); err != nil {
		gz.Close()
		return fmt.Errorf("playerdata: gzip write: %w", err)
	}
	return gz.Close()
}

// Load reads and applies a player's .dat file onto s. A missing file
// returns (false, nil): the caller proceeds with s unchanged, i.e. as a
// new player. A present-but-corrupt file is a real error.
func Load(worldDir string, s *player.Session) (found bool, err error) {
	path := Path(worldDir, s.StableID)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return false, fmt.Errorf("playerdata: gzip: %w", err)
	}
	defer gz.Close()

	raw, err := io.ReadAll(gz)
	if err != nil {
		return false, fmt.Errorf("playerdata: gzip read: %w", err)
	}

	_, doc, err := nbt.ReadNamed(bytes.NewReader(raw))
	if err != nil {
		return false, fmt.Errorf("playerdata: decode: %w", err)
	}
	apply(doc, s)
	return true, nil
}

func encode(s *player.Session) nbt.Tag {
	pos := nbt.List(nbt.TagDouble, []nbt.Tag{
		{Type: nbt.TagDouble, Double: s.X},
		{Type: nbt.TagDouble, Double: s.Y},
		{Type: nbt.TagDouble, Double: s.Z},
	})
	rotation := nbt.List(nbt.TagFloat, []nbt.Tag{
		{Type: nbt.TagFloat, Float: s.Yaw},
		{Type: nbt.TagFloat, Float: s.Pitch},
	})
	motion := nbt.List(nbt.TagDouble, []nbt.Tag{
		{Type: nbt.TagDouble, Double: 0},
		{Type: nbt.TagDouble, Double: 0},
		{Type: nbt.TagDouble, Double: 0},
	})

	onGround := int8(0)
	if s.OnGround {
		onGround = 1
	}

	return nbt.Compound(
		nbt.NamedTag{Name: "Pos", Tag: pos},
		nbt.NamedTag{Name: "Rotation", Tag: rotation},
		nbt.NamedTag{Name: "Motion", Tag: motion},
		nbt.NamedTag{Name: "OnGround", Tag: nbt.Byte(onGround)},
		nbt.NamedTag{Name: "FallDistance", Tag: nbt.Tag{Type: nbt.TagFloat, Float: 0}},
		nbt.NamedTag{Name: "Health", Tag: nbt.Tag{Type: nbt.TagFloat, Float: s.Health}},
		nbt.NamedTag{Name: "foodLevel", Tag: nbt.Int(int32(s.Food))},
		nbt.NamedTag{Name: "foodSaturationLevel", Tag: nbt.Tag{Type: nbt.TagFloat, Float: s.Saturation}},
		nbt.NamedTag{Name: "XpLevel", Tag: nbt.Int(0)},
		nbt.NamedTag{Name: "XpP", Tag: nbt.Tag{Type: nbt.TagFloat, Float: s.Experience}},
		nbt.NamedTag{Name: "playerGameType", Tag: nbt.Int(int32(s.GameMode))},
		nbt.NamedTag{Name: "Dimension", Tag: nbt.Int(int32(s.Dimension))},
	)
}

func apply(doc nbt.Tag, s *player.Session) {
	if pos, ok := doc.Get("Pos"); ok && len(pos.List) == 3 {
		s.X, s.Y, s.Z = pos.List[0].Double, pos.List[1].Double, pos.List[2].Double
	}
	if rot, ok := doc.Get("Rotation"); ok && len(rot.List) == 2 {
		s.Yaw, s.Pitch = rot.List[0].Float, rot.List[1].Float
	}
	if og, ok := doc.Get("OnGround"); ok {
		s.OnGround = og.Byte != 0
	}
	if h, ok := doc.Get("Health"); ok {
		s.Health = h.Float
	}
	if f, ok := doc.Get("foodLevel"); ok {
		s.Food = int(f.Int)
	}
	if sat, ok := doc.Get("foodSaturationLevel"); ok {
		s.Saturation = sat.Float
	}
	if xp, ok := doc.Get("XpP"); ok {
		s.Experience = xp.Float
	}
	if gm, ok := doc.Get("playerGameType"); ok {
		s.GameMode = uint8(gm.Int)
	}
	if dim, ok := doc.Get("Dimension"); ok {
		s.Dimension = world.DimensionID(dim.Int)
	}
}
