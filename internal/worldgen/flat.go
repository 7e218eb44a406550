// Package worldgen provides a minimal stand-in chunk generator. Real
// terrain/cave/ore/structure generation is an external collaborator
// (spec.md §1); this package exists so the server has something to run
// against out of the box.
package worldgen

import "github.com/ErikPelli/mc1710d/internal/world"

// Flat builds a Generator producing a superflat column: baseID at y=0,
// dirt up to surface-1, grass at surface, air above. The block ids are
// parameters so the generator stays decoupled from any specific
// registry's numbering.
func Flat(hasSky bool, baseID, dirtID, grassID int, surface int) world.Generator {
	return func(cx, cz int32) *world.Column {
		col := world.NewColumn(cx, cz, hasSky)
		for x := 0; x < 16; x++ {
			for z := 0; z < 16; z++ {
				col.SetBlock(x, 0, z, baseID, 0, flatReg{})
				for y := 1; y < surface; y++ {
					col.SetBlock(x, y, z, dirtID, 0, flatReg{})
				}
				col.SetBlock(x, surface, z, grassID, 0, flatReg{})
			}
		}
		col.RecomputeHeightMap(flatReg{})
		return col
	}
}

// flatReg is the minimal registryLike view the generator needs; block id
// 0 is always air by wire convention, everything else is solid.
type flatReg struct{}

func (flatReg) IsAir(id int) bool        { return id == 0 }
func (flatReg) TicksRandomly(int) bool   { return false }
