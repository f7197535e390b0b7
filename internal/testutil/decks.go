package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// MinimalStaticDeck is a one-plate static deck: four grids in free and
// small field format, one CQUAD4, one PSHELL, one MAT1, one FORCE set and
// one SPC1 set.
const MinimalStaticDeck = `$ minimal static analysis: one plate, pinned corners, tip load
SOL 101
CEND
TITLE = MINIMAL STATIC
SUBCASE 1
  LOAD = 1
  SPC = 1
BEGIN BULK
$ free field grids
GRID,1,,0.,0.,0.
GRID,2,,1.,0.,0.
$ small field grids
GRID    3               1.      1.      0.
GRID    4               0.      1.      0.

CQUAD4,1,1,1,2,3,4
PSHELL,1,1,0.01
MAT1,1,2.1+11,,0.3,7850.
FORCE,1,3,,1000.,0.,0.,1.
SPC1,1,123456,1,4
ENDDATA
`

// MixedDeck exercises large field grids, continuations, every element
// family the reader knows, two unmapped element types (CSHEAR, CQUAD8) and
// two skipped CELAS1 cards.
const MixedDeck = `$ mixed element deck
SOL SEMODES
CEND
BEGIN BULK
GRID,1,,0.,0.,0.
GRID,2,,1.,0.,0.
GRID,3,,1.,1.,0.
GRID,4,,0.,1.,0.
GRID,5,,0.,0.,1.
GRID,6,,1.,0.,1.
GRID,7,,1.,1.,1.
GRID,8,,0.,1.,1.
GRID*   9                               2.0             0.0
*       0.0
CHEXA,20,2,1,2,3,4,5,6,+
+,7,8
CROD,30,3,2,9
CONROD,31,3,9,1,0.5
CBAR,32,4,1,9,0.,0.,1.
CTRIA3,33,1,1,2,3
CSHEAR,34,1,1,2,6,5
CQUAD8,35,1,5,6,7,8
CELAS1,40,5,1,1
CELAS1,41,5,2,1
PSHELL,1,1,0.02
PSOLID,2,1
PROD,3,1,0.25
PBAR,4,2,1.5,0.1,0.1,0.2
MAT1,1,2.0+11,7.6923+10,,7800.
MAT8,2,1.5+11,1.0+10,0.3,5.0+9,,,1600.
CORD2R,10,,0.,0.,0.,0.,0.,1.,+
+,1.,0.,0.
SPC,2,1,123,0.
MPC,3,1,1,1.,2,1,-1.
PLOAD4,4,33,10.
ENDDATA
`

// ReferenceStressDAT is a solver stress listing with four samples followed
// by a second time step that readers must ignore.
const ReferenceStressDAT = `
                        S T E P       1


                                INCREMENT     1


 stresses (elem, integ.pnt.,sxx,syy,szz,sxy,sxz,syz) for set EALL and time  1.0000000E+00

         1   1  1.000000E+02  2.000000E+01  5.000000E-01 -4.481000E+01  3.000000E+00  1.200000E+01
         1   2  1.200000E+02 -1.500000E+01  0.000000E+00  3.000000E+01 -2.000000E+00  8.000000E+00
         2   1 -8.000000E+01  1.000000E+01  2.000000E-01  5.000000E+00  0.000000E+00 -2.500000E+01
         2   2  6.000000E+01  4.000000E+01  0.000000E+00 -1.200000E+01  1.500000E+00  0.000000E+00

 stresses (elem, integ.pnt.,sxx,syy,szz,sxy,sxz,syz) for set EALL and time  2.0000000E+00

         1   1  9.990000E+02  9.990000E+02  9.990000E+02  9.990000E+02  9.990000E+02  9.990000E+02
`

// ComputedStressDAT differs from ReferenceStressDAT in three ways: sample
// (1,1) has sxy near zero where the reference is -44.81, sample (1,2) has
// sxx with the opposite sign, and (2,2) is replaced by an extra (3,1).
const ComputedStressDAT = `
                        S T E P       1


 stresses (elem, integ.pnt.,sxx,syy,szz,sxy,sxz,syz) for set EALL and time  1.0000000E+00

         1   1  9.500000E+01  2.200000E+01  4.000000E-01  2.000000E-04  3.000000E+00  1.200000E+01
         1   2 -1.180000E+02 -1.500000E+01  0.000000E+00  3.000000E+01 -2.000000E+00  8.000000E+00

         2   1 -8.000000E+01  1.000000E+01  2.000000E-01  5.000000E+00  0.000000E+00 -2.500000E+01
         3   1  1.000000E+00  1.000000E+00  1.000000E+00  1.000000E+00  1.000000E+00  1.000000E+00

 volume (element, volume) for set EALL and time  1.0000000E+00

         1  1.000000E+00
`

// WriteFile writes content to dir/name and returns the path.
func WriteFile(t testing.TB, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture %s: %v", path, err)
	}
	return path
}
