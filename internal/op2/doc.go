// Package op2 reads Nastran OP2 result archives.
//
// An archive is a sequence of Fortran unformatted records, each framed by
// a 4-byte length marker before and after the payload. One-word key
// records structure the archive: a positive key gives the word count of
// the data record after it, zero and negative keys delimit tables.
//
//	[3] date [7] tape id [2] label [-1] [0]       header, optional
//	[2] name [-1] [7] trailer [-2] [1] [0] header  table start
//	[-3] [1] [0] IDENT [-4] [1] [0] DATA ...       subtables
//	[-n] [1] [0] [0]                               table end
//	[0]                                            archive end
//
// The reader understands four tables:
//
//	OUGV1   static displacements
//	BOUGV1  eigenvectors, one IDENT/DATA pair per mode
//	LAMA    real eigenvalue summary
//	OES1X   real element stresses for solids and CQUAD4/CTRIA3 shells
//
// Other tables are skipped, as are stress entries of other element types.
// Only 32-bit word archives are supported.
//
// FirstSubcaseOnly: each table contributes records from the first subcase
// it contains. Later subcases are skipped and their ids reported in
// Results.IgnoredSubcases. This is a known limitation, not an error.
package op2
