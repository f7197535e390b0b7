// Package stress builds element frames, rotates stress tensors between
// frames and compares a reference stress set against a computed one.
//
// Tensors travel as [6]float64 in xx, yy, zz, xy, xz, yz order, the same
// order the solver listings and result archives use.
package stress
