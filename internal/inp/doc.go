// Package inp writes the canonical model as a CalculiX input deck.
//
// Output is deterministic: nodes, materials and sets are written in
// ascending id order and element blocks appear in the order their target
// type is first met. Elements whose source type has no mapping are left
// out and reported in Stats.
package inp
