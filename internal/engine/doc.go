// Package engine drives the daily poem: it reconciles the stored state with
// the phase clock, accepts votes, composes and archives the poem, and fans
// state changes out to live subscribers. All mutations are serialized by a
// single mutex, so one process owns the state record.
package engine
