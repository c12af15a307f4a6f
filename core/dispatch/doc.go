// Package dispatch decides, once per simulated second, whether a
// vehicle waiting at a terminal may depart. Decisions combine the
// stop's constraint type with skip patterns, delay tolerance and the
// line's recovery strategy; the host applies the physical release.
package dispatch
