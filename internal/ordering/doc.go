// package ordering computes the alphabetical track order written back to a playlist.
//
// Ordering is pure: it performs no I/O and never mutates its input. Names are compared
// with a case-insensitive, locale-aware collation and equal names keep their relative order.
package ordering
