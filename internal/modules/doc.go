// Package modules contains the builtin processing modules the dashboard
// ships with. Each builtin validates its parameters before touching any
// target, derives a prefixed output name from the source file, and hands the
// actual media work to the ffmpeg client.
//
// Registration order is the order users see modules listed in, so
// RegisterBuiltins keeps the historical lineup: trim, volume, convert,
// merge, vinyl, extract.
package modules
