// Package module defines the processing module contract and the registry
// that binds module identifiers to their descriptors.
//
// Modules are registered once at process startup, before any session starts
// dispatching. After startup the registry is read-only, so lookups on the
// dispatch path never race with registration. Registration order is
// preserved and drives UI listings and CLI output.
//
// A Descriptor declares presentation metadata, the file patterns the module
// accepts, how many targets it takes per dispatch, and the Handler that does
// the work. Handlers receive resolved file entries and loosely typed
// parameters and return the path of the output they produced.
package module
