// Package dispatch runs one module over a batch of catalog entries.
//
// A run resolves the module and every target up front, then invokes the
// module sequentially, one target at a time. Batches are best effort: a
// failing target never aborts its siblings, and every target ends up with
// exactly one outcome. Successful outputs are registered in the catalog as
// derived entries carrying their source file and producing module.
package dispatch
