// Package design reads flow-builder design documents and answers
// structural questions about them: canonical node names, entry and
// terminal candidates, branch points, and node parameters.
//
// Nothing in this package binds behavior to nodes; see package workflow.
package design
