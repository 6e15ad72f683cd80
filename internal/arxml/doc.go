// Package arxml implements the in-memory model of an ECUC configuration
// document.
//
// A document is a Tree: an arena of element nodes addressed by NodeID
// handles. Handles are assigned when a node is created and stay valid until
// the node is removed; they never depend on tag, position or content, so
// other components (the outline, the occurrence index, the selection) can
// hold them across edits of unrelated nodes.
//
// Tag names are stored namespace-stripped: the default AUTOSAR namespace is
// lifted off the root on Parse and put back by Format. Element prefixes
// (ar:FOO) are kept and are part of the qualified name used for text
// correlation.
//
// A Tree is not safe for concurrent use. The editor mutates it only from
// its event loop.
package arxml
