// Package textutil holds the deterministic word tokenization shared by audio
// analysis and effect placement. Both stages must index words identically or
// word-position anchors drift, so this is the only tokenizer in the repo.
package textutil
