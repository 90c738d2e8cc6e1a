// Package file provides the TOML-backed configuration store.
//
// The file lives at ~/.trialdex/config.toml. Tables are flattened to
// dot-notation keys on load ([embed] batch_size becomes embed.batch_size)
// and nested again on save, so hand-edited files keep their shape.
package file
