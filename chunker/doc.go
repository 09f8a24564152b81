// Package chunker renders retrieval-ready text chunks from posts and their
// comments.
//
// A chunk is assembled from fixed sections (metadata, title, question,
// important answer, other comments) joined by a single delimiter, then
// bounded to a configured number of words. Comment ordering and the
// first-versus-rest split are deterministic so identical inputs always
// render identical chunks.
package chunker
