// Package etl runs the batch pipeline that turns posts and their comments
// into retrieval chunks.
//
// A run lists every post from a source, generates exactly one chunk per
// post, and stages the chunks into a sink through a batching writer that
// commits every N records. Malformed posts and failed comment fetches are
// logged and skipped; source listing and sink failures abort the run.
package etl
