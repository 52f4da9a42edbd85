// Command narratix is the CLI for the narration audio pipeline: ingest
// texts, run the generation passes, and export mixed narration tracks.
package main
