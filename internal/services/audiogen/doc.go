// Package audiogen wraps the generative audio API used for background music
// and sound effects.
//
// Generation is asynchronous on the provider side: a job is submitted, polled
// until it completes, and the finished audio is downloaded. Generate hides
// the polling behind a single blocking call bounded by the configured
// completion timeout.
package audiogen
