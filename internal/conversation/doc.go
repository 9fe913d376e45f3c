// Package conversation assembles the bounded conversational context that
// accompanies every model prompt in a tutoring session.
//
// The most recent turns are kept verbatim. Older turns are condensed into
// a short synopsis by a Summarizer once there are enough of them to be
// worth a model call, and kept verbatim otherwise. The result is cached
// per session and stays valid for as long as the session's revision
// counter is unchanged.
//
// Token counts are estimated at four characters per token. Format renders
// the context within the configured budget, giving the learner profile
// first claim, then the summary, then turns from newest to oldest.
package conversation
