// Package recommend is the stateless adapter to the external AI
// recommendation service.
//
// The client speaks the OpenAI chat-completions contract against a
// configurable base URL, issues exactly one request per invocation with a
// bounded timeout and no retries, and sanitizes the untrusted response body
// before decoding: code fences are stripped and the first well-formed JSON
// payload is extracted.
//
// The client never touches submission or assignment state. Committing a
// result is the coordinator's job, which keeps "ask the oracle" cleanly
// separated from "commit the result".
package recommend
