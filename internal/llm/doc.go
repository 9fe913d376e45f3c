// Package llm provides text completion against hosted or local language
// models and a strict parser for their structured replies.
//
// Backends:
//   - "openai": the OpenAI chat API through go-openai (any compatible base URL)
//   - "langchain-openai": OpenAI-compatible servers through langchaingo
//   - "ollama": a local Ollama server through langchaingo
//
// Every backend is wrapped with a token-bucket rate limiter and retries
// with exponential backoff for transient failures.
//
// Model output is never trusted to be well formed. ParseStructured turns a
// reply into either Parsed or Malformed, and callers switch on the result.
package llm
