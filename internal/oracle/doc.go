// Package oracle talks to the external text-reasoning service.
// It supports Gemini, Anthropic and OpenAI backends behind a single Client
// interface, and a Gateway that adds call pacing, optional retries and
// validated decoding of the JSON object each reply is expected to contain.
package oracle
