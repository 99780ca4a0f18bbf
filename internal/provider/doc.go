// Package provider holds the content-generation collaborators used by the
// node modules: text generation, image generation and speech synthesis.
//
// Each collaborator is a small interface so modules can be tested with
// fakes; the concrete types talk to an OpenAI-compatible API.
package provider
