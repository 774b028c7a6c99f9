// Package models lists the chat models available to an OpenAI API key,
// to help choose a model for the openai transpile backend.
package models
