// Package tokens estimates token counts for prompts and completions when a
// backend does not report usage (several streaming endpoints omit it).
package tokens
