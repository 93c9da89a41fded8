// Package emotion models the bounded 4-dimensional emotional state of a
// cognitive session: a {joy, calm, anger, sadness} quadrant vector with
// additive updates, a canonical decay operator, and derived intensity
// and confidence values.
package emotion
