// Package errors provides the classified error primitives used across the site publisher.
//
// Every failure that crosses a package boundary is a ClassifiedError carrying a category,
// a severity and a retry strategy. The publish pipeline uses the retry strategy to decide
// whether a target read/write is worth another attempt, and the HTTP and CLI adapters use
// the category to pick a status code or exit code.
//
// Example usage:
//
//	err := errors.StoreError("write rejected").
//		WithCause(respErr).
//		WithContext("target", "primary").
//		Build()
package errors
