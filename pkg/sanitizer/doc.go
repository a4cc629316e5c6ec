// Package sanitizer normalizes user-supplied text before validation and
// storage.
//
// All functions are idempotent and never fail: input that cannot be
// normalized is returned unchanged (free text) or as an empty string (phone
// numbers), leaving rejection to the validators.
//
// Normalization includes:
//   - Names: collapse whitespace, trim
//   - Free text: trim each line, drop control characters, cap blank runs
//   - Emails: trim and lowercase
//   - Countries: ISO 3166 alpha-2, upper case
//   - Phone numbers: E.164, parsed against the guest's country first
package sanitizer
