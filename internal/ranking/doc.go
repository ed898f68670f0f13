// Package ranking turns raw image/query similarity into the final ordered
// result list. It pools per-expansion scores, applies tag boosts, flags
// opposite concepts and discounts hub images. Everything here is pure and
// works on data already loaded into memory.
package ranking
