// Package rank scores roster records against a query embedding.
//
// Exhaustive computes cosine similarity against every row of the embedding
// matrix and keeps the best topN. Results are ordered by descending score;
// equal scores keep roster order. Ranker is the seam for replacing the scan
// with an approximate index.
package rank
