// Package classify maps query text to routing hints.
//
// A Classifier holds a static table of regular expressions grouped by
// category. The confidence of a category is the fraction of its patterns the
// query matches; the best category wins, ties going to the category listed
// first in core.Categories. Queries matching nothing are general_factual with
// confidence 0.
//
// Classification is pure: the same text always yields the same result and a
// Classifier is safe for concurrent use.
package classify
