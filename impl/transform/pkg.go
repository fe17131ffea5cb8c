// Package transform has the transform chain applied to decoded bitmaps. A Transform is
// deterministic and keyable: its Key is folded into the BitmapKey so that the result
// of a chain can be memoized on disk. Chains are applied in declared order and are
// never reordered or deduplicated.
package transform
