// Package evidence defines the record model shared by every analysis stage.
//
// A MediaRecord is the resolved view of one physical file: the candidate
// timestamps recovered by the extractor, the single resolved instant chosen to
// represent capture time, optional coordinates, and the audit notes explaining
// every inference applied along the way. ResolvedInstant is a tagged value: an
// instant is only ever handed out together with its timezone status so an
// assumed offset cannot be read back as a fact.
//
// RawBag is the contract with the metadata extractor. Fields that the
// extractor did not report are omitted rather than filled with sentinels.
//
// Records are built once per run and treated as immutable afterwards; stages
// that refine a record return a clone instead of editing shared slices.
package evidence
