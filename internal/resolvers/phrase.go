package resolvers

import (
	"context"

	"github.com/Sentimentron/sentropy/internal/store"
)

// phraseStore is the store slice PhrasesForDocument needs.
type phraseStore interface {
	PhrasesForDocument(ctx context.Context, documentID int64) ([]store.PhraseRow, error)
}

// PhrasesForDocument lists every Phrase of a document.
type PhrasesForDocument struct {
	Store phraseStore
}

func (r PhrasesForDocument) Resolve(ctx context.Context, documentID int64) ([]store.PhraseRow, error) {
	return r.Store.PhrasesForDocument(ctx, documentID)
}

// keywordIncidenceStore is the store slice PhraseRelevantToKeywordSet
// needs.
type keywordIncidenceStore interface {
	KeywordIDsForPhrase(ctx context.Context, phraseID int64) ([]int64, error)
}

// PhraseRelevantToKeywordSet reports whether phraseID has a KeywordIncidence
// referencing any id in keywordIDs (used by the query executor's
// scoring step to decide whether a phrase counts toward a document's
// relevance accumulator).
func PhraseRelevantToKeywordSet(ctx context.Context, s keywordIncidenceStore, phraseID int64, keywordIDs map[int64]bool) (bool, error) {
	ids, err := s.KeywordIDsForPhrase(ctx, phraseID)
	if err != nil {
		return false, err
	}
	for _, id := range ids {
		if keywordIDs[id] {
			return true, nil
		}
	}
	return false, nil
}
