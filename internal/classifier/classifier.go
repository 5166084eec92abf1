// Package classifier is the sentiment-classifier collaborator: an
// in-process component whose concrete model ships separately. sentropy
// depends on it only through the
// Classifier interface, so the pipeline can be driven in tests by a
// deterministic testify/mock double (mocks.go) instead of a real model.
package classifier

import (
	"context"

	"github.com/Sentimentron/sentropy"
)

// PhraseTrace is one phrase-level classification result.
type PhraseTrace struct {
	Text  string
	Prob  float64
	Score float64
	Label sentropy.Label
}

// SentenceTrace is one sentence-level classification result, with its
// child phrase traces.
type SentenceTrace struct {
	Text         string
	Label        sentropy.Label
	AverageScore float64
	Prob         float64
	PosCount     int
	NegCount     int
	Phrases      []PhraseTrace
}

// Result is stage 8's full classification output: a document-level label
// plus the counts and per-sentence/per-phrase trace needed to persist
// Document, Sentence and Phrase rows.
type Result struct {
	Label        sentropy.Label
	Length       int
	PosSentences int
	NegSentences int
	PosPhrases   int
	NegPhrases   int
	Sentences    []SentenceTrace
	Version      string
}

// Classifier classifies cleaned document text (stage 8). A
// ClassificationError terminal status is raised by the pipeline when
// Classify returns an error.
type Classifier interface {
	Classify(ctx context.Context, text string) (Result, error)
}
