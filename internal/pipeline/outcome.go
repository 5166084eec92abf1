package pipeline

import "github.com/Sentimentron/sentropy"

// outcomeKind tags what an attempt to process one article produced:
// proceed, a terminal Article status, or a retryable error.
type outcomeKind int

const (
	proceed outcomeKind = iota
	terminal
	retryable
	skipped
)

// outcome is the result of one stage, or of the pipeline as a whole.
// Exactly one of status/err is meaningful, selected by kind.
type outcome struct {
	kind   outcomeKind
	status sentropy.ArticleStatus
	err    error
}

func proceedOutcome() outcome { return outcome{kind: proceed} }

func terminalOutcome(status sentropy.ArticleStatus) outcome {
	return outcome{kind: terminal, status: status}
}

func retryableOutcome(err error) outcome {
	return outcome{kind: retryable, err: err}
}

// skippedOutcome marks work that must not touch the store at all: stage 1
// found an Article already recorded for this (crawl, domain, path).
func skippedOutcome() outcome { return outcome{kind: skipped} }

func (o outcome) isProceed() bool   { return o.kind == proceed }
func (o outcome) isTerminal() bool  { return o.kind == terminal }
func (o outcome) isRetryable() bool { return o.kind == retryable }
func (o outcome) isSkipped() bool   { return o.kind == skipped }
