package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// PhraseWrite is one Phrase plus the keyword ids found to occur in its text
// (the KeywordIncidence rows stage 11 attaches).
type PhraseWrite struct {
	Label      int
	Score      float64
	Prob       float64
	Text       string
	KeywordIDs []int64
}

// SentenceWrite is one Sentence and its child Phrases.
type SentenceWrite struct {
	Label    int
	Score    float64
	Prob     float64
	Level    int
	Text     string
	Position int
	Phrases  []PhraseWrite
}

// AdjacencyWrite is one KeywordAdjacency pair, already resolved to ids.
type AdjacencyWrite struct {
	Key1ID    int64
	Key2ID    int64
	Key2Valid bool
}

// CertainDateWrite is one unambiguous date extraction.
type CertainDateWrite struct {
	Date     time.Time
	Position int
}

// AmbiguousDateWrite is one interpretation of an ambiguous date context.
type AmbiguousDateWrite struct {
	Date           time.Time
	Interpretation int
	MatchedText    string
	Position       int
}

// AbsoluteLinkWrite is one `http://`-prefixed anchor target.
type AbsoluteLinkWrite struct {
	DomainID int64
	Path     string
}

// ProvenanceWrite is one participating component's involvement record.
type ProvenanceWrite struct {
	SoftwareName    string
	SoftwareVersion string
	Action          int
}

// DocumentWrite is everything stage 13 commits atomically alongside the
// Document row: all child rows (Sentence->Phrase->KeywordIncidence;
// KeywordAdjacency; dates; links; provenance) become visible together with
// the Document row, so the whole graph becomes visible atomically.
type DocumentWrite struct {
	ArticleID    int64
	Label        int
	Length       int
	Headline     string
	PosPhrases   int
	NegPhrases   int
	PosSentences int
	NegSentences int

	Sentences      []SentenceWrite
	Adjacencies    []AdjacencyWrite
	CertainDates   []CertainDateWrite
	AmbiguousDates []AmbiguousDateWrite
	RelativeLinks  []string
	AbsoluteLinks  []AbsoluteLinkWrite
	Provenance     []ProvenanceWrite
}

// InsertDocumentGraph performs stage 13's commit: the Document row and every
// child row, inside the caller's transaction. Call this from within
// Store.WithTx so a failure rolls everything back together.
func (s *Store) InsertDocumentGraph(ctx context.Context, tx pgx.Tx, w DocumentWrite) (int64, error) {
	var docID int64
	err := tx.QueryRow(ctx,
		`INSERT INTO documents (article_id, label, length, headline, pos_phrases, neg_phrases, pos_sentences, neg_sentences)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		w.ArticleID, w.Label, w.Length, w.Headline, w.PosPhrases, w.NegPhrases, w.PosSentences, w.NegSentences,
	).Scan(&docID)
	if err != nil {
		return 0, fmt.Errorf("store: insert document: %w", err)
	}

	for _, sw := range w.Sentences {
		var sentID int64
		err := tx.QueryRow(ctx,
			`INSERT INTO sentences (document_id, label, score, prob, level, text, position)
			 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
			docID, sw.Label, sw.Score, sw.Prob, sw.Level, sw.Text, sw.Position,
		).Scan(&sentID)
		if err != nil {
			return 0, fmt.Errorf("store: insert sentence: %w", err)
		}

		for _, pw := range sw.Phrases {
			var phraseID int64
			err := tx.QueryRow(ctx,
				`INSERT INTO phrases (sentence_id, label, score, prob, text) VALUES ($1, $2, $3, $4, $5) RETURNING id`,
				sentID, pw.Label, pw.Score, pw.Prob, pw.Text,
			).Scan(&phraseID)
			if err != nil {
				return 0, fmt.Errorf("store: insert phrase: %w", err)
			}

			for _, kid := range pw.KeywordIDs {
				_, err := tx.Exec(ctx,
					`INSERT INTO keyword_incidences (keyword_id, phrase_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
					kid, phraseID)
				if err != nil {
					return 0, fmt.Errorf("store: insert keyword incidence: %w", err)
				}
			}
		}
	}

	for _, a := range w.Adjacencies {
		var key2 any
		if a.Key2Valid {
			key2 = a.Key2ID
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO keyword_adjacencies (document_id, key1_id, key2_id) VALUES ($1, $2, $3)`,
			docID, a.Key1ID, key2)
		if err != nil {
			return 0, fmt.Errorf("store: insert keyword adjacency: %w", err)
		}
	}

	for _, cd := range w.CertainDates {
		_, err := tx.Exec(ctx,
			`INSERT INTO certain_dates (document_id, date, position) VALUES ($1, $2, $3)`,
			docID, cd.Date, cd.Position)
		if err != nil {
			return 0, fmt.Errorf("store: insert certain date: %w", err)
		}
	}

	for _, ad := range w.AmbiguousDates {
		_, err := tx.Exec(ctx,
			`INSERT INTO ambiguous_dates (document_id, date, interpretation, matched_text, position)
			 VALUES ($1, $2, $3, $4, $5)`,
			docID, ad.Date, ad.Interpretation, ad.MatchedText, ad.Position)
		if err != nil {
			return 0, fmt.Errorf("store: insert ambiguous date: %w", err)
		}
	}

	for _, path := range w.RelativeLinks {
		_, err := tx.Exec(ctx,
			`INSERT INTO relative_links (document_id, path) VALUES ($1, $2)`, docID, path)
		if err != nil {
			return 0, fmt.Errorf("store: insert relative link: %w", err)
		}
	}

	for _, l := range w.AbsoluteLinks {
		_, err := tx.Exec(ctx,
			`INSERT INTO absolute_links (document_id, domain_id, path) VALUES ($1, $2, $3)`,
			docID, l.DomainID, l.Path)
		if err != nil {
			return 0, fmt.Errorf("store: insert absolute link: %w", err)
		}
	}

	for _, p := range w.Provenance {
		var versionID int64
		err := tx.QueryRow(ctx,
			`INSERT INTO software_versions (name, version) VALUES ($1, $2)
			 ON CONFLICT (name, version) DO UPDATE SET version = EXCLUDED.version RETURNING id`,
			p.SoftwareName, p.SoftwareVersion).Scan(&versionID)
		if err != nil {
			return 0, fmt.Errorf("store: upsert software version: %w", err)
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO software_involvement_records (document_id, software_version_id, action)
			 VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
			docID, versionID, p.Action)
		if err != nil {
			return 0, fmt.Errorf("store: insert software involvement record: %w", err)
		}
	}

	return docID, nil
}

// GetDocument loads a Document by id.
func (s *Store) GetDocument(ctx context.Context, id int64) (*Document, error) {
	d := &Document{ID: id}
	err := s.pool.QueryRow(ctx,
		`SELECT article_id, label, length, headline, pos_phrases, neg_phrases, pos_sentences, neg_sentences
		 FROM documents WHERE id = $1`, id,
	).Scan(&d.ArticleID, &d.Label, &d.Length, &d.Headline, &d.PosPhrases, &d.NegPhrases, &d.PosSentences, &d.NegSentences)
	if err != nil {
		return nil, fmt.Errorf("store: get document %d: %w", id, err)
	}
	return d, nil
}

// PhraseRow is a Phrase joined with its owning document, for resolvers that
// operate purely on ids.
type PhraseRow struct {
	ID    int64
	Label int
	Score float64
	Prob  float64
	Text  string
}

// PhrasesForDocument lists every Phrase belonging to Document id (the
// PhrasesForDocument resolver's backing query).
func (s *Store) PhrasesForDocument(ctx context.Context, documentID int64) ([]PhraseRow, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT phrases.id, phrases.label, phrases.score, phrases.prob, phrases.text
		 FROM phrases JOIN sentences ON phrases.sentence_id = sentences.id
		 WHERE sentences.document_id = $1`, documentID)
	if err != nil {
		return nil, fmt.Errorf("store: phrases for document %d: %w", documentID, err)
	}
	defer rows.Close()

	var out []PhraseRow
	for rows.Next() {
		var p PhraseRow
		if err := rows.Scan(&p.ID, &p.Label, &p.Score, &p.Prob, &p.Text); err != nil {
			return nil, fmt.Errorf("store: scan phrase row: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// KeywordIDsForPhrase returns the keyword ids incident on a phrase (the
// PhraseRelevantToKeywordSet resolver's underlying data).
func (s *Store) KeywordIDsForPhrase(ctx context.Context, phraseID int64) ([]int64, error) {
	rows, err := s.pool.Query(ctx, `SELECT keyword_id FROM keyword_incidences WHERE phrase_id = $1`, phraseID)
	if err != nil {
		return nil, fmt.Errorf("store: keyword ids for phrase %d: %w", phraseID, err)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("store: scan keyword id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// DocumentIDsByDomain lists document ids whose article's domain is
// domainID.
func (s *Store) DocumentIDsByDomain(ctx context.Context, domainID int64) ([]int64, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT documents.id FROM documents JOIN articles ON articles.id = documents.article_id
		 WHERE articles.domain_id = $1`, domainID)
	if err != nil {
		return nil, fmt.Errorf("store: documents by domain %d: %w", domainID, err)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("store: scan document id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// DocumentIDsByKeyword lists document ids with any KeywordAdjacency row
// referencing keywordID as either key1 or key2.
func (s *Store) DocumentIDsByKeyword(ctx context.Context, keywordID int64) ([]int64, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT document_id FROM keyword_adjacencies WHERE key1_id = $1 OR key2_id = $1`, keywordID)
	if err != nil {
		return nil, fmt.Errorf("store: documents by keyword %d: %w", keywordID, err)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("store: scan document id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// StrictAdjacencyExists reports whether document documentID has a
// KeywordAdjacency row with exactly {key1, key2} (either order) — the
// StrictAdjacency resolver's backing query.
func (s *Store) StrictAdjacencyExists(ctx context.Context, key1, key2, documentID int64) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM keyword_adjacencies
			WHERE  document_id = $3 AND (
				(key1_id = $1 AND key2_id = $2) OR (key1_id = $2 AND key2_id = $1)
			)
		)`, key1, key2, documentID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("store: strict adjacency: %w", err)
	}
	return exists, nil
}

// LooseAdjacencyExists reports whether document documentID has any
// KeywordAdjacency row referencing keywordID as key1 or key2 — the
// LooseAdjacency resolver's backing query.
func (s *Store) LooseAdjacencyExists(ctx context.Context, keywordID, documentID int64) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM keyword_adjacencies
			WHERE  document_id = $2 AND (key1_id = $1 OR key2_id = $1)
		)`, keywordID, documentID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("store: loose adjacency: %w", err)
	}
	return exists, nil
}

// TopKeywordAdjacencies returns the most common keyword adjacency word pairs
// for a domain's documents, for the query executor's n-gram sample.
func (s *Store) TopKeywordAdjacencies(ctx context.Context, domainID int64, limit int) ([][2]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT k1.word, k2.word, COUNT(*) AS n
		 FROM keyword_adjacencies ka
		 JOIN documents d ON d.id = ka.document_id
		 JOIN articles a ON a.id = d.article_id
		 JOIN keywords k1 ON k1.id = ka.key1_id
		 LEFT JOIN keywords k2 ON k2.id = ka.key2_id
		 WHERE a.domain_id = $1 AND ka.key2_id IS NOT NULL
		 GROUP BY k1.word, k2.word
		 ORDER BY n DESC
		 LIMIT $2`, domainID, limit)
	if err != nil {
		return nil, fmt.Errorf("store: top keyword adjacencies for domain %d: %w", domainID, err)
	}
	defer rows.Close()

	var out [][2]string
	for rows.Next() {
		var w1, w2 string
		var n int
		if err := rows.Scan(&w1, &w2, &n); err != nil {
			return nil, fmt.Errorf("store: scan adjacency pair: %w", err)
		}
		out = append(out, [2]string{w1, w2})
	}
	return out, rows.Err()
}

// DateSources bundles the three date-resolution reads behind the DatePicker
// MetaStack.
type DateSources struct {
	CertainDates   []CertainDateWrite
	AmbiguousDates []AmbiguousDateWrite
	CrawledDate    time.Time
}

// LoadDateSources reads everything DatePicker needs for one document.
func (s *Store) LoadDateSources(ctx context.Context, documentID int64) (*DateSources, error) {
	out := &DateSources{}

	rows, err := s.pool.Query(ctx, `SELECT date, position FROM certain_dates WHERE document_id = $1`, documentID)
	if err != nil {
		return nil, fmt.Errorf("store: load certain dates: %w", err)
	}
	for rows.Next() {
		var cd CertainDateWrite
		if err := rows.Scan(&cd.Date, &cd.Position); err != nil {
			rows.Close()
			return nil, fmt.Errorf("store: scan certain date: %w", err)
		}
		out.CertainDates = append(out.CertainDates, cd)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.pool.Query(ctx,
		`SELECT date, interpretation, matched_text, position FROM ambiguous_dates WHERE document_id = $1`, documentID)
	if err != nil {
		return nil, fmt.Errorf("store: load ambiguous dates: %w", err)
	}
	for rows.Next() {
		var ad AmbiguousDateWrite
		if err := rows.Scan(&ad.Date, &ad.Interpretation, &ad.MatchedText, &ad.Position); err != nil {
			rows.Close()
			return nil, fmt.Errorf("store: scan ambiguous date: %w", err)
		}
		out.AmbiguousDates = append(out.AmbiguousDates, ad)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	err = s.pool.QueryRow(ctx,
		`SELECT articles.date_crawled FROM articles JOIN documents ON articles.id = documents.article_id
		 WHERE documents.id = $1`, documentID).Scan(&out.CrawledDate)
	if err != nil {
		return nil, fmt.Errorf("store: load crawled date: %w", err)
	}

	return out, nil
}

// AbsoluteLinkCountsByDomain returns the number of AbsoluteLinks pointing to
// each target domain from documents within sourceDomainID, for the
// inter-domain link histogram. Links back to sourceDomainID itself are
// internal, not inter-domain, so they are excluded here and surface through
// SelfAbsoluteLinkPathsForDomain instead.
func (s *Store) AbsoluteLinkCountsByDomain(ctx context.Context, sourceDomainID int64) (map[string]int, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT domains.key, COUNT(*) FROM absolute_links
		 JOIN documents ON documents.id = absolute_links.document_id
		 JOIN articles ON articles.id = documents.article_id
		 JOIN domains ON domains.id = absolute_links.domain_id
		 WHERE articles.domain_id = $1 AND absolute_links.domain_id <> $1
		 GROUP BY domains.key`, sourceDomainID)
	if err != nil {
		return nil, fmt.Errorf("store: absolute link counts for domain %d: %w", sourceDomainID, err)
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return nil, fmt.Errorf("store: scan link count: %w", err)
		}
		out[key] = n
	}
	return out, rows.Err()
}

// RelativeLinkPathsForDomain returns every distinct RelativeLink path across
// a domain's documents, used alongside AbsoluteLinks to the same domain for
// the coverage calculation's internal-path-set.
func (s *Store) RelativeLinkPathsForDomain(ctx context.Context, domainID int64) (map[string]bool, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT relative_links.path FROM relative_links
		 JOIN documents ON documents.id = relative_links.document_id
		 JOIN articles ON articles.id = documents.article_id
		 WHERE articles.domain_id = $1`, domainID)
	if err != nil {
		return nil, fmt.Errorf("store: relative link paths for domain %d: %w", domainID, err)
	}
	defer rows.Close()

	out := map[string]bool{}
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, fmt.Errorf("store: scan relative link path: %w", err)
		}
		out[path] = true
	}
	return out, rows.Err()
}

// SelfAbsoluteLinkPathsForDomain returns every distinct AbsoluteLink path
// whose target domain is the source domain itself. These count as internal
// paths in the coverage calculation, alongside RelativeLinks.
func (s *Store) SelfAbsoluteLinkPathsForDomain(ctx context.Context, domainID int64) (map[string]bool, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT absolute_links.path FROM absolute_links
		 JOIN documents ON documents.id = absolute_links.document_id
		 JOIN articles ON articles.id = documents.article_id
		 WHERE articles.domain_id = $1 AND absolute_links.domain_id = $1`, domainID)
	if err != nil {
		return nil, fmt.Errorf("store: self absolute link paths for domain %d: %w", domainID, err)
	}
	defer rows.Close()

	out := map[string]bool{}
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, fmt.Errorf("store: scan self absolute link path: %w", err)
		}
		out[path] = true
	}
	return out, rows.Err()
}

// TopDomainsForKeywords returns the domains whose documents most often carry
// a KeywordAdjacency involving any of keywordIDs, for the query executor's
// auto-seed strategy.
func (s *Store) TopDomainsForKeywords(ctx context.Context, keywordIDs []int64, limit int) ([]int64, error) {
	if len(keywordIDs) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT articles.domain_id, COUNT(*) AS n
		 FROM keyword_adjacencies ka
		 JOIN documents ON documents.id = ka.document_id
		 JOIN articles ON articles.id = documents.article_id
		 WHERE ka.key1_id = ANY($1) OR ka.key2_id = ANY($1)
		 GROUP BY articles.domain_id
		 ORDER BY n DESC
		 LIMIT $2`, keywordIDs, limit)
	if err != nil {
		return nil, fmt.Errorf("store: top domains for keywords: %w", err)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("store: scan domain count: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
