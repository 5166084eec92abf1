package store

// schemaDDL is sentropy's table layout, kept as a single literal string
// rather than depending on external schema-migration tooling. CreateSchema
// below is a test/bootstrap convenience, not a migration runner.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS crawl_sources (
	id  BIGSERIAL PRIMARY KEY,
	key TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS crawl_files (
	id         BIGSERIAL PRIMARY KEY,
	source_id  BIGINT NOT NULL REFERENCES crawl_sources(id),
	object_key TEXT NOT NULL,
	kind       SMALLINT NOT NULL,
	status     SMALLINT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS raw_articles (
	id            BIGSERIAL PRIMARY KEY,
	crawl_file_id BIGINT NOT NULL REFERENCES crawl_files(id),
	url           TEXT NOT NULL,
	content_type  TEXT NOT NULL,
	date_crawled  TIMESTAMPTZ NOT NULL,
	headers       JSONB NOT NULL DEFAULT '{}',
	body          BYTEA NOT NULL,
	UNIQUE        (crawl_file_id, url, date_crawled)
);

CREATE TABLE IF NOT EXISTS raw_article_results (
	raw_article_id BIGINT PRIMARY KEY REFERENCES raw_articles(id),
	status         SMALLINT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS domains (
	id         BIGSERIAL PRIMARY KEY,
	key        TEXT NOT NULL UNIQUE,
	first_seen TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS articles (
	id            BIGSERIAL PRIMARY KEY,
	domain_id     BIGINT NOT NULL REFERENCES domains(id),
	path          TEXT NOT NULL,
	date_crawled  TIMESTAMPTZ NOT NULL,
	crawl_file_id BIGINT NOT NULL REFERENCES crawl_files(id),
	status        SMALLINT NOT NULL DEFAULT 0,
	UNIQUE        (domain_id, path, crawl_file_id)
);

CREATE TABLE IF NOT EXISTS raw_article_result_links (
	raw_article_id BIGINT NOT NULL REFERENCES raw_articles(id),
	article_id     BIGINT NOT NULL REFERENCES articles(id),
	PRIMARY        KEY (raw_article_id, article_id)
);

CREATE TABLE IF NOT EXISTS documents (
	id            BIGSERIAL PRIMARY KEY,
	article_id    BIGINT NOT NULL UNIQUE REFERENCES articles(id),
	label         SMALLINT NOT NULL DEFAULT 0,
	length        INT NOT NULL DEFAULT 0,
	headline      TEXT NOT NULL DEFAULT '',
	pos_phrases   INT NOT NULL DEFAULT 0,
	neg_phrases   INT NOT NULL DEFAULT 0,
	pos_sentences INT NOT NULL DEFAULT 0,
	neg_sentences INT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS sentences (
	id          BIGSERIAL PRIMARY KEY,
	document_id BIGINT NOT NULL REFERENCES documents(id),
	label       SMALLINT NOT NULL,
	score       DOUBLE PRECISION NOT NULL CHECK (score BETWEEN -1 AND 1),
	prob        DOUBLE PRECISION NOT NULL CHECK (prob BETWEEN 0 AND 1),
	level       SMALLINT NOT NULL,
	text        TEXT NOT NULL,
	position    INT NOT NULL
);

CREATE TABLE IF NOT EXISTS phrases (
	id          BIGSERIAL PRIMARY KEY,
	sentence_id BIGINT NOT NULL REFERENCES sentences(id),
	label       SMALLINT NOT NULL,
	score       DOUBLE PRECISION NOT NULL CHECK (score BETWEEN -1 AND 1),
	prob        DOUBLE PRECISION NOT NULL CHECK (prob BETWEEN 0 AND 1),
	text        TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS keywords (
	id   BIGSERIAL PRIMARY KEY,
	word TEXT NOT NULL UNIQUE CHECK (char_length(word) BETWEEN 1 AND 32)
);

CREATE TABLE IF NOT EXISTS keyword_incidences (
	keyword_id BIGINT NOT NULL REFERENCES keywords(id),
	phrase_id  BIGINT NOT NULL REFERENCES phrases(id),
	PRIMARY    KEY (keyword_id, phrase_id)
);

CREATE TABLE IF NOT EXISTS keyword_adjacencies (
	id          BIGSERIAL PRIMARY KEY,
	document_id BIGINT NOT NULL REFERENCES documents(id),
	key1_id     BIGINT NOT NULL REFERENCES keywords(id),
	key2_id     BIGINT REFERENCES keywords(id)
);

CREATE TABLE IF NOT EXISTS certain_dates (
	id          BIGSERIAL PRIMARY KEY,
	document_id BIGINT NOT NULL REFERENCES documents(id),
	date        TIMESTAMPTZ NOT NULL,
	position    INT NOT NULL
);

CREATE TABLE IF NOT EXISTS ambiguous_dates (
	id             BIGSERIAL PRIMARY KEY,
	document_id    BIGINT NOT NULL REFERENCES documents(id),
	date           TIMESTAMPTZ NOT NULL,
	interpretation SMALLINT NOT NULL,
	matched_text   TEXT NOT NULL,
	position       INT NOT NULL
);

CREATE TABLE IF NOT EXISTS relative_links (
	id          BIGSERIAL PRIMARY KEY,
	document_id BIGINT NOT NULL REFERENCES documents(id),
	path        TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS absolute_links (
	id          BIGSERIAL PRIMARY KEY,
	document_id BIGINT NOT NULL REFERENCES documents(id),
	domain_id   BIGINT NOT NULL REFERENCES domains(id),
	path        TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS software_versions (
	id      BIGSERIAL PRIMARY KEY,
	name    TEXT NOT NULL,
	version TEXT NOT NULL,
	UNIQUE  (name, version)
);

CREATE TABLE IF NOT EXISTS software_involvement_records (
	id                  BIGSERIAL PRIMARY KEY,
	document_id         BIGINT NOT NULL REFERENCES documents(id),
	software_version_id BIGINT NOT NULL REFERENCES software_versions(id),
	action              SMALLINT NOT NULL,
	UNIQUE              (document_id, software_version_id, action)
);

CREATE TABLE IF NOT EXISTS user_queries (
	id        BIGSERIAL PRIMARY KEY,
	text      TEXT NOT NULL UNIQUE,
	email     TEXT NOT NULL DEFAULT '',
	fulfilled TIMESTAMPTZ,
	message   TEXT NOT NULL DEFAULT '',
	cancelled BOOLEAN NOT NULL DEFAULT false
);
`
