package migrations

import (
	"context"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

var Migrations = migrate.NewMigrations()

const createQuizzesSQL = `
CREATE TABLE IF NOT EXISTS quizzes (
	id text PRIMARY KEY,
	data jsonb NOT NULL
);`

const createPlaySQL = `
CREATE TABLE IF NOT EXISTS sessions (
	id text PRIMARY KEY,
	quiz_id text NOT NULL,
	code text NOT NULL,
	status text NOT NULL,
	created_at timestamptz NOT NULL,
	started_at timestamptz,
	finished_at timestamptz
);

CREATE UNIQUE INDEX IF NOT EXISTS sessions_active_code_idx
	ON sessions (code) WHERE status <> 'finished';

CREATE TABLE IF NOT EXISTS participants (
	id text PRIMARY KEY,
	session_id text NOT NULL REFERENCES sessions (id) ON DELETE CASCADE,
	user_ref text,
	display_name text NOT NULL,
	score integer NOT NULL DEFAULT 0,
	elapsed_seconds double precision NOT NULL DEFAULT 0,
	rank_position integer NOT NULL DEFAULT 0,
	joined_seq bigserial,
	joined_at timestamptz NOT NULL
);

CREATE TABLE IF NOT EXISTS attempts (
	id text PRIMARY KEY,
	quiz_id text NOT NULL,
	user_ref text NOT NULL,
	status text NOT NULL,
	score integer NOT NULL DEFAULT 0,
	elapsed_seconds double precision NOT NULL DEFAULT 0,
	rank_position integer NOT NULL DEFAULT 0,
	started_at timestamptz NOT NULL,
	finished_at timestamptz,
	UNIQUE (quiz_id, user_ref)
);

CREATE TABLE IF NOT EXISTS answers (
	id text PRIMARY KEY,
	participant_id text REFERENCES participants (id) ON DELETE CASCADE,
	attempt_id text REFERENCES attempts (id) ON DELETE CASCADE,
	question_id text NOT NULL,
	alternative_id text NOT NULL,
	elapsed_seconds double precision NOT NULL,
	awarded integer NOT NULL,
	correct boolean NOT NULL,
	created_at timestamptz NOT NULL,
	CHECK ((participant_id IS NULL) <> (attempt_id IS NULL))
);

CREATE UNIQUE INDEX IF NOT EXISTS answers_participant_question_idx
	ON answers (participant_id, question_id) WHERE participant_id IS NOT NULL;
CREATE UNIQUE INDEX IF NOT EXISTS answers_attempt_question_idx
	ON answers (attempt_id, question_id) WHERE attempt_id IS NOT NULL;`

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, createQuizzesSQL)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS quizzes`)
			return err
		},
	)
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, createPlaySQL)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, `
DROP TABLE IF EXISTS answers;
DROP TABLE IF EXISTS attempts;
DROP TABLE IF EXISTS participants;
DROP TABLE IF EXISTS sessions`)
			return err
		},
	)
}
