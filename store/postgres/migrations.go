package postgres

// migration is one named, ordered schema step. Steps run exactly once per
// database, tracked in velocty_migrations.
type migration struct {
	name  string
	stmts []string
}

// No foreign keys anywhere: the document backend cannot enforce them, so
// the relational schema mirrors its shape and leaves cascade sequencing
// to callers.
var migrations = []migration{
	{
		name: "001_users",
		stmts: []string{`
			CREATE TABLE IF NOT EXISTS users (
				id            BIGSERIAL PRIMARY KEY,
				email         TEXT NOT NULL UNIQUE,
				name          TEXT NOT NULL DEFAULT '',
				password_hash TEXT NOT NULL DEFAULT '',
				role          TEXT NOT NULL DEFAULT 'editor',
				active        BOOLEAN NOT NULL DEFAULT TRUE,
				created_at    BIGINT NOT NULL,
				updated_at    BIGINT NOT NULL
			)`,
		},
	},
	{
		name: "002_content",
		stmts: []string{`
			CREATE TABLE IF NOT EXISTS posts (
				id         BIGSERIAL PRIMARY KEY,
				title      TEXT NOT NULL DEFAULT '',
				slug       TEXT NOT NULL UNIQUE,
				body       TEXT NOT NULL DEFAULT '',
				excerpt    TEXT NOT NULL DEFAULT '',
				status     TEXT NOT NULL DEFAULT 'draft',
				author_id  BIGINT NOT NULL DEFAULT 0,
				publish_at BIGINT NOT NULL DEFAULT 0,
				likes      BIGINT NOT NULL DEFAULT 0,
				created_at BIGINT NOT NULL,
				updated_at BIGINT NOT NULL
			)`, `
			CREATE INDEX IF NOT EXISTS idx_posts_status
				ON posts (status, publish_at)`, `
			CREATE TABLE IF NOT EXISTS portfolio_items (
				id          BIGSERIAL PRIMARY KEY,
				title       TEXT NOT NULL DEFAULT '',
				slug        TEXT NOT NULL UNIQUE,
				description TEXT NOT NULL DEFAULT '',
				image_path  TEXT NOT NULL DEFAULT '',
				project_url TEXT NOT NULL DEFAULT '',
				sort_order  INTEGER NOT NULL DEFAULT 0,
				status      TEXT NOT NULL DEFAULT 'draft',
				created_at  BIGINT NOT NULL,
				updated_at  BIGINT NOT NULL
			)`,
		},
	},
	{
		name: "003_taxonomy",
		stmts: []string{`
			CREATE TABLE IF NOT EXISTS categories (
				id         BIGSERIAL PRIMARY KEY,
				name       TEXT NOT NULL DEFAULT '',
				slug       TEXT NOT NULL UNIQUE,
				created_at BIGINT NOT NULL,
				updated_at BIGINT NOT NULL
			)`, `
			CREATE TABLE IF NOT EXISTS tags (
				id         BIGSERIAL PRIMARY KEY,
				name       TEXT NOT NULL DEFAULT '',
				slug       TEXT NOT NULL UNIQUE,
				created_at BIGINT NOT NULL,
				updated_at BIGINT NOT NULL
			)`, `
			CREATE TABLE IF NOT EXISTS content_categories (
				content_id   BIGINT NOT NULL,
				content_type TEXT NOT NULL,
				related_id   BIGINT NOT NULL,
				PRIMARY KEY (content_id, content_type, related_id)
			)`, `
			CREATE INDEX IF NOT EXISTS idx_content_categories_related
				ON content_categories (related_id, content_type)`, `
			CREATE TABLE IF NOT EXISTS content_tags (
				content_id   BIGINT NOT NULL,
				content_type TEXT NOT NULL,
				related_id   BIGINT NOT NULL,
				PRIMARY KEY (content_id, content_type, related_id)
			)`, `
			CREATE INDEX IF NOT EXISTS idx_content_tags_related
				ON content_tags (related_id, content_type)`,
		},
	},
	{
		name: "004_comments",
		stmts: []string{`
			CREATE TABLE IF NOT EXISTS comments (
				id           BIGSERIAL PRIMARY KEY,
				content_id   BIGINT NOT NULL,
				content_type TEXT NOT NULL,
				author_name  TEXT NOT NULL DEFAULT '',
				author_email TEXT NOT NULL DEFAULT '',
				body         TEXT NOT NULL DEFAULT '',
				approved     BOOLEAN NOT NULL DEFAULT FALSE,
				created_at   BIGINT NOT NULL,
				updated_at   BIGINT NOT NULL
			)`, `
			CREATE INDEX IF NOT EXISTS idx_comments_content
				ON comments (content_id, content_type, approved)`,
		},
	},
	{
		name: "005_settings",
		stmts: []string{`
			CREATE TABLE IF NOT EXISTS settings (
				key        TEXT PRIMARY KEY,
				value      TEXT NOT NULL DEFAULT '',
				created_at BIGINT NOT NULL,
				updated_at BIGINT NOT NULL
			)`,
		},
	},
	{
		name: "006_commerce",
		stmts: []string{`
			CREATE TABLE IF NOT EXISTS orders (
				id                BIGSERIAL PRIMARY KEY,
				provider          TEXT NOT NULL DEFAULT '',
				provider_order_id TEXT NOT NULL DEFAULT '',
				provider_ref      TEXT NOT NULL DEFAULT '',
				item_id           BIGINT NOT NULL DEFAULT 0,
				amount            BIGINT NOT NULL DEFAULT 0,
				currency          TEXT NOT NULL DEFAULT '',
				buyer_email       TEXT NOT NULL DEFAULT '',
				buyer_name        TEXT NOT NULL DEFAULT '',
				status            TEXT NOT NULL DEFAULT 'pending',
				completed_at      BIGINT NOT NULL DEFAULT 0,
				created_at        BIGINT NOT NULL,
				updated_at        BIGINT NOT NULL,
				UNIQUE (provider, provider_order_id)
			)`, `
			CREATE TABLE IF NOT EXISTS download_tokens (
				id             BIGSERIAL PRIMARY KEY,
				order_id       BIGINT NOT NULL,
				token          TEXT NOT NULL UNIQUE,
				max_downloads  INTEGER NOT NULL DEFAULT 0,
				downloads_used INTEGER NOT NULL DEFAULT 0,
				expires_at     BIGINT NOT NULL DEFAULT 0,
				created_at     BIGINT NOT NULL,
				updated_at     BIGINT NOT NULL
			)`, `
			CREATE INDEX IF NOT EXISTS idx_download_tokens_order
				ON download_tokens (order_id)`, `
			CREATE TABLE IF NOT EXISTS licenses (
				id         BIGSERIAL PRIMARY KEY,
				order_id   BIGINT NOT NULL,
				key        TEXT NOT NULL UNIQUE,
				email      TEXT NOT NULL DEFAULT '',
				created_at BIGINT NOT NULL,
				updated_at BIGINT NOT NULL
			)`, `
			CREATE INDEX IF NOT EXISTS idx_licenses_order
				ON licenses (order_id)`,
		},
	},
	{
		name: "007_firewall",
		stmts: []string{`
			CREATE TABLE IF NOT EXISTS fw_bans (
				id         BIGSERIAL PRIMARY KEY,
				ip         TEXT NOT NULL,
				reason     TEXT NOT NULL DEFAULT '',
				active     BOOLEAN NOT NULL DEFAULT TRUE,
				expires_at BIGINT NOT NULL DEFAULT 0,
				created_at BIGINT NOT NULL,
				updated_at BIGINT NOT NULL
			)`, `
			CREATE INDEX IF NOT EXISTS idx_fw_bans_ip
				ON fw_bans (ip, active)`, `
			CREATE TABLE IF NOT EXISTS fw_events (
				id         BIGSERIAL PRIMARY KEY,
				ip         TEXT NOT NULL,
				type       TEXT NOT NULL,
				detail     TEXT NOT NULL DEFAULT '',
				created_at BIGINT NOT NULL
			)`, `
			CREATE INDEX IF NOT EXISTS idx_fw_events_ip
				ON fw_events (ip, type, created_at)`, `
			CREATE INDEX IF NOT EXISTS idx_fw_events_created
				ON fw_events (created_at)`,
		},
	},
	{
		name: "008_sites",
		stmts: []string{`
			CREATE TABLE IF NOT EXISTS sites (
				id         BIGSERIAL PRIMARY KEY,
				slug       TEXT NOT NULL UNIQUE,
				hostname   TEXT NOT NULL DEFAULT '',
				name       TEXT NOT NULL DEFAULT '',
				status     TEXT NOT NULL DEFAULT 'active',
				created_at BIGINT NOT NULL,
				updated_at BIGINT NOT NULL
			)`, `
			CREATE INDEX IF NOT EXISTS idx_sites_hostname
				ON sites (hostname)`,
		},
	},
}
