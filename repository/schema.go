package repository

// Schema holds the DDL for every table the Postgres stores use. Each
// statement is idempotent. The vector table is created by the vector index
// itself because its dimension comes from configuration.
var Schema = []struct {
	Name string
	SQL  string
}{
	{"clients", `
CREATE TABLE IF NOT EXISTS clients (
    id UUID PRIMARY KEY,
    owner_id VARCHAR(255) NOT NULL,
    name VARCHAR(255) NOT NULL,
    email VARCHAR(255) NOT NULL DEFAULT '',
    visa_type VARCHAR(50) NOT NULL,
    status VARCHAR(50) NOT NULL DEFAULT 'active',
    created_at TIMESTAMP NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_clients_owner ON clients(owner_id);`},
	{"reference_documents", `
CREATE TABLE IF NOT EXISTS reference_documents (
    id UUID PRIMARY KEY,
    filename TEXT NOT NULL,
    storage_path TEXT NOT NULL DEFAULT '',
    content TEXT NOT NULL DEFAULT '',
    category VARCHAR(50) NOT NULL,
    visa_type VARCHAR(50) NOT NULL,
    extraction_error TEXT NOT NULL DEFAULT '',
    indexed BOOLEAN NOT NULL DEFAULT FALSE,
    indexed_at TIMESTAMP,
    created_at TIMESTAMP NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_reference_documents_visa_type ON reference_documents(visa_type);
CREATE INDEX IF NOT EXISTS idx_reference_documents_unindexed ON reference_documents(created_at) WHERE NOT indexed;`},
	{"templates", `
CREATE TABLE IF NOT EXISTS templates (
    id UUID PRIMARY KEY,
    visa_type VARCHAR(50) NOT NULL,
    criterion VARCHAR(100) NOT NULL,
    content TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_templates_visa_criterion ON templates(visa_type, criterion);`},
	{"conversation_turns", `
CREATE TABLE IF NOT EXISTS conversation_turns (
    id UUID PRIMARY KEY,
    client_id UUID NOT NULL REFERENCES clients(id) ON DELETE CASCADE,
    session_id VARCHAR(100) NOT NULL,
    seq BIGINT NOT NULL,
    role VARCHAR(20) NOT NULL CHECK (role IN ('user', 'assistant')),
    content TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    UNIQUE (client_id, seq)
);`},
	{"petitions", `
CREATE TABLE IF NOT EXISTS petitions (
    id UUID PRIMARY KEY,
    client_id UUID NOT NULL REFERENCES clients(id) ON DELETE CASCADE,
    visa_type VARCHAR(50) NOT NULL,
    criterion VARCHAR(100),
    request TEXT NOT NULL DEFAULT '',
    content TEXT NOT NULL,
    session_id VARCHAR(100) NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_petitions_client ON petitions(client_id, created_at DESC);`},
	{"case_documents", `
CREATE TABLE IF NOT EXISTS case_documents (
    id UUID PRIMARY KEY,
    client_id UUID NOT NULL REFERENCES clients(id) ON DELETE CASCADE,
    filename TEXT NOT NULL,
    file_type VARCHAR(100) NOT NULL DEFAULT '',
    mime_type VARCHAR(255) NOT NULL DEFAULT '',
    size BIGINT NOT NULL DEFAULT 0,
    storage_path TEXT NOT NULL,
    uploaded_at TIMESTAMP NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_case_documents_client ON case_documents(client_id, uploaded_at DESC);`},
	{"jobs", `
CREATE TABLE IF NOT EXISTS jobs (
    id UUID PRIMARY KEY,
    kind VARCHAR(50) NOT NULL,
    status VARCHAR(50) NOT NULL DEFAULT 'pending',
    total INTEGER NOT NULL DEFAULT 0,
    processed INTEGER NOT NULL DEFAULT 0,
    failed INTEGER NOT NULL DEFAULT 0,
    error_message TEXT,
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
    completed_at TIMESTAMP
);`},
}
