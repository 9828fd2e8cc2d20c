package recorder

const schema = `
CREATE TABLE IF NOT EXISTS application_usage (
    event TEXT NOT NULL,
    bundle_id TEXT NOT NULL,
    app_version TEXT,
    app_path TEXT,
    last_time INTEGER NOT NULL,
    number_times INTEGER NOT NULL,
    PRIMARY KEY (event, bundle_id)
);

CREATE TABLE IF NOT EXISTS install_requests (
    id TEXT PRIMARY KEY,
    received_at TIMESTAMP NOT NULL,
    payload TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_usage_last_time ON application_usage(last_time);
CREATE INDEX IF NOT EXISTS idx_install_received ON install_requests(received_at);
`
