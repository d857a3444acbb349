package store

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS departments (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    name        TEXT NOT NULL UNIQUE,
    code        TEXT NOT NULL DEFAULT '',
    created_at  TEXT NOT NULL DEFAULT (datetime('now','localtime'))
);

CREATE TABLE IF NOT EXISTS work_centers (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    name          TEXT NOT NULL UNIQUE,
    department_id INTEGER NOT NULL REFERENCES departments(id),
    created_at    TEXT NOT NULL DEFAULT (datetime('now','localtime'))
);
CREATE INDEX IF NOT EXISTS idx_work_centers_dept ON work_centers(department_id);

CREATE TABLE IF NOT EXISTS stations (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    name           TEXT NOT NULL UNIQUE,
    work_center_id INTEGER NOT NULL REFERENCES work_centers(id),
    active         INTEGER NOT NULL DEFAULT 1,
    created_at     TEXT NOT NULL DEFAULT (datetime('now','localtime'))
);
CREATE INDEX IF NOT EXISTS idx_stations_wc ON stations(work_center_id);

CREATE TABLE IF NOT EXISTS routing_definitions (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    model       TEXT NOT NULL,
    trim_level  TEXT NOT NULL DEFAULT '',
    version     INTEGER NOT NULL DEFAULT 1,
    status      TEXT NOT NULL DEFAULT 'DRAFT',
    released_at TEXT,
    created_at  TEXT NOT NULL DEFAULT (datetime('now','localtime')),
    UNIQUE(model, trim_level, version)
);

CREATE TABLE IF NOT EXISTS routing_stages (
    id               INTEGER PRIMARY KEY AUTOINCREMENT,
    routing_id       INTEGER NOT NULL REFERENCES routing_definitions(id),
    sequence         INTEGER NOT NULL,
    code             TEXT NOT NULL,
    name             TEXT NOT NULL DEFAULT '',
    enabled          INTEGER NOT NULL DEFAULT 1,
    work_center_id   INTEGER NOT NULL REFERENCES work_centers(id),
    standard_minutes INTEGER NOT NULL DEFAULT 0,
    UNIQUE(routing_id, sequence)
);
CREATE INDEX IF NOT EXISTS idx_routing_stages_routing ON routing_stages(routing_id);

CREATE TABLE IF NOT EXISTS work_orders (
    id                  INTEGER PRIMARY KEY AUTOINCREMENT,
    number              TEXT NOT NULL UNIQUE,
    hull_id             TEXT NOT NULL DEFAULT '',
    product_sku         TEXT NOT NULL DEFAULT '',
    quantity            INTEGER NOT NULL DEFAULT 1,
    priority            TEXT NOT NULL DEFAULT 'NORMAL',
    status              TEXT NOT NULL DEFAULT 'PLANNED',
    previous_status     TEXT NOT NULL DEFAULT '',
    routing_id          INTEGER NOT NULL REFERENCES routing_definitions(id),
    current_stage_index INTEGER NOT NULL DEFAULT 0,
    planned_start       TEXT,
    planned_finish      TEXT,
    spec_snapshot       TEXT NOT NULL DEFAULT '{}',
    row_version         INTEGER NOT NULL DEFAULT 1,
    created_at          TEXT NOT NULL DEFAULT (datetime('now','localtime')),
    updated_at          TEXT NOT NULL DEFAULT (datetime('now','localtime')),
    completed_at        TEXT
);
CREATE INDEX IF NOT EXISTS idx_work_orders_status ON work_orders(status);
CREATE INDEX IF NOT EXISTS idx_work_orders_routing ON work_orders(routing_id);

CREATE TABLE IF NOT EXISTS stage_events (
    id               INTEGER PRIMARY KEY AUTOINCREMENT,
    event_uuid       TEXT NOT NULL UNIQUE,
    work_order_id    INTEGER NOT NULL REFERENCES work_orders(id),
    routing_stage_id INTEGER NOT NULL REFERENCES routing_stages(id),
    station_id       INTEGER REFERENCES stations(id),
    actor            TEXT NOT NULL DEFAULT '',
    kind             TEXT NOT NULL,
    good_qty         INTEGER NOT NULL DEFAULT 0,
    scrap_qty        INTEGER NOT NULL DEFAULT 0,
    note             TEXT NOT NULL DEFAULT '',
    created_at       TEXT NOT NULL DEFAULT (datetime('now','localtime'))
);
CREATE INDEX IF NOT EXISTS idx_stage_events_wo ON stage_events(work_order_id);

CREATE TABLE IF NOT EXISTS work_order_versions (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    work_order_id  INTEGER NOT NULL REFERENCES work_orders(id),
    version_number INTEGER NOT NULL,
    snapshot       TEXT NOT NULL,
    reason         TEXT NOT NULL DEFAULT '',
    actor          TEXT NOT NULL DEFAULT 'system',
    created_at     TEXT NOT NULL DEFAULT (datetime('now','localtime')),
    UNIQUE(work_order_id, version_number)
);
CREATE INDEX IF NOT EXISTS idx_wo_versions_wo ON work_order_versions(work_order_id);

CREATE TABLE IF NOT EXISTS audit_log (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    actor       TEXT NOT NULL DEFAULT 'system',
    action      TEXT NOT NULL,
    entity_type TEXT NOT NULL,
    entity_id   INTEGER NOT NULL DEFAULT 0,
    before_json TEXT NOT NULL DEFAULT '{}',
    after_json  TEXT NOT NULL DEFAULT '{}',
    created_at  TEXT NOT NULL DEFAULT (datetime('now','localtime'))
);
CREATE INDEX IF NOT EXISTS idx_audit_entity ON audit_log(entity_type, entity_id);

CREATE TABLE IF NOT EXISTS outbox (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    topic       TEXT NOT NULL,
    payload     BLOB NOT NULL,
    msg_type    TEXT NOT NULL DEFAULT '',
    plant_id    TEXT NOT NULL DEFAULT '',
    retries     INTEGER NOT NULL DEFAULT 0,
    created_at  TEXT NOT NULL DEFAULT (datetime('now','localtime')),
    sent_at     TEXT
);
CREATE INDEX IF NOT EXISTS idx_outbox_pending ON outbox(sent_at) WHERE sent_at IS NULL;

CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    username      TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'OPERATOR',
    department_id INTEGER REFERENCES departments(id),
    created_at    TEXT NOT NULL DEFAULT (datetime('now','localtime'))
);
`
