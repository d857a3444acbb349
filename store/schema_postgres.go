package store

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS departments (
    id          BIGSERIAL PRIMARY KEY,
    name        TEXT NOT NULL UNIQUE,
    code        TEXT NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS work_centers (
    id            BIGSERIAL PRIMARY KEY,
    name          TEXT NOT NULL UNIQUE,
    department_id BIGINT NOT NULL REFERENCES departments(id),
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_work_centers_dept ON work_centers(department_id);

CREATE TABLE IF NOT EXISTS stations (
    id             BIGSERIAL PRIMARY KEY,
    name           TEXT NOT NULL UNIQUE,
    work_center_id BIGINT NOT NULL REFERENCES work_centers(id),
    active         BOOLEAN NOT NULL DEFAULT TRUE,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_stations_wc ON stations(work_center_id);

CREATE TABLE IF NOT EXISTS routing_definitions (
    id          BIGSERIAL PRIMARY KEY,
    model       TEXT NOT NULL,
    trim_level  TEXT NOT NULL DEFAULT '',
    version     INTEGER NOT NULL DEFAULT 1,
    status      TEXT NOT NULL DEFAULT 'DRAFT',
    released_at TIMESTAMPTZ,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE(model, trim_level, version)
);

CREATE TABLE IF NOT EXISTS routing_stages (
    id               BIGSERIAL PRIMARY KEY,
    routing_id       BIGINT NOT NULL REFERENCES routing_definitions(id),
    sequence         INTEGER NOT NULL,
    code             TEXT NOT NULL,
    name             TEXT NOT NULL DEFAULT '',
    enabled          BOOLEAN NOT NULL DEFAULT TRUE,
    work_center_id   BIGINT NOT NULL REFERENCES work_centers(id),
    standard_minutes INTEGER NOT NULL DEFAULT 0,
    UNIQUE(routing_id, sequence)
);
CREATE INDEX IF NOT EXISTS idx_routing_stages_routing ON routing_stages(routing_id);

CREATE TABLE IF NOT EXISTS work_orders (
    id                  BIGSERIAL PRIMARY KEY,
    number              TEXT NOT NULL UNIQUE,
    hull_id             TEXT NOT NULL DEFAULT '',
    product_sku         TEXT NOT NULL DEFAULT '',
    quantity            INTEGER NOT NULL DEFAULT 1,
    priority            TEXT NOT NULL DEFAULT 'NORMAL',
    status              TEXT NOT NULL DEFAULT 'PLANNED',
    previous_status     TEXT NOT NULL DEFAULT '',
    routing_id          BIGINT NOT NULL REFERENCES routing_definitions(id),
    current_stage_index INTEGER NOT NULL DEFAULT 0,
    planned_start       TIMESTAMPTZ,
    planned_finish      TIMESTAMPTZ,
    spec_snapshot       JSONB NOT NULL DEFAULT '{}',
    row_version         INTEGER NOT NULL DEFAULT 1,
    created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    completed_at        TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_work_orders_status ON work_orders(status);
CREATE INDEX IF NOT EXISTS idx_work_orders_routing ON work_orders(routing_id);

CREATE TABLE IF NOT EXISTS stage_events (
    id               BIGSERIAL PRIMARY KEY,
    event_uuid       TEXT NOT NULL UNIQUE,
    work_order_id    BIGINT NOT NULL REFERENCES work_orders(id),
    routing_stage_id BIGINT NOT NULL REFERENCES routing_stages(id),
    station_id       BIGINT REFERENCES stations(id),
    actor            TEXT NOT NULL DEFAULT '',
    kind             TEXT NOT NULL,
    good_qty         INTEGER NOT NULL DEFAULT 0,
    scrap_qty        INTEGER NOT NULL DEFAULT 0,
    note             TEXT NOT NULL DEFAULT '',
    created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_stage_events_wo ON stage_events(work_order_id);

CREATE TABLE IF NOT EXISTS work_order_versions (
    id             BIGSERIAL PRIMARY KEY,
    work_order_id  BIGINT NOT NULL REFERENCES work_orders(id),
    version_number INTEGER NOT NULL,
    snapshot       JSONB NOT NULL,
    reason         TEXT NOT NULL DEFAULT '',
    actor          TEXT NOT NULL DEFAULT 'system',
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE(work_order_id, version_number)
);
CREATE INDEX IF NOT EXISTS idx_wo_versions_wo ON work_order_versions(work_order_id);

CREATE TABLE IF NOT EXISTS audit_log (
    id          BIGSERIAL PRIMARY KEY,
    actor       TEXT NOT NULL DEFAULT 'system',
    action      TEXT NOT NULL,
    entity_type TEXT NOT NULL,
    entity_id   BIGINT NOT NULL DEFAULT 0,
    before_json JSONB NOT NULL DEFAULT '{}',
    after_json  JSONB NOT NULL DEFAULT '{}',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_audit_entity ON audit_log(entity_type, entity_id);

CREATE TABLE IF NOT EXISTS outbox (
    id          BIGSERIAL PRIMARY KEY,
    topic       TEXT NOT NULL,
    payload     BYTEA NOT NULL,
    msg_type    TEXT NOT NULL DEFAULT '',
    plant_id    TEXT NOT NULL DEFAULT '',
    retries     INTEGER NOT NULL DEFAULT 0,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    sent_at     TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_outbox_pending ON outbox(sent_at) WHERE sent_at IS NULL;

CREATE TABLE IF NOT EXISTS users (
    id            BIGSERIAL PRIMARY KEY,
    username      TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'OPERATOR',
    department_id BIGINT REFERENCES departments(id),
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`
