package surreal

// schemaTemplate is the table definition; the only parameter is the HNSW
// dimension, which must match the embedding model.
const schemaTemplate = `
    DEFINE TABLE IF NOT EXISTS memory SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS collection ON memory TYPE string;
    DEFINE FIELD IF NOT EXISTS external_id ON memory TYPE string;
    DEFINE FIELD IF NOT EXISTS text ON memory TYPE string;
    DEFINE FIELD IF NOT EXISTS description ON memory TYPE string;
    DEFINE FIELD IF NOT EXISTS source_name ON memory TYPE string;
    DEFINE FIELD IF NOT EXISTS additional_metadata ON memory TYPE string;
    DEFINE FIELD IF NOT EXISTS embedding ON memory TYPE array<float>;
    DEFINE FIELD IF NOT EXISTS created ON memory TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS memory_collection ON memory FIELDS collection;
    DEFINE INDEX IF NOT EXISTS memory_embedding ON memory FIELDS embedding HNSW DIMENSION %d DIST COSINE TYPE F32;
`
