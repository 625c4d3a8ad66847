package sqlite

const schema = `
CREATE TABLE IF NOT EXISTS students (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    first_name TEXT NOT NULL,
    last_name TEXT NOT NULL,
    email TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS courses (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL
);

-- One row per enrolled student and course; state 0 absent, 1 present
CREATE TABLE IF NOT EXISTS student_states (
    student_id INTEGER NOT NULL,
    course_id INTEGER NOT NULL,
    state INTEGER NOT NULL DEFAULT 0 CHECK(state IN (0, 1)),
    timestamp DATETIME,
    signature_id INTEGER,
    PRIMARY KEY (student_id, course_id),
    FOREIGN KEY (student_id) REFERENCES students(id) ON DELETE CASCADE,
    FOREIGN KEY (course_id) REFERENCES courses(id) ON DELETE CASCADE,
    FOREIGN KEY (signature_id) REFERENCES signatures(id) ON DELETE SET NULL
);

CREATE INDEX IF NOT EXISTS idx_student_states_course ON student_states(course_id);

CREATE TABLE IF NOT EXISTS signatures (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    student_id INTEGER,
    course_id INTEGER NOT NULL,
    hash TEXT NOT NULL,
    suspicion_score REAL NOT NULL DEFAULT 0 CHECK(suspicion_score >= 0 AND suspicion_score <= 1),
    features TEXT NOT NULL,
    path TEXT NOT NULL DEFAULT '',
    captured_at DATETIME,
    FOREIGN KEY (student_id) REFERENCES students(id) ON DELETE SET NULL,
    FOREIGN KEY (course_id) REFERENCES courses(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_signatures_course ON signatures(course_id, suspicion_score DESC);
CREATE INDEX IF NOT EXISTS idx_signatures_hash ON signatures(hash);
`
