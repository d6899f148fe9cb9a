package report

import (
	"database/sql"
	"fmt"
	"os"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"

	"github.com/rs/xid"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/evgsim/timing/cu"
	"github.com/sarchlab/evgsim/timing/gpu"
)

// A Run is one kernel simulation stored in the database.
type Run struct {
	ID     string
	Kernel string
	Reason string
	Cycles uint64
	IPC    float64
}

// SQLiteWriter stores simulation results in a SQLite database. Per compute
// unit rows are buffered and written in batches.
type SQLiteWriter struct {
	*sql.DB

	dbName    string
	runStmt   *sql.Stmt
	cuStmt    *sql.Stmt
	pending   []cuRow
	batchSize int
}

type cuRow struct {
	runID string
	index int
	stats cu.Stats
}

// NewSQLiteWriter creates a writer for path.sqlite3. With an empty path, a
// unique name is generated. Buffered rows are flushed when the program exits
// through atexit.
func NewSQLiteWriter(path string) *SQLiteWriter {
	w := &SQLiteWriter{
		dbName:    path,
		batchSize: 1000,
	}

	atexit.Register(func() { _ = w.Flush() })

	return w
}

// Init creates the database file and its tables.
func (w *SQLiteWriter) Init() error {
	if w.dbName == "" {
		w.dbName = "evgsim_" + xid.New().String()
	}

	filename := w.Filename()
	if _, err := os.Stat(filename); err == nil {
		return fmt.Errorf("file %s already exists", filename)
	}

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	w.DB = db

	err = w.createTables()
	if err == nil {
		err = w.prepareStatements()
	}
	if err != nil {
		w.release()
		return err
	}

	return nil
}

// release closes whatever Init opened and leaves the writer without a
// database.
func (w *SQLiteWriter) release() {
	for _, stmt := range []*sql.Stmt{w.runStmt, w.cuStmt} {
		if stmt != nil {
			_ = stmt.Close()
		}
	}
	w.runStmt, w.cuStmt = nil, nil

	_ = w.DB.Close()
	w.DB = nil
}

// Filename returns the database file name.
func (w *SQLiteWriter) Filename() string {
	return w.dbName + ".sqlite3"
}

func (w *SQLiteWriter) createTables() error {
	tables := []string{
		`CREATE TABLE runs (
			run_id TEXT PRIMARY KEY,
			kernel TEXT,
			reason TEXT,
			cycles INTEGER,
			ipc REAL,
			l1_hit_rate REAL,
			l2_hit_rate REAL,
			dram_accesses INTEGER
		)`,
		`CREATE TABLE cu_stats (
			run_id TEXT,
			cu INTEGER,
			active_cycles INTEGER,
			cf_insts INTEGER,
			alu_bundles INTEGER,
			alu_insts INTEGER,
			lds_insts INTEGER,
			tex_insts INTEGER,
			global_reads INTEGER,
			global_writes INTEGER,
			alu_dep_stalls INTEGER,
			tex_load_queue_stalls INTEGER,
			global_mem_stalls INTEGER,
			work_groups INTEGER
		)`,
	}

	for _, t := range tables {
		if _, err := w.Exec(t); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	return nil
}

func (w *SQLiteWriter) prepareStatements() error {
	var err error

	w.runStmt, err = w.Prepare(`INSERT INTO runs VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}

	w.cuStmt, err = w.Prepare(
		`INSERT INTO cu_stats VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}

	return nil
}

// WriteResult stores the result of one kernel simulation and returns its run
// ID. The run row is written immediately, per compute unit rows may be
// buffered until Flush.
func (w *SQLiteWriter) WriteResult(kernel string, res *gpu.Result) (string, error) {
	id := xid.New().String()
	s := res.Stats

	_, err := w.runStmt.Exec(id, kernel, res.Reason.String(), res.Cycles, s.IPC(),
		s.L1.HitRate(), s.L2.HitRate(), s.Memory.DRAMAccesses)
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}

	for i := range s.PerCU {
		w.pending = append(w.pending, cuRow{runID: id, index: i, stats: s.PerCU[i]})
	}

	if len(w.pending) >= w.batchSize {
		if err := w.Flush(); err != nil {
			return "", err
		}
	}

	return id, nil
}

// Flush writes all buffered rows in one transaction.
func (w *SQLiteWriter) Flush() error {
	if len(w.pending) == 0 {
		return nil
	}

	tx, err := w.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	stmt := tx.Stmt(w.cuStmt)
	for _, r := range w.pending {
		c := r.stats
		_, err := stmt.Exec(r.runID, r.index,
			c.ActiveCycles, c.CFInsts, c.ALUBundles, c.ALUInsts, c.LDSInsts,
			c.TEXInsts, c.GlobalReads, c.GlobalWrites, c.ALUDepStalls,
			c.TEXLoadQueueStalls, c.GlobalMemReadStalls+c.GlobalMemWriteStalls,
			c.UnmappedWorkGroups)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to insert compute unit %d of run %s: %w",
				r.index, r.runID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	w.pending = nil
	return nil
}

// Runs lists the stored runs in insertion order.
func (w *SQLiteWriter) Runs() ([]Run, error) {
	rows, err := w.Query(`SELECT run_id, kernel, reason, cycles, ipc FROM runs ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Kernel, &r.Reason, &r.Cycles, &r.IPC); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, r)
	}

	return runs, rows.Err()
}

// Close flushes buffered rows and closes the database.
func (w *SQLiteWriter) Close() error {
	if w.DB == nil {
		return nil
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return w.DB.Close()
}
