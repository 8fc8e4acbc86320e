package migration

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fablesmith/questforge/questforge/database/models"
	"github.com/uptrace/bun"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	pgx "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Migrator struct {
	pgDB       *bun.DB
	dataDir    string
	heroesPath string
	questsPath string
	batchSize  int
	// Statistics tracking
	stats MigrationStats
	// Optional direct Mongo access
	mongoDB *mongo.Database
	// Tuning
	sleepBetween time.Duration
	// Mongo collection names (overrideable)
	collNames map[string]string
	// Optional: use pgx CopyFrom for fastest bulk inserts
	useCopy bool
	pool    *pgxpool.Pool
}

func NewMigrator(pgDB *bun.DB, dataDir string) *Migrator {
	return &Migrator{
		pgDB:       pgDB,
		dataDir:    dataDir,
		heroesPath: filepath.Join(dataDir, "heroes.bson"),
		questsPath: filepath.Join(dataDir, "userquests.bson"),
		batchSize:  1000,
		stats: MigrationStats{
			Tables:    make(map[string]*TableStats),
			StartTime: time.Now(),
		},
		collNames: map[string]string{
			"heroes":     "heroes",
			"userquests": "userquests",
		},
	}
}

// SetBatchSize overrides the default batch size for inserts (useful for poolers/timeouts)
func (m *Migrator) SetBatchSize(size int) {
	if size > 0 {
		m.batchSize = size
	}
}

// SetSleepBetween sets an optional sleep between batch inserts (milliseconds)
func (m *Migrator) SetSleepBetween(ms int) {
	if ms > 0 {
		m.sleepBetween = time.Duration(ms) * time.Millisecond
	}
}

// SetUseCopy enables COPY FROM mode using pgx (fast path)
func (m *Migrator) SetUseCopy(v bool) { m.useCopy = v }

// UsePool sets the pgx pool for COPY operations
func (m *Migrator) UsePool(pool *pgxpool.Pool) { m.pool = pool }

func (m *Migrator) UseMongo(client *mongo.Client, dbName string) {
	if client != nil && dbName != "" {
		m.mongoDB = client.Database(dbName)
	}
}

// SetMongoCollectionName overrides the collection name for a given kind (e.g., "heroes", "userquests")
func (m *Migrator) SetMongoCollectionName(kind, name string) {
	if m.collNames == nil {
		m.collNames = map[string]string{}
	}
	if kind != "" && name != "" {
		m.collNames[kind] = name
	}
}

func (m *Migrator) getColl(kind, defaultName string) *mongo.Collection {
	if m.mongoDB == nil {
		return nil
	}
	name := defaultName
	if v, ok := m.collNames[kind]; ok && v != "" {
		name = v
	}
	return m.mongoDB.Collection(name)
}

func (m *Migrator) MigrateAll(ctx context.Context) error {
	logProgress("Starting legacy BSON migration")
	logProgress(fmt.Sprintf("Data directory: %s", m.dataDir))

	if m.stats.Tables == nil {
		m.stats.Tables = make(map[string]*TableStats)
	}
	m.stats.StartTime = time.Now()

	// Heroes first so every imported completion references an imported hero
	migrationSteps := []struct {
		name    string
		migrate func(context.Context) error
	}{
		{"heroes", m.MigrateHeroes},
		{"legacy_quests", m.MigrateLegacyQuests},
	}

	for _, step := range migrationSteps {
		logProgress(fmt.Sprintf("Starting migration step: %s", step.name))

		if err := step.migrate(ctx); err != nil {
			return fmt.Errorf("migration failed at step %s: %w", step.name, err)
		}

		logProgress(fmt.Sprintf("Completed migration step: %s", step.name))
	}

	m.stats.EndTime = time.Now()
	if err := m.generateMigrationReport(); err != nil {
		slog.Error("Failed to generate migration report", "error", err)
	}

	logProgress("Migration completed successfully!")
	m.logFinalStats()
	return nil
}

// MigrateAllFromMongo migrates data directly from a live MongoDB database
func (m *Migrator) MigrateAllFromMongo(ctx context.Context) error {
	if m.mongoDB == nil {
		return fmt.Errorf("mongoDB not configured; call UseMongo first")
	}

	logProgress("Starting direct MongoDB migration")

	if m.stats.Tables == nil {
		m.stats.Tables = make(map[string]*TableStats)
	}
	m.stats.StartTime = time.Now()

	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"heroes_mongo", m.MigrateHeroesFromMongo},
		{"legacy_quests_mongo", m.MigrateLegacyQuestsFromMongo},
	}

	for _, s := range steps {
		logProgress(fmt.Sprintf("Starting migration step: %s", s.name))
		if err := s.fn(ctx); err != nil {
			return fmt.Errorf("migration failed at step %s: %w", s.name, err)
		}
		logProgress(fmt.Sprintf("Completed migration step: %s", s.name))
	}

	m.stats.EndTime = time.Now()
	if err := m.generateMigrationReport(); err != nil {
		slog.Error("Failed to generate migration report", "error", err)
	}

	logProgress("Migration completed successfully!")
	m.logFinalStats()
	return nil
}

func (m *Migrator) MigrateHeroes(ctx context.Context) error {
	slog.Info("Starting hero migration",
		"heroesPath", m.heroesPath,
		"batchSize", m.batchSize)

	var mongoHeroes []MongoHero
	err := m.processBSONFile(ctx, m.heroesPath, func(doc []byte) error {
		var mh MongoHero
		if err := bson.Unmarshal(doc, &mh); err != nil {
			return fmt.Errorf("failed to decode hero document: %w", err)
		}
		mongoHeroes = append(mongoHeroes, mh)
		return nil
	})
	if err != nil {
		return err
	}

	slog.Info("Loaded heroes from BSON file", "count", len(mongoHeroes))
	return m.processHeroes(ctx, mongoHeroes)
}

// MigrateHeroesFromMongo migrates heroes from live Mongo
func (m *Migrator) MigrateHeroesFromMongo(ctx context.Context) error {
	if m.mongoDB == nil {
		return nil
	}
	col := m.getColl("heroes", "heroes")
	cur, err := col.Find(ctx, bson.D{})
	if err != nil {
		return fmt.Errorf("failed to query heroes: %w", err)
	}
	defer cur.Close(ctx)

	var heroes []MongoHero
	for cur.Next(ctx) {
		var mh MongoHero
		if err := cur.Decode(&mh); err == nil {
			heroes = append(heroes, mh)
		}
	}
	if err := cur.Err(); err != nil {
		return err
	}
	return m.processHeroes(ctx, heroes)
}

func (m *Migrator) processHeroes(ctx context.Context, mongoHeroes []MongoHero) error {
	m.initTableStats("heroes")

	heroByUser := make(map[string]*models.Hero)
	duplicateCount := 0
	for _, mh := range mongoHeroes {
		m.recordProcessed("heroes")

		if mh.UserID == "" {
			m.recordSkipped("heroes", "missing userid", mh.ID.Hex())
			continue
		}

		if _, exists := heroByUser[mh.UserID]; exists {
			duplicateCount++
			logProgress(fmt.Sprintf("Duplicate hero user ID found: %s (keeping latest record)", mh.UserID))
		}

		// Keep the latest occurrence (this is expected behavior for data deduplication)
		heroByUser[mh.UserID] = m.convertHero(mh)
	}

	var heroes []*models.Hero
	for _, h := range heroByUser {
		heroes = append(heroes, h)
	}

	totalHeroes := len(heroes)
	for i := 0; i < totalHeroes; i += m.batchSize {
		end := i + m.batchSize
		if end > totalHeroes {
			end = totalHeroes
		}
		batch := heroes[i:end]

		slog.Info("Inserting batch of heroes",
			"batchSize", len(batch),
			"progress", fmt.Sprintf("%d/%d", end, totalHeroes))

		if err := m.batchInsertHeroes(ctx, batch); err != nil {
			m.recordError("heroes", err.Error(), fmt.Sprintf("batch %d-%d", i, end))
			return err
		}
		for range batch {
			m.recordSuccessful("heroes")
		}

		if m.sleepBetween > 0 {
			time.Sleep(m.sleepBetween)
		}
	}

	logProgress(fmt.Sprintf("Hero migration completed: %d total input records, %d unique heroes imported, %d duplicate user IDs handled",
		len(mongoHeroes), totalHeroes, duplicateCount))
	return nil
}

func (m *Migrator) MigrateLegacyQuests(ctx context.Context) error {
	slog.Info("Starting legacy quest migration",
		"questsPath", m.questsPath,
		"batchSize", m.batchSize)

	var records []MongoQuestRecord
	err := m.processBSONFile(ctx, m.questsPath, func(doc []byte) error {
		var mq MongoQuestRecord
		if err := bson.Unmarshal(doc, &mq); err != nil {
			return fmt.Errorf("failed to decode quest record: %w", err)
		}
		records = append(records, mq)
		return nil
	})
	if err != nil {
		return err
	}

	slog.Info("Loaded quest records from BSON file", "count", len(records))
	return m.processQuestRecords(ctx, records)
}

// MigrateLegacyQuestsFromMongo migrates completed quest records from live Mongo
func (m *Migrator) MigrateLegacyQuestsFromMongo(ctx context.Context) error {
	if m.mongoDB == nil {
		return nil
	}
	col := m.getColl("userquests", "userquests")
	cur, err := col.Find(ctx, bson.D{})
	if err != nil {
		logProgress("userquests collection not found; skipping")
		return nil
	}
	defer cur.Close(ctx)

	var records []MongoQuestRecord
	for cur.Next(ctx) {
		var mq MongoQuestRecord
		if err := cur.Decode(&mq); err == nil {
			records = append(records, mq)
		}
	}
	if err := cur.Err(); err != nil {
		return err
	}
	return m.processQuestRecords(ctx, records)
}

func (m *Migrator) processQuestRecords(ctx context.Context, records []MongoQuestRecord) error {
	m.initTableStats("legacy_quest_records")

	seen := make(map[string]bool, len(records))
	var rows []*models.LegacyQuestRecord
	for _, mq := range records {
		m.recordProcessed("legacy_quest_records")

		if mq.UserID == "" || mq.QuestID == "" {
			m.recordSkipped("legacy_quest_records", "missing userid or questid", mq.ID.Hex())
			continue
		}
		if !mq.Completed {
			m.recordSkipped("legacy_quest_records", "not completed", fmt.Sprintf("%s/%s", mq.UserID, mq.QuestID))
			continue
		}

		key := mq.UserID + ":" + mq.QuestID
		if seen[key] {
			m.recordSkipped("legacy_quest_records", "duplicate completion", key)
			continue
		}
		seen[key] = true
		rows = append(rows, convertQuestRecord(mq))
	}

	totalRows := len(rows)
	for i := 0; i < totalRows; i += m.batchSize {
		end := i + m.batchSize
		if end > totalRows {
			end = totalRows
		}
		batch := rows[i:end]

		slog.Info("Inserting batch of legacy quest records",
			"batchSize", len(batch),
			"progress", fmt.Sprintf("%d/%d", end, totalRows))

		if err := m.batchInsertLegacyQuests(ctx, batch); err != nil {
			m.recordError("legacy_quest_records", err.Error(), fmt.Sprintf("batch %d-%d", i, end))
			return err
		}
		for range batch {
			m.recordSuccessful("legacy_quest_records")
		}

		if m.sleepBetween > 0 {
			time.Sleep(m.sleepBetween)
		}
	}

	logProgress(fmt.Sprintf("Legacy quest migration completed: %d total input records, %d completions imported, %d skipped",
		len(records), totalRows, len(records)-totalRows))
	return nil
}

func (m *Migrator) batchInsertHeroes(ctx context.Context, heroes []*models.Hero) error {
	startTime := time.Now()
	slog.Info("Starting batch insert of heroes", "count", len(heroes))

	// chain_steps and metrics stay untouched on conflict so a re-run does
	// not wipe state the new system has already written.
	_, err := m.pgDB.NewInsert().
		Model(&heroes).
		On("CONFLICT (user_id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("hp = EXCLUDED.hp").
		Set("max_hp = EXCLUDED.max_hp").
		Set("attributes = EXCLUDED.attributes").
		Set("world_flags = EXCLUDED.world_flags").
		Set("reputation = EXCLUDED.reputation").
		Set("items = EXCLUDED.items").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)

	if err != nil {
		slog.Error("Batch insert of heroes failed",
			"error", err,
			"duration", time.Since(startTime))
		return fmt.Errorf("batch insert failed: %w", err)
	}

	slog.Info("Batch insert of heroes completed",
		"count", len(heroes),
		"duration", time.Since(startTime))
	return nil
}

func (m *Migrator) batchInsertLegacyQuests(ctx context.Context, rows []*models.LegacyQuestRecord) error {
	startTime := time.Now()
	mode := "batch"
	if m.useCopy && m.pool != nil {
		mode = "copy"
	}
	logProgress(fmt.Sprintf("Starting batch insert of legacy quest records: %d (mode=%s)", len(rows), mode))

	if m.useCopy && m.pool != nil {
		if err := m.copyInsertLegacyQuests(ctx, rows); err != nil {
			logProgress(fmt.Sprintf("COPY failed, falling back to batch mode: %v", err))
		} else {
			logProgress(fmt.Sprintf("COPY insert of legacy quest records completed: %d (took %s)", len(rows), time.Since(startTime)))
			return nil
		}
	}

	if err := m.tryInsertLegacyQuests(ctx, rows); err != nil {
		return err
	}
	logProgress(fmt.Sprintf("Batch insert of legacy quest records completed: %d (took %s)", len(rows), time.Since(startTime)))
	return nil
}

func (m *Migrator) tryInsertLegacyQuests(ctx context.Context, rows []*models.LegacyQuestRecord) error {
	if _, err := m.pgDB.NewInsert().
		Model(&rows).
		On("CONFLICT (user_id, quest_id) DO NOTHING").
		Exec(ctx); err != nil {
		if isTimeoutErr(err) && len(rows) > 1 {
			mid := len(rows) / 2
			left := rows[:mid]
			right := rows[mid:]
			logProgress(fmt.Sprintf("Batch insert timeout. Splitting into %d and %d", len(left), len(right)))
			if err := m.tryInsertLegacyQuests(ctx, left); err != nil {
				return err
			}
			if err := m.tryInsertLegacyQuests(ctx, right); err != nil {
				return err
			}
			return nil
		}
		logProgress(fmt.Sprintf("Batch insert failed: %v", err))
		return fmt.Errorf("failed to insert legacy quest batch: %w", err)
	}
	return nil
}

func isTimeoutErr(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	if strings.Contains(s, "i/o timeout") || strings.Contains(s, "timeout") || strings.Contains(s, "context deadline") {
		return true
	}
	return false
}

// copyInsertLegacyQuests performs COPY into a temp table, then inserts into
// legacy_quest_records skipping rows that already exist
func (m *Migrator) copyInsertLegacyQuests(ctx context.Context, rows []*models.LegacyQuestRecord) error {
	if m.pool == nil {
		return fmt.Errorf("pgx pool not configured for COPY")
	}
	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin copy transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	createSQL := `CREATE TEMP TABLE tmp_legacy_quest_records (
        user_id TEXT,
        quest_id TEXT,
        completed_at TIMESTAMPTZ,
        imported_at TIMESTAMPTZ
    ) ON COMMIT DROP;`
	if _, err := tx.Exec(ctx, createSQL); err != nil {
		return fmt.Errorf("failed to create temp table: %w", err)
	}

	data := make([][]any, 0, len(rows))
	for _, r := range rows {
		data = append(data, []any{r.UserID, r.QuestID, r.CompletedAt, r.ImportedAt})
	}
	cols := []string{"user_id", "quest_id", "completed_at", "imported_at"}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"tmp_legacy_quest_records"}, cols, pgx.CopyFromRows(data)); err != nil {
		return fmt.Errorf("copy to temp failed: %w", err)
	}

	insertSQL := `INSERT INTO legacy_quest_records (user_id, quest_id, completed_at, imported_at)
    SELECT user_id, quest_id, completed_at, imported_at
    FROM tmp_legacy_quest_records
    ON CONFLICT (user_id, quest_id) DO NOTHING;`
	if _, err := tx.Exec(ctx, insertSQL); err != nil {
		return fmt.Errorf("legacy quest insert from temp failed: %w", err)
	}

	return tx.Commit(ctx)
}

// generateMigrationReport creates a detailed JSON report of the migration
func (m *Migrator) generateMigrationReport() error {
	timestamp := time.Now().Format("20060102_150405")
	reportFile := filepath.Join(".", fmt.Sprintf("migration_report_%s.json", timestamp))

	file, err := os.Create(reportFile)
	if err != nil {
		return fmt.Errorf("failed to create migration report file: %w", err)
	}
	defer file.Close()

	// Calculate final totals
	m.stats.TotalProcessed = 0
	m.stats.TotalSkipped = 0
	m.stats.TotalErrors = 0

	for _, tableStats := range m.stats.Tables {
		m.stats.TotalProcessed += tableStats.Processed
		m.stats.TotalSkipped += tableStats.Skipped
		m.stats.TotalErrors += tableStats.Errors
	}

	// Write JSON report
	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(m.stats); err != nil {
		return fmt.Errorf("failed to write migration report: %w", err)
	}

	slog.Info("Migration report generated", "file", reportFile)
	return nil
}

// logFinalStats logs a summary of migration statistics
func (m *Migrator) logFinalStats() {
	duration := m.stats.EndTime.Sub(m.stats.StartTime)

	slog.Info("Migration completed",
		"duration", duration,
		"total_processed", m.stats.TotalProcessed,
		"total_skipped", m.stats.TotalSkipped,
		"total_errors", m.stats.TotalErrors)

	for tableName, stats := range m.stats.Tables {
		slog.Info("Table migration stats",
			"table", tableName,
			"processed", stats.Processed,
			"successful", stats.Successful,
			"skipped", stats.Skipped,
			"errors", stats.Errors)
	}
}

// Helper methods for statistics tracking

func (m *Migrator) initTableStats(tableName string) {
	if m.stats.Tables == nil {
		m.stats.Tables = make(map[string]*TableStats)
	}
	m.stats.Tables[tableName] = &TableStats{
		TableName:      tableName,
		SkippedRecords: []SkippedRecord{},
		ErrorRecords:   []ErrorRecord{},
	}
}

func (m *Migrator) recordProcessed(tableName string) {
	if stats, exists := m.stats.Tables[tableName]; exists {
		stats.Processed++
	}
}

func (m *Migrator) recordSuccessful(tableName string) {
	if stats, exists := m.stats.Tables[tableName]; exists {
		stats.Successful++
	}
}

func (m *Migrator) recordSkipped(tableName, reason, data string) {
	if stats, exists := m.stats.Tables[tableName]; exists {
		stats.Skipped++
		stats.SkippedRecords = append(stats.SkippedRecords, SkippedRecord{
			Reason:    reason,
			Data:      data,
			Timestamp: time.Now(),
		})
	}
}

func (m *Migrator) recordError(tableName, errorMsg, data string) {
	if stats, exists := m.stats.Tables[tableName]; exists {
		stats.Errors++
		stats.ErrorRecords = append(stats.ErrorRecords, ErrorRecord{
			Error:     errorMsg,
			Data:      data,
			Timestamp: time.Now(),
		})
	}
}

// logProgress logs progress messages following existing pattern
func logProgress(message string) {
	slog.Info(message, "service", "QuestForge Migration")
}

// processBSONFile streams documents out of a mongodump .bson file. Each
// document is length-prefixed with a little-endian int32 that includes the
// four prefix bytes themselves.
func (m *Migrator) processBSONFile(ctx context.Context, filePath string, processDoc func([]byte) error) error {
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		logProgress(fmt.Sprintf("BSON file not found, skipping: %s", filePath))
		return nil
	}

	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open BSON file %s: %w", filePath, err)
	}
	defer file.Close()

	fileInfo, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to get file info: %w", err)
	}
	fileSize := fileInfo.Size()
	logProgress(fmt.Sprintf("Processing BSON file: %s (size: %d bytes)", filePath, fileSize))

	if fileSize == 0 {
		logProgress(fmt.Sprintf("File is empty, skipping: %s", filePath))
		return nil
	}

	reader := bufio.NewReader(file)
	docCount := 0
	bytesRead := int64(0)

	for bytesRead < fileSize {
		if err := ctx.Err(); err != nil {
			return err
		}

		lengthBytes := make([]byte, 4)
		n, err := io.ReadFull(reader, lengthBytes)
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read document length at byte %d: %w", bytesRead, err)
		}
		bytesRead += int64(n)

		length := int32(binary.LittleEndian.Uint32(lengthBytes))
		if length <= 4 || length > 16*1024*1024 { // Sanity check: 4 bytes minimum, 16MB maximum
			return fmt.Errorf("invalid document length: %d at byte position %d", length, bytesRead-4)
		}

		docBytes := make([]byte, length-4)
		n, err = io.ReadFull(reader, docBytes)
		if err != nil {
			return fmt.Errorf("failed to read document bytes at byte %d: %w", bytesRead, err)
		}
		bytesRead += int64(n)

		fullDocBytes := append(lengthBytes, docBytes...)

		if err := processDoc(fullDocBytes); err != nil {
			logProgress(fmt.Sprintf("Warning: failed to process document %d at byte %d: %v", docCount+1, bytesRead-int64(length), err))
			continue
		}
		docCount++

		if docCount%1000 == 0 {
			logProgress(fmt.Sprintf("Processed %d documents from %s", docCount, filePath))
		}
	}

	logProgress(fmt.Sprintf("Completed processing %d documents from %s", docCount, filePath))
	return nil
}
