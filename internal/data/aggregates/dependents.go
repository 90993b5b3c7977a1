package aggregates

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/heirloom-backend/internal/domain"
	"github.com/yungbote/heirloom-backend/internal/domain/dedupe"
	"github.com/yungbote/heirloom-backend/internal/domain/people"
	"github.com/yungbote/heirloom-backend/internal/platform/dbctx"
)

// DependentHandler moves every reference to a person in one table from a loser to a winner.
type DependentHandler interface {
	Table() string
	// Columns lists the person-referencing columns the handler owns.
	Columns() []string
	Snapshot(dbc dbctx.Context, personID uuid.UUID) ([]map[string]any, error)
	Repoint(dbc dbctx.Context, loserID, winnerID uuid.UUID) (dedupe.RepointResult, error)
	CountReferences(dbc dbctx.Context, personID uuid.UUID) (int64, error)
}

// DependentRegistry is the closed, ordered set of handlers a merge runs.
type DependentRegistry struct {
	handlers []DependentHandler
	// table.column pairs that keep pointing at the loser on purpose
	exempt map[string]bool
}

// NewDependentRegistry returns the registry for every person-referencing table in the schema.
func NewDependentRegistry() *DependentRegistry {
	return &DependentRegistry{
		handlers: []DependentHandler{
			relationshipHandler{},
			linkHandler{table: "story_person", dedupeCols: []string{"story_id"}},
			linkHandler{table: "media_tag", dedupeCols: []string{"media_id"}},
			linkHandler{table: "person_claim", dedupeCols: []string{"user_id"}},
			linkHandler{table: "timeline_event", dedupeCols: []string{"kind", "date", "place", "title"}},
			candidateHandler{},
			tombstoneHandler{},
		},
		exempt: map[string]bool{
			"merge_history.winner_person_id": true,
			"merge_history.loser_person_id":  true,
		},
	}
}

func (r *DependentRegistry) Handlers() []DependentHandler {
	out := make([]DependentHandler, len(r.handlers))
	copy(out, r.handlers)
	return out
}

// Exemptions returns the audit columns, sorted.
func (r *DependentRegistry) Exemptions() []string {
	out := make([]string, 0, len(r.exempt))
	for k := range r.exempt {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Verify introspects the live schema and fails when a person-referencing column is
// neither owned by a handler nor an audit exemption.
func (r *DependentRegistry) Verify(db *gorm.DB) error {
	if db == nil {
		return ValidationError("missing db for registry verification")
	}
	covered := map[string]bool{}
	for _, h := range r.handlers {
		for _, c := range h.Columns() {
			covered[h.Table()+"."+c] = true
		}
	}
	m := db.Migrator()
	tables, err := m.GetTables()
	if err != nil {
		return err
	}
	sort.Strings(tables)
	var missing []string
	for _, table := range tables {
		cols, err := m.ColumnTypes(table)
		if err != nil {
			return err
		}
		for _, col := range cols {
			name := strings.ToLower(col.Name())
			if !IsPersonReferenceColumn(name) {
				continue
			}
			key := table + "." + name
			if covered[key] || r.exempt[key] {
				continue
			}
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return IntegrityError("unregistered person reference columns: " + strings.Join(missing, ", "))
	}
	return nil
}

// IsPersonReferenceColumn matches person_id, *_person_id and person_*_id.
func IsPersonReferenceColumn(name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	switch {
	case name == "person_id":
		return true
	case strings.HasSuffix(name, "_person_id"):
		return true
	case strings.HasPrefix(name, "person_") && strings.HasSuffix(name, "_id"):
		return true
	}
	return false
}

func (r *DependentRegistry) Snapshot(dbc dbctx.Context, personID uuid.UUID) (dedupe.DependentSnapshot, error) {
	out := dedupe.DependentSnapshot{}
	for _, h := range r.handlers {
		rows, err := h.Snapshot(dbc, personID)
		if err != nil {
			return nil, fmt.Errorf("snapshot %s: %w", h.Table(), err)
		}
		if len(rows) > 0 {
			out[h.Table()] = rows
		}
	}
	return out, nil
}

// Repoint runs every handler in order and returns one result per handler.
func (r *DependentRegistry) Repoint(dbc dbctx.Context, loserID, winnerID uuid.UUID) ([]dedupe.RepointResult, error) {
	out := make([]dedupe.RepointResult, 0, len(r.handlers))
	for _, h := range r.handlers {
		res, err := h.Repoint(dbc, loserID, winnerID)
		if err != nil {
			return nil, fmt.Errorf("repoint %s: %w", h.Table(), err)
		}
		out = append(out, res)
	}
	return out, nil
}

// Remaining counts references to personID per table, omitting zeros.
func (r *DependentRegistry) Remaining(dbc dbctx.Context, personID uuid.UUID) (map[string]int64, error) {
	out := map[string]int64{}
	for _, h := range r.handlers {
		n, err := h.CountReferences(dbc, personID)
		if err != nil {
			return nil, fmt.Errorf("count %s: %w", h.Table(), err)
		}
		if n > 0 {
			out[h.Table()] += n
		}
	}
	return out, nil
}

func txOf(dbc dbctx.Context) (*gorm.DB, error) {
	db := dbc.DB(nil)
	if db == nil {
		return nil, ValidationError("missing db transaction context")
	}
	return db, nil
}

// refWhere builds "(c1 = ? OR c2 = ?)" plus args for the given columns.
func refWhere(cols []string, personID uuid.UUID) (string, []any) {
	parts := make([]string, 0, len(cols))
	args := make([]any, 0, len(cols))
	for _, c := range cols {
		parts = append(parts, c+" = ?")
		args = append(args, personID)
	}
	return "(" + strings.Join(parts, " OR ") + ")", args
}

func snapshotRows(dbc dbctx.Context, table string, cols []string, personID uuid.UUID, extra string, extraArgs ...any) ([]map[string]any, error) {
	db, err := txOf(dbc)
	if err != nil {
		return nil, err
	}
	where, args := refWhere(cols, personID)
	q := db.Table(table).Where(where, args...)
	if extra != "" {
		q = q.Where(extra, extraArgs...)
	}
	var rows []map[string]any
	if err := q.Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func countRows(dbc dbctx.Context, table string, cols []string, personID uuid.UUID, extra string, extraArgs ...any) (int64, error) {
	db, err := txOf(dbc)
	if err != nil {
		return 0, err
	}
	where, args := refWhere(cols, personID)
	q := db.Table(table).Where(where, args...)
	if extra != "" {
		q = q.Where(extra, extraArgs...)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func deleteByIDs(db *gorm.DB, table string, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return db.Exec("DELETE FROM "+table+" WHERE id IN ?", ids).Error
}

// rowID reads a uuid primary key out of a map-scanned row. Drivers hand uuids back
// as text or raw bytes.
func rowID(v any) (uuid.UUID, error) {
	switch id := v.(type) {
	case uuid.UUID:
		return id, nil
	case [16]byte:
		return uuid.UUID(id), nil
	case []byte:
		if len(id) == 16 {
			return uuid.FromBytes(id)
		}
		return uuid.ParseBytes(id)
	case string:
		return uuid.Parse(id)
	default:
		return uuid.Parse(fmt.Sprint(v))
	}
}

// ---- person_relationship ----

type relationshipHandler struct{}

func (relationshipHandler) Table() string { return "person_relationship" }
func (relationshipHandler) Columns() []string {
	return []string{"person_id", "related_person_id"}
}

func (h relationshipHandler) Snapshot(dbc dbctx.Context, personID uuid.UUID) ([]map[string]any, error) {
	return snapshotRows(dbc, h.Table(), h.Columns(), personID, "")
}

func (h relationshipHandler) CountReferences(dbc dbctx.Context, personID uuid.UUID) (int64, error) {
	return countRows(dbc, h.Table(), h.Columns(), personID, "")
}

// edgeKey identifies the fact an edge states: child edges read as the inverse parent
// edge and symmetric kinds ignore direction.
func edgeKey(personID, relatedID uuid.UUID, kind string) string {
	if kind == people.RelationshipChild {
		personID, relatedID = relatedID, personID
		kind = people.RelationshipParent
	}
	if people.IsSymmetricRelationship(kind) {
		personID, relatedID = dedupe.CanonicalPair(personID, relatedID)
	}
	return kind + "|" + personID.String() + "|" + relatedID.String()
}

func (h relationshipHandler) Repoint(dbc dbctx.Context, loserID, winnerID uuid.UUID) (dedupe.RepointResult, error) {
	res := dedupe.RepointResult{Table: h.Table()}
	db, err := txOf(dbc)
	if err != nil {
		return res, err
	}

	var winnerRows []*types.PersonRelationship
	if err := db.Where("person_id = ? OR related_person_id = ?", winnerID, winnerID).Find(&winnerRows).Error; err != nil {
		return res, err
	}
	seen := map[string]bool{}
	for _, e := range winnerRows {
		seen[edgeKey(e.PersonID, e.RelatedPersonID, e.Kind)] = true
	}

	var loserRows []*types.PersonRelationship
	if err := db.Where("person_id = ? OR related_person_id = ?", loserID, loserID).Order("id ASC").Find(&loserRows).Error; err != nil {
		return res, err
	}

	var drop, kin []uuid.UUID
	for _, e := range loserRows {
		from, to := e.PersonID, e.RelatedPersonID
		if from == loserID {
			from = winnerID
		}
		if to == loserID {
			to = winnerID
		}
		key := edgeKey(from, to, e.Kind)
		if from == to || seen[key] {
			drop = append(drop, e.ID)
			for _, id := range []uuid.UUID{from, to} {
				if id != winnerID {
					kin = append(kin, id)
				}
			}
			continue
		}
		seen[key] = true
		err := db.Model(&types.PersonRelationship{}).
			Where("id = ?", e.ID).
			Updates(map[string]any{"person_id": from, "related_person_id": to, "updated_at": db.NowFunc()}).Error
		if err != nil {
			return res, err
		}
		res.Repointed++
	}
	if err := deleteByIDs(db, h.Table(), drop); err != nil {
		return res, err
	}
	res.Dropped = int64(len(drop))
	// A dropped edge leaves no changed row behind, so the other endpoint is
	// marked edited for the next incremental scan.
	if len(kin) > 0 {
		err := db.Model(&types.Person{}).
			Where("id IN ?", kin).
			Update("updated_at", db.NowFunc()).Error
		if err != nil {
			return res, err
		}
	}
	return res, nil
}

// ---- single person_id link tables ----

// linkHandler repoints person_id and drops a loser row when the winner already has a
// row with the same dedupeCols values.
type linkHandler struct {
	table      string
	dedupeCols []string
}

func (h linkHandler) Table() string     { return h.table }
func (h linkHandler) Columns() []string { return []string{"person_id"} }

func (h linkHandler) Snapshot(dbc dbctx.Context, personID uuid.UUID) ([]map[string]any, error) {
	return snapshotRows(dbc, h.table, h.Columns(), personID, "")
}

func (h linkHandler) CountReferences(dbc dbctx.Context, personID uuid.UUID) (int64, error) {
	return countRows(dbc, h.table, h.Columns(), personID, "")
}

func (h linkHandler) key(row map[string]any) string {
	parts := make([]string, 0, len(h.dedupeCols))
	for _, c := range h.dedupeCols {
		parts = append(parts, fmt.Sprint(row[c]))
	}
	return strings.Join(parts, "\x1f")
}

func (h linkHandler) Repoint(dbc dbctx.Context, loserID, winnerID uuid.UUID) (dedupe.RepointResult, error) {
	res := dedupe.RepointResult{Table: h.table}
	db, err := txOf(dbc)
	if err != nil {
		return res, err
	}
	sel := append([]string{"id"}, h.dedupeCols...)

	var winnerRows []map[string]any
	if err := db.Table(h.table).Select(sel).Where("person_id = ?", winnerID).Find(&winnerRows).Error; err != nil {
		return res, err
	}
	seen := map[string]bool{}
	for _, row := range winnerRows {
		seen[h.key(row)] = true
	}

	var loserRows []map[string]any
	if err := db.Table(h.table).Select(sel).Where("person_id = ?", loserID).Order("id ASC").Find(&loserRows).Error; err != nil {
		return res, err
	}

	var keep, drop []uuid.UUID
	for _, row := range loserRows {
		id, err := rowID(row["id"])
		if err != nil {
			return res, fmt.Errorf("%s row id: %w", h.table, err)
		}
		k := h.key(row)
		if seen[k] {
			drop = append(drop, id)
			continue
		}
		seen[k] = true
		keep = append(keep, id)
	}
	if len(keep) > 0 {
		tx := db.Table(h.table).Where("id IN ?", keep).Update("person_id", winnerID)
		if tx.Error != nil {
			return res, tx.Error
		}
		res.Repointed = tx.RowsAffected
	}
	if err := deleteByIDs(db, h.table, drop); err != nil {
		return res, err
	}
	res.Dropped = int64(len(drop))
	return res, nil
}

// ---- duplicate_candidate ----

// candidateHandler moves pending candidates only. Dismissed and merged rows are audit rows.
type candidateHandler struct{}

func (candidateHandler) Table() string { return "duplicate_candidate" }
func (candidateHandler) Columns() []string {
	return []string{"person_a_id", "person_b_id"}
}

func (h candidateHandler) Snapshot(dbc dbctx.Context, personID uuid.UUID) ([]map[string]any, error) {
	return snapshotRows(dbc, h.Table(), h.Columns(), personID, "status = ?", types.CandidateStatusPending)
}

func (h candidateHandler) CountReferences(dbc dbctx.Context, personID uuid.UUID) (int64, error) {
	return countRows(dbc, h.Table(), h.Columns(), personID, "status = ?", types.CandidateStatusPending)
}

func (h candidateHandler) Repoint(dbc dbctx.Context, loserID, winnerID uuid.UUID) (dedupe.RepointResult, error) {
	res := dedupe.RepointResult{Table: h.Table()}
	db, err := txOf(dbc)
	if err != nil {
		return res, err
	}

	// Every row naming the winner, any status: pending rows block a duplicate and
	// terminal rows suppress the pair.
	var winnerRows []*types.DuplicateCandidate
	if err := db.Where("person_a_id = ? OR person_b_id = ?", winnerID, winnerID).Find(&winnerRows).Error; err != nil {
		return res, err
	}
	taken := map[string]bool{}
	for _, c := range winnerRows {
		taken[c.FamilyID.String()+"|"+c.PersonAID.String()+"|"+c.PersonBID.String()] = true
	}

	var loserRows []*types.DuplicateCandidate
	err = db.Where("(person_a_id = ? OR person_b_id = ?) AND status = ?", loserID, loserID, types.CandidateStatusPending).
		Order("id ASC").
		Find(&loserRows).Error
	if err != nil {
		return res, err
	}

	var drop []uuid.UUID
	for _, c := range loserRows {
		x, y := c.PersonAID, c.PersonBID
		if x == loserID {
			x = winnerID
		}
		if y == loserID {
			y = winnerID
		}
		if x == y {
			drop = append(drop, c.ID)
			continue
		}
		a, b := dedupe.CanonicalPair(x, y)
		key := c.FamilyID.String() + "|" + a.String() + "|" + b.String()
		if taken[key] {
			drop = append(drop, c.ID)
			continue
		}
		taken[key] = true
		err := db.Model(&types.DuplicateCandidate{}).
			Where("id = ?", c.ID).
			Updates(map[string]any{"person_a_id": a, "person_b_id": b, "updated_at": db.NowFunc()}).Error
		if err != nil {
			return res, err
		}
		res.Repointed++
	}
	if err := deleteByIDs(db, h.Table(), drop); err != nil {
		return res, err
	}
	res.Dropped = int64(len(drop))
	return res, nil
}

// ---- person.merged_into_person_id ----

// tombstoneHandler moves earlier tombstones of the loser onto the winner so every
// tombstone resolves in one hop.
type tombstoneHandler struct{}

func (tombstoneHandler) Table() string     { return "person" }
func (tombstoneHandler) Columns() []string { return []string{"merged_into_person_id"} }

func (h tombstoneHandler) Snapshot(dbc dbctx.Context, personID uuid.UUID) ([]map[string]any, error) {
	db, err := txOf(dbc)
	if err != nil {
		return nil, err
	}
	var rows []map[string]any
	err = db.Table(h.Table()).
		Select("id", "merged_into_person_id", "merged_at").
		Where("merged_into_person_id = ?", personID).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (h tombstoneHandler) CountReferences(dbc dbctx.Context, personID uuid.UUID) (int64, error) {
	return countRows(dbc, h.Table(), h.Columns(), personID, "")
}

func (h tombstoneHandler) Repoint(dbc dbctx.Context, loserID, winnerID uuid.UUID) (dedupe.RepointResult, error) {
	res := dedupe.RepointResult{Table: h.Table()}
	db, err := txOf(dbc)
	if err != nil {
		return res, err
	}
	tx := db.Model(&types.Person{}).
		Where("merged_into_person_id = ?", loserID).
		Updates(map[string]any{"merged_into_person_id": winnerID, "updated_at": db.NowFunc()})
	if tx.Error != nil {
		return res, tx.Error
	}
	res.Repointed = tx.RowsAffected
	return res, nil
}
