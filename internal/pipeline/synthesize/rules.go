package synthesize

import (
	"fmt"
	"strings"
	"time"

	"cctns-copilot/internal/models"
	"cctns-copilot/internal/schema"
)

// Rule-based synthesis: deterministic templates over the catalog, one per
// data intent. Every user value is bound as a parameter, never spliced into
// the statement text.

type ruleStrategy struct {
	config  *Config
	catalog *schema.Catalog
	now     func() time.Time
}

func newRuleStrategy(config *Config, catalog *schema.Catalog) *ruleStrategy {
	return &ruleStrategy{config: config, catalog: catalog, now: time.Now}
}

func (s *ruleStrategy) Synthesize(input *Input) (*models.CandidateQuery, error) {
	switch input.Intent.Type {
	case models.IntentStatistics:
		return s.statisticsQuery(input)
	case models.IntentQueryData, models.IntentSearchRecords, models.IntentReport:
		return s.recordsQuery(input)
	case models.IntentCompareData:
		return s.comparisonQuery(input)
	case models.IntentTrendAnalysis:
		return s.trendQuery(input)
	default:
		return nil, fmt.Errorf("%w: no template for intent %s", ErrCannotAnswer, input.Intent.Type)
	}
}

// statisticsQuery counts FIRs per crime type under the extracted filters.
func (s *ruleStrategy) statisticsQuery(input *Input) (*models.CandidateQuery, error) {
	q := newQueryBuilder()
	q.selectClause = "SELECT ct.crime_name, COUNT(*) AS fir_count"
	q.fromClause = "FROM FIR f JOIN CRIME_TYPE_MASTER ct ON f.crime_type_id = ct.crime_type_id"
	q.tables = []string{"FIR", "CRIME_TYPE_MASTER"}
	q.groupBy = "GROUP BY ct.crime_name"
	q.orderBy = "ORDER BY fir_count DESC"

	s.applyFilters(q, input.Entities)
	return q.build(s.config.DefaultLimit), nil
}

// recordsQuery lists FIR rows with their master-table context.
func (s *ruleStrategy) recordsQuery(input *Input) (*models.CandidateQuery, error) {
	if !hasDataFilter(input.Entities) {
		return nil, fmt.Errorf("%w: no usable filter extracted", ErrCannotAnswer)
	}

	q := newQueryBuilder()
	q.selectClause = "SELECT f.fir_number, d.district_name, s.station_name, ct.crime_name, f.registration_date, f.status"
	q.fromClause = "FROM FIR f" +
		" JOIN DISTRICT_MASTER d ON f.district_id = d.district_id" +
		" JOIN STATION_MASTER s ON f.station_id = s.station_id" +
		" JOIN CRIME_TYPE_MASTER ct ON f.crime_type_id = ct.crime_type_id"
	q.tables = []string{"FIR", "DISTRICT_MASTER", "STATION_MASTER", "CRIME_TYPE_MASTER"}
	q.orderBy = "ORDER BY f.registration_date DESC"

	s.applyFilters(q, input.Entities)

	if person := firstEntity(input.Entities, models.EntityPerson); person != nil {
		q.where("f.complainant_name ILIKE", "%"+person.Value+"%")
	}
	if phone := firstEntity(input.Entities, models.EntityPhone); phone != nil {
		q.where("f.description LIKE", "%"+phone.Value+"%")
	}
	if vehicle := firstEntity(input.Entities, models.EntityVehicle); vehicle != nil {
		q.where("f.description ILIKE", "%"+vehicle.Value+"%")
	}

	return q.build(s.config.DefaultLimit), nil
}

// comparisonQuery counts FIRs per district, restricted to the mentioned
// districts when at least two were extracted.
func (s *ruleStrategy) comparisonQuery(input *Input) (*models.CandidateQuery, error) {
	districts := allEntities(input.Entities, models.EntityDistrict)
	if len(districts) < 2 {
		return nil, fmt.Errorf("%w: comparison needs two districts", ErrCannotAnswer)
	}

	q := newQueryBuilder()
	q.selectClause = "SELECT d.district_name, COUNT(*) AS fir_count"
	q.fromClause = "FROM FIR f JOIN DISTRICT_MASTER d ON f.district_id = d.district_id"
	q.tables = []string{"FIR", "DISTRICT_MASTER"}
	q.groupBy = "GROUP BY d.district_name"
	q.orderBy = "ORDER BY fir_count DESC"

	placeholders := make([]string, len(districts))
	for i, d := range districts {
		q.params = append(q.params, d.Value)
		placeholders[i] = fmt.Sprintf("$%d", len(q.params))
	}
	q.conditions = append(q.conditions, "d.district_name IN ("+strings.Join(placeholders, ", ")+")")

	if crime := firstEntity(input.Entities, models.EntityCrimeType); crime != nil {
		q.joinCrimeType()
		q.where("ct.crime_name =", crime.Value)
	}
	s.applyDateFilter(q, input.Entities)

	return q.build(s.config.DefaultLimit), nil
}

// trendQuery buckets FIR counts by calendar month.
func (s *ruleStrategy) trendQuery(input *Input) (*models.CandidateQuery, error) {
	q := newQueryBuilder()
	q.selectClause = "SELECT DATE_TRUNC('month', f.registration_date) AS month, COUNT(*) AS fir_count"
	q.fromClause = "FROM FIR f"
	q.tables = []string{"FIR"}
	q.groupBy = "GROUP BY month"
	q.orderBy = "ORDER BY month"

	s.applyFilters(q, input.Entities)
	return q.build(s.config.DefaultLimit), nil
}

// applyFilters adds the district, station, crime type, and date conditions
// shared by most templates.
func (s *ruleStrategy) applyFilters(q *queryBuilder, entities []models.Entity) {
	if district := firstEntity(entities, models.EntityDistrict); district != nil {
		q.joinDistrict()
		q.where("d.district_name =", district.Value)
	}
	if station := firstEntity(entities, models.EntityStation); station != nil {
		q.joinStation()
		q.where("s.station_name =", station.Value)
	}
	if crime := firstEntity(entities, models.EntityCrimeType); crime != nil {
		q.joinCrimeType()
		q.where("ct.crime_name =", crime.Value)
	}
	s.applyDateFilter(q, entities)
}

func (s *ruleStrategy) applyDateFilter(q *queryBuilder, entities []models.Entity) {
	from, to, ok := dateRange(allEntities(entities, models.EntityDate), s.now())
	if !ok {
		return
	}
	q.params = append(q.params, from.Format("2006-01-02"))
	fromPh := len(q.params)
	q.params = append(q.params, to.Format("2006-01-02"))
	q.conditions = append(q.conditions,
		fmt.Sprintf("f.registration_date BETWEEN $%d AND $%d", fromPh, len(q.params)))
}

// queryBuilder assembles one SELECT with numbered placeholders. Joins are
// added at most once each.
type queryBuilder struct {
	selectClause string
	fromClause   string
	tables       []string
	conditions   []string
	params       []interface{}
	groupBy      string
	orderBy      string
}

func newQueryBuilder() *queryBuilder {
	return &queryBuilder{}
}

func (q *queryBuilder) where(prefix string, value interface{}) {
	q.params = append(q.params, value)
	q.conditions = append(q.conditions, fmt.Sprintf("%s $%d", prefix, len(q.params)))
}

func (q *queryBuilder) joinDistrict() {
	q.join("DISTRICT_MASTER", " JOIN DISTRICT_MASTER d ON f.district_id = d.district_id")
}

func (q *queryBuilder) joinStation() {
	q.join("STATION_MASTER", " JOIN STATION_MASTER s ON f.station_id = s.station_id")
}

func (q *queryBuilder) joinCrimeType() {
	q.join("CRIME_TYPE_MASTER", " JOIN CRIME_TYPE_MASTER ct ON f.crime_type_id = ct.crime_type_id")
}

func (q *queryBuilder) join(table, clause string) {
	for _, t := range q.tables {
		if t == table {
			return
		}
	}
	q.tables = append(q.tables, table)
	q.fromClause += clause
}

func (q *queryBuilder) build(limit int) *models.CandidateQuery {
	parts := []string{q.selectClause, q.fromClause}
	if len(q.conditions) > 0 {
		parts = append(parts, "WHERE "+strings.Join(q.conditions, " AND "))
	}
	if q.groupBy != "" {
		parts = append(parts, q.groupBy)
	}
	if q.orderBy != "" {
		parts = append(parts, q.orderBy)
	}
	parts = append(parts, fmt.Sprintf("LIMIT %d", limit))

	return &models.CandidateQuery{
		SQL:    strings.Join(parts, " "),
		Tables: q.tables,
		Params: q.params,
		Origin: models.OriginRuleBased,
	}
}

func firstEntity(entities []models.Entity, kind models.EntityKind) *models.Entity {
	for i := range entities {
		if entities[i].Kind == kind {
			return &entities[i]
		}
	}
	return nil
}

func allEntities(entities []models.Entity, kind models.EntityKind) []models.Entity {
	var out []models.Entity
	for _, e := range entities {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

func hasDataFilter(entities []models.Entity) bool {
	for _, e := range entities {
		switch e.Kind {
		case models.EntityDistrict, models.EntityStation, models.EntityCrimeType,
			models.EntityDate, models.EntityPerson, models.EntityPhone, models.EntityVehicle:
			return true
		}
	}
	return false
}
