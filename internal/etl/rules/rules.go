// Package rules holds the row-level business rules the silver and gold
// stages apply: validation predicates, categorical normalization, and
// customer segmentation thresholds.
package rules

import (
	"fmt"
	"sort"
	"strings"

	"github.com/scout-analytics/scout-etl/internal/config"
)

// DefaultRegionNames maps known region codes to display names. Unmapped
// codes pass through unchanged.
func DefaultRegionNames() map[string]string {
	return map[string]string{
		"NCR": "National Capital Region",
		"CAR": "Cordillera Administrative Region",
	}
}

// MergeRegionNames overlays config-supplied entries on the defaults.
func MergeRegionNames(overrides map[string]string) map[string]string {
	names := DefaultRegionNames()
	for code, name := range overrides {
		names[code] = name
	}
	return names
}

// NormalizeRegion maps a region code to its display name, passing
// unknown codes through unchanged.
func NormalizeRegion(code string, names map[string]string) string {
	if name, ok := names[code]; ok {
		return name
	}
	return code
}

// StandardizeCategory lower-cases and trims a category string.
func StandardizeCategory(category string) string {
	return strings.ToLower(strings.TrimSpace(category))
}

// ValidTransaction is the silver row filter: positive amount, positive
// quantity, and a customer present. Rows failing it are dropped from
// silver entirely (not flagged).
func ValidTransaction(amount float64, quantity int64, customerID string) bool {
	return amount > 0 && quantity > 0 && customerID != ""
}

// QualityScore mirrors the upstream scoring rule: 1.0 for rows passing
// validation, 0.8 otherwise. Because silver filters invalid rows before
// scoring, the 0.8 branch is unreachable for accepted rows; it is kept
// so the rule reads the same as the upstream definition. Scoring before
// filtering (flag-and-keep) is a pending product question.
func QualityScore(amount float64, quantity int64, customerID string) float64 {
	if ValidTransaction(amount, quantity, customerID) {
		return 1.0
	}
	return 0.8
}

// QualityCaseSQL renders the quality re-score as a SQL CASE expression
// over the same validity predicate the silver filter applies. Filtered
// rows always land on the 1.0 arm; the 0.8 arm is kept to match
// QualityScore.
func QualityCaseSQL() string {
	return "CASE WHEN total_amount > 0 AND quantity > 0" +
		" AND customer_id IS NOT NULL AND trim(CAST(customer_id AS VARCHAR)) <> ''" +
		" THEN CAST(1.0 AS DOUBLE) ELSE CAST(0.8 AS DOUBLE) END"
}

// Segment labels.
const (
	SpendHigh   = "High Value"
	SpendMedium = "Medium Value"
	SpendLow    = "Low Value"

	FreqFrequent   = "Frequent"
	FreqRegular    = "Regular"
	FreqOccasional = "Occasional"
)

// SpendSegment classifies total spend against the configured thresholds.
// Boundary values fall into the lower band (thresholds are exclusive).
func SpendSegment(totalSpend float64, t config.SegmentConfig) string {
	switch {
	case totalSpend > t.HighValueSpend:
		return SpendHigh
	case totalSpend > t.MediumValueSpend:
		return SpendMedium
	default:
		return SpendLow
	}
}

// FrequencySegment classifies visit counts against the configured thresholds.
func FrequencySegment(visits int64, t config.SegmentConfig) string {
	switch {
	case visits > t.FrequentVisits:
		return FreqFrequent
	case visits > t.RegularVisits:
		return FreqRegular
	default:
		return FreqOccasional
	}
}

// SegmentID composes the spend and frequency labels into the composite
// segment identifier.
func SegmentID(spendSegment, frequencySegment string) string {
	return spendSegment + "_" + frequencySegment
}

// RegionCaseSQL renders the region lookup as a deterministic SQL CASE
// expression over the given column (codes emitted in sorted order, so
// regenerated SQL is stable across runs).
func RegionCaseSQL(column string, names map[string]string) string {
	if len(names) == 0 {
		return column
	}
	codes := make([]string, 0, len(names))
	for code := range names {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	var b strings.Builder
	b.WriteString("CASE ")
	for _, code := range codes {
		fmt.Fprintf(&b, "WHEN %s = %s THEN %s ", column, sqlString(code), sqlString(names[code]))
	}
	fmt.Fprintf(&b, "ELSE %s END", column)
	return b.String()
}

// SpendCaseSQL renders the spend segmentation as a SQL CASE expression.
func SpendCaseSQL(column string, t config.SegmentConfig) string {
	return fmt.Sprintf(
		"CASE WHEN %s > %g THEN %s WHEN %s > %g THEN %s ELSE %s END",
		column, t.HighValueSpend, sqlString(SpendHigh),
		column, t.MediumValueSpend, sqlString(SpendMedium),
		sqlString(SpendLow),
	)
}

// FrequencyCaseSQL renders the visit segmentation as a SQL CASE expression.
func FrequencyCaseSQL(column string, t config.SegmentConfig) string {
	return fmt.Sprintf(
		"CASE WHEN %s > %d THEN %s WHEN %s > %d THEN %s ELSE %s END",
		column, t.FrequentVisits, sqlString(FreqFrequent),
		column, t.RegularVisits, sqlString(FreqRegular),
		sqlString(FreqOccasional),
	)
}

func sqlString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
