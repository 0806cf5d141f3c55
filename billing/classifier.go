/*
classifier.go - Task code and label classification

PURPOSE:
  Maps raw task identifiers to canonical task categories and billing
  classes. Upstream sources disagree about how tasks are spelled: one
  export carries numeric codes ("3325"), another carries labels
  ("Scheduled - Overtime"). The classifier accepts both and normalizes
  known synonyms through an explicit alias table.

WHY AN INJECTED VALUE:
  The predecessor kept these maps as module-level dictionaries copied into
  every report script, which is how silent misclassification crept in. A
  constructed Classifier is passed into the join engine, can be extended
  per contract, and is testable without global state.

UNKNOWN TASKS:
  Unmapped input classifies as Unknown/Non-billable and must be surfaced
  on the run's Report. The hours are kept - dropping them would break the
  classification total invariant.

SEE ALSO:
  - join.go: Consults the classifier per entry
  - factory/: Builds classifiers with contract-specific aliases
*/
package billing

import "strings"

// =============================================================================
// TASK CATEGORY - Canonical pay categories
// =============================================================================

type TaskCategory string

const (
	CategoryRegular       TaskCategory = "Regular"
	CategoryOvertime      TaskCategory = "Overtime"
	CategoryOnCallOT      TaskCategory = "On-callOT"
	CategoryScheduledOT   TaskCategory = "ScheduledOT"
	CategoryUnscheduledOT TaskCategory = "UnscheduledOT"
	CategoryHoliday       TaskCategory = "Holiday"
	CategoryLocalHoliday  TaskCategory = "LocalHoliday"
	CategoryBereavement   TaskCategory = "Bereavement"
	CategoryVacation      TaskCategory = "Vacation"
	CategoryAdmin         TaskCategory = "Admin"
	CategoryUnknown       TaskCategory = "Unknown"
)

// Categories returns every category in its fixed column order. Rollup
// pivots iterate this so downstream consumers always see the same schema.
func Categories() []TaskCategory {
	return []TaskCategory{
		CategoryRegular,
		CategoryLocalHoliday,
		CategoryHoliday,
		CategoryVacation,
		CategoryAdmin,
		CategoryBereavement,
		CategoryOvertime,
		CategoryOnCallOT,
		CategoryScheduledOT,
		CategoryUnscheduledOT,
		CategoryUnknown,
	}
}

// =============================================================================
// BILLING CLASS - Coarse rate selection
// =============================================================================

type BillingClass string

const (
	ClassRegular     BillingClass = "regular"
	ClassOvertime    BillingClass = "overtime"
	ClassNonBillable BillingClass = "non_billable"
)

// classByCategory is the fixed category-to-class mapping. Holiday, Vacation,
// and Bereavement hours are paid but not billed to the contract.
var classByCategory = map[TaskCategory]BillingClass{
	CategoryRegular:       ClassRegular,
	CategoryLocalHoliday:  ClassRegular,
	CategoryAdmin:         ClassRegular,
	CategoryOvertime:      ClassOvertime,
	CategoryOnCallOT:      ClassOvertime,
	CategoryScheduledOT:   ClassOvertime,
	CategoryUnscheduledOT: ClassOvertime,
	CategoryHoliday:       ClassNonBillable,
	CategoryVacation:      ClassNonBillable,
	CategoryBereavement:   ClassNonBillable,
	CategoryUnknown:       ClassNonBillable,
}

// Class returns the billing class for a category.
func (c TaskCategory) Class() BillingClass {
	if cl, ok := classByCategory[c]; ok {
		return cl
	}
	return ClassNonBillable
}

// regularCategories are the categories whose hours roll into HoursRegular.
// Unknown rides along here so the hour partition stays complete: every
// category lands in exactly one of the regular/overtime splits.
var regularCategories = map[TaskCategory]bool{
	CategoryRegular:      true,
	CategoryLocalHoliday: true,
	CategoryHoliday:      true,
	CategoryVacation:     true,
	CategoryAdmin:        true,
	CategoryBereavement:  true,
	CategoryUnknown:      true,
}

// overtimeCategories are the categories whose hours roll into HoursOvertime.
var overtimeCategories = map[TaskCategory]bool{
	CategoryOvertime:      true,
	CategoryOnCallOT:      true,
	CategoryScheduledOT:   true,
	CategoryUnscheduledOT: true,
}

// =============================================================================
// CLASSIFIER
// =============================================================================

// Classifier maps raw task identifiers to categories. Deterministic, no
// side effects.
type Classifier struct {
	codes   map[string]TaskCategory
	aliases map[string]TaskCategory
}

// NewClassifier returns a classifier loaded with the contract's task code
// table and the label synonyms observed in the source exports.
func NewClassifier() *Classifier {
	c := &Classifier{
		codes: map[string]TaskCategory{
			"3322": CategoryRegular,
			"3323": CategoryOvertime,
			"3324": CategoryOnCallOT,
			"3325": CategoryScheduledOT,
			"3326": CategoryUnscheduledOT,
			"3329": CategoryHoliday,
			"3330": CategoryLocalHoliday,
			"3331": CategoryBereavement,
			"3332": CategoryVacation,
			"3333": CategoryAdmin,
		},
		aliases: map[string]TaskCategory{
			"Scheduled Overtime":        CategoryScheduledOT,
			"Scheduled - Overtime":      CategoryScheduledOT,
			"Unscheduled Overtime":      CategoryUnscheduledOT,
			"Unscheduled/ Emergency OT": CategoryUnscheduledOT,
			"On Call- Overtime":         CategoryOnCallOT,
			"Local Holiday":             CategoryLocalHoliday,
		},
	}

	// Category names classify as themselves; exports that already carry
	// canonical names round-trip cleanly.
	for _, cat := range Categories() {
		if cat != CategoryUnknown {
			c.aliases[string(cat)] = cat
		}
	}
	return c
}

// AddAlias registers a contract-specific synonym. Used by the factory when
// a contract's config maps extra codes or labels.
func (c *Classifier) AddAlias(raw string, cat TaskCategory) {
	c.aliases[strings.TrimSpace(raw)] = cat
}

// AddCode registers a contract-specific numeric task code.
func (c *Classifier) AddCode(code string, cat TaskCategory) {
	c.codes[strings.TrimSpace(code)] = cat
}

// Classify maps a raw task identifier or label to its category and billing
// class. The third return is false for unmapped input, which classifies as
// Unknown/Non-billable; callers surface that on the Report rather than
// dropping the entry.
func (c *Classifier) Classify(raw string) (TaskCategory, BillingClass, bool) {
	task := strings.TrimSpace(raw)

	if cat, ok := c.codes[task]; ok {
		return cat, cat.Class(), true
	}
	if cat, ok := c.aliases[task]; ok {
		return cat, cat.Class(), true
	}
	return CategoryUnknown, ClassNonBillable, false
}
