/*
factory.go - Domain objects from configuration

PURPOSE:
  Converts raw config values into validated domain objects: classifiers
  extended with contract aliases, named aggregation policies with the
  configured upcharge and wages basis, and the invoice sequence. All
  validation of config-to-domain mapping happens here, so the rest of
  the engine never sees an unvalidated category name or policy name.

USAGE:
  classifier, err := factory.Classifier(cfg)
  policy, err := factory.Policy(cfg, factory.PolicyInvoicing)

SEE ALSO:
  - config/: The raw YAML values
  - billing/policy.go: The policy type itself
*/
package factory

import (
	"fmt"

	"github.com/warp/billing-engine/billing"
	"github.com/warp/billing-engine/config"
	"github.com/warp/billing-engine/invoice"
)

// Known policy names.
const (
	PolicyInvoicing     = "invoicing"
	PolicyHoursApproval = "hours_approval"
)

// Classifier builds the task classifier, extended with the contract's
// extra codes and aliases. Unknown category names in config are a hard
// error: a typo here would silently misprice every matching entry.
func Classifier(cfg config.Config) (*billing.Classifier, error) {
	c := billing.NewClassifier()

	for code, name := range cfg.TaskCodes {
		cat, err := parseCategory(name)
		if err != nil {
			return nil, fmt.Errorf("taskCodes[%q]: %w", code, err)
		}
		c.AddCode(code, cat)
	}
	for raw, name := range cfg.TaskAliases {
		cat, err := parseCategory(name)
		if err != nil {
			return nil, fmt.Errorf("taskAliases[%q]: %w", raw, err)
		}
		c.AddAlias(raw, cat)
	}
	return c, nil
}

func parseCategory(name string) (billing.TaskCategory, error) {
	for _, cat := range billing.Categories() {
		if string(cat) == name {
			return cat, nil
		}
	}
	return billing.CategoryUnknown, fmt.Errorf("unknown task category %q", name)
}

// Policy returns the named aggregation policy with the contract's
// upcharge and wages basis applied.
func Policy(cfg config.Config, name string) (billing.Policy, error) {
	var p billing.Policy
	switch name {
	case PolicyInvoicing:
		p = billing.InvoicingPolicy(cfg.Upcharge())
	case PolicyHoursApproval:
		p = billing.HoursApprovalPolicy(cfg.Upcharge())
	default:
		return billing.Policy{}, fmt.Errorf("unknown policy %q", name)
	}

	if cfg.WagesBasis == "all_regular_hours" {
		p.WagesBasis = billing.BasisAllRegularHours
	}
	return p, nil
}

// Sequence builds the invoice number sequence from the configured
// prefix and next number.
func Sequence(cfg config.Config) *invoice.Sequence {
	return invoice.NewSequence(cfg.InvoicePrefix, cfg.NextInvoiceNumber)
}

// InvoiceOptions maps the configured cost CLINs onto invoice options.
func InvoiceOptions(cfg config.Config) invoice.Options {
	opts := invoice.DefaultOptions()
	if cfg.PostCLIN != "" {
		opts.PostCLIN = cfg.PostCLIN
	}
	if cfg.HazardCLIN != "" {
		opts.HazardCLIN = cfg.HazardCLIN
	}
	return opts
}
