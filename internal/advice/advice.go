// Package advice serves the static advisory lookups: share-scheme
// summaries, tax rate tables and EMI eligibility rules. Deterministic data,
// no external calls.
package advice

import "strings"

type Scheme struct {
	Key           string   `json:"key"`
	Name          string   `json:"name"`
	Summary       string   `json:"summary"`
	TaxAdvantages []string `json:"taxAdvantages"`
	KeyLimits     []string `json:"keyLimits"`
}

var schemes = []Scheme{
	{
		Key:     "emi",
		Name:    "Enterprise Management Incentives (EMI)",
		Summary: "Tax-advantaged share options for smaller trading companies. No Income Tax or NIC on grant, and normally none on exercise if options were granted at market value.",
		TaxAdvantages: []string{
			"No Income Tax or NIC on grant",
			"No Income Tax or NIC on exercise when granted at market value",
			"Business Asset Disposal Relief can apply from grant date (10% CGT)",
		},
		KeyLimits: []string{
			"Up to 250,000 GBP of options per employee (3-year rolling limit)",
			"Company gross assets must not exceed 30 million GBP",
			"Fewer than 250 full-time equivalent employees",
		},
	},
	{
		Key:     "csop",
		Name:    "Company Share Option Plan (CSOP)",
		Summary: "Discretionary option scheme for companies that don't qualify for EMI. Options must be granted at market value.",
		TaxAdvantages: []string{
			"No Income Tax or NIC on exercise between 3 and 10 years after grant",
			"Gains taxed as capital, not income",
		},
		KeyLimits: []string{
			"Up to 60,000 GBP of options per employee",
			"Options must be granted at no discount to market value",
		},
	},
	{
		Key:     "saye",
		Name:    "Save As You Earn (SAYE / Sharesave)",
		Summary: "All-employee savings-related option scheme. Employees save monthly for 3 or 5 years, then use savings to exercise options.",
		TaxAdvantages: []string{
			"Options can be granted at up to a 20% discount to market value",
			"No Income Tax or NIC on exercise at maturity",
			"Tax-free bonus on savings",
		},
		KeyLimits: []string{
			"Monthly savings between 5 GBP and 500 GBP",
			"Must be offered to all eligible employees on similar terms",
		},
	},
	{
		Key:     "sip",
		Name:    "Share Incentive Plan (SIP)",
		Summary: "All-employee plan for holding shares in a trust. Free, partnership, matching and dividend shares.",
		TaxAdvantages: []string{
			"Shares held 5 years: no Income Tax or NIC on award value",
			"No CGT on shares sold directly from the plan",
		},
		KeyLimits: []string{
			"Free shares up to 3,600 GBP per tax year",
			"Partnership shares up to 1,800 GBP per tax year",
		},
	},
	{
		Key:     "growth-shares",
		Name:    "Growth shares",
		Summary: "A separate share class participating only in value above a hurdle. Unapproved but commonly used where tax-advantaged schemes don't fit.",
		TaxAdvantages: []string{
			"Low acquisition value when the hurdle is set above current value",
			"Future growth taxed as capital rather than income",
		},
		KeyLimits: []string{
			"Requires a robust valuation of the growth share class at acquisition",
			"Section 431 election within 14 days is usually advisable",
		},
	},
}

// Schemes returns all scheme summaries in fixed order.
func Schemes() []Scheme {
	out := make([]Scheme, len(schemes))
	copy(out, schemes)
	return out
}

// SchemeByKey looks up a scheme by its key, case-insensitively.
func SchemeByKey(key string) (Scheme, bool) {
	k := strings.ToLower(strings.TrimSpace(key))
	for _, s := range schemes {
		if s.Key == k {
			return s, true
		}
	}
	return Scheme{}, false
}

type RateBand struct {
	Band string  `json:"band"`
	Rate float64 `json:"rate"`
	Note string  `json:"note,omitempty"`
}

type RateTable struct {
	TaxYear         string     `json:"taxYear"`
	CGTAnnualExempt int        `json:"cgtAnnualExemptAmount"`
	CGTShares       []RateBand `json:"cgtShares"`
	IncomeTax       []RateBand `json:"incomeTax"`
}

// Rates returns the static CGT and Income Tax rate table used by the
// frontend rate cards.
func Rates() RateTable {
	return RateTable{
		TaxYear:         "2024/25",
		CGTAnnualExempt: 3000,
		CGTShares: []RateBand{
			{Band: "basic rate", Rate: 10, Note: "gains within the basic rate band"},
			{Band: "higher rate", Rate: 20},
			{Band: "business asset disposal relief", Rate: 10, Note: "lifetime limit 1 million GBP"},
		},
		IncomeTax: []RateBand{
			{Band: "personal allowance", Rate: 0, Note: "up to 12,570 GBP"},
			{Band: "basic rate", Rate: 20, Note: "12,571 to 50,270 GBP"},
			{Band: "higher rate", Rate: 40, Note: "50,271 to 125,140 GBP"},
			{Band: "additional rate", Rate: 45, Note: "over 125,140 GBP"},
		},
	}
}

type EligibilityRule struct {
	Requirement string `json:"requirement"`
	Detail      string `json:"detail"`
}

// EMIEligibility returns the company and employee conditions for EMI.
func EMIEligibility() []EligibilityRule {
	return []EligibilityRule{
		{Requirement: "Independent trading company", Detail: "The company must not be under the control of another company and must carry on a qualifying trade."},
		{Requirement: "Gross assets", Detail: "Gross assets must not exceed 30 million GBP at grant."},
		{Requirement: "Employee headcount", Detail: "Fewer than 250 full-time equivalent employees at grant."},
		{Requirement: "Working time", Detail: "The employee must work at least 25 hours a week, or 75% of their working time, for the company."},
		{Requirement: "Material interest", Detail: "The employee must not hold more than 30% of the ordinary share capital."},
		{Requirement: "Option limit", Detail: "Unexercised EMI options over shares worth more than 250,000 GBP (at grant) per employee are not qualifying."},
		{Requirement: "Excluded activities", Detail: "Trades such as banking, farming, property development and legal services do not qualify."},
	}
}
