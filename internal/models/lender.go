package models

type CibilCriteria struct {
	MinScore float64 `json:"minScore"`
}

type FoirCriteria struct {
	MaxPercentage float64 `json:"maxPercentage"`
}

type IncomeCriteria struct {
	MinAnnualIncome float64 `json:"minAnnualIncome"`
}

type AcademicCriteria struct {
	MinPercentage10th float64 `json:"minPercentage10th"`
	MinPercentage12th float64 `json:"minPercentage12th"`
	MinPercentageGrad float64 `json:"minPercentageGrad"`
	MaxGapYears       int     `json:"maxGapYears"`
}

type UniversityCriteria struct {
	RankingRequired  bool `json:"rankingRequired"`
	MaxRankThreshold int  `json:"maxRankThreshold"`
}

type CoBorrowerCriteria struct {
	Mandatory bool `json:"mandatory"`
}

type TestCriteria struct {
	GREMinScore   float64 `json:"greMinScore"`
	IELTSMinScore float64 `json:"ieltsMinScore"`
	TOEFLMinScore float64 `json:"toeflMinScore"`
	// OthersOptional means the lender accepts applicants without any of the
	// listed tests, so the dimension is trivially satisfied.
	OthersOptional bool `json:"othersOptional"`
}

type ROIRange struct {
	MinRate float64 `json:"minRate"`
	MaxRate float64 `json:"maxRate"`
}

// LoanConfig holds one lender's eligibility thresholds across the seven
// scored dimensions. It is owned by the caller and immutable for the
// duration of an evaluation.
type LoanConfig struct {
	Cibil      CibilCriteria      `json:"cibil"`
	Foir       FoirCriteria       `json:"foir"`
	IncomeItr  IncomeCriteria     `json:"incomeItr"`
	Academics  AcademicCriteria   `json:"academics"`
	University UniversityCriteria `json:"university"`
	CoBorrower CoBorrowerCriteria `json:"coBorrower"`
	Tests      TestCriteria       `json:"tests"`
	ROI        ROIRange           `json:"roi"`
}

// LenderRecord identifies one lender (NBFC) and carries its criteria.
type LenderRecord struct {
	ID          string     `json:"id"`
	CompanyName string     `json:"companyName"`
	Email       string     `json:"email"`
	LoanConfig  LoanConfig `json:"loanConfig"`
}
