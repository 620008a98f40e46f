// Package models defines the data structures exchanged between the matching workers.
package models

// StatusNotProvided marks a profile sub-record the applicant chose not to supply.
// The scoring engine treats it the same as a missing record.
const StatusNotProvided = "not_provided"

// KYCVerified is the only co-borrower status that satisfies a mandatory co-borrower check.
const KYCVerified = "verified"

// FinancialSummary aggregates the applicant's bureau and income figures.
type FinancialSummary struct {
	AvgCibilScore   float64 `json:"avgCibilScore"`
	AvgFoir         float64 `json:"avgFoir"`
	AvgAnnualIncome float64 `json:"avgAnnualIncome"`
}

type GradeRecord struct {
	Percentage float64 `json:"percentage"`
}

type Academics struct {
	Status       string      `json:"status,omitempty"`
	TenthGrade   GradeRecord `json:"tenthGrade"`
	TwelfthGrade GradeRecord `json:"twelfthGrade"`
	Graduation   GradeRecord `json:"graduation"`
	GapYears     int         `json:"gapYears"`
}

// AdmissionLetter records one university admission. Letters are ordered;
// the first one is the applicant's top admission.
type AdmissionLetter struct {
	Status    string `json:"status,omitempty"`
	WorldRank *int   `json:"worldRank,omitempty"`
}

type CoBorrower struct {
	KYCStatus string `json:"kycStatus,omitempty"`
}

type TestScores struct {
	Status string  `json:"status,omitempty"`
	GRE    float64 `json:"gre,omitempty"`
	IELTS  float64 `json:"ielts,omitempty"`
	TOEFL  float64 `json:"toefl,omitempty"`
}

// ApplicantProfile is the single applicant evaluated against every lender.
// Every sub-record is optional; absence means "does not meet the requirement",
// never an error.
type ApplicantProfile struct {
	FinancialSummary *FinancialSummary `json:"financialSummary,omitempty"`
	Academics        *Academics        `json:"academics,omitempty"`
	AdmissionLetters []AdmissionLetter `json:"admissionLetters,omitempty"`
	CoBorrowers      []CoBorrower      `json:"coBorrowers,omitempty"`
	TestScores       *TestScores       `json:"testScores,omitempty"`
}
