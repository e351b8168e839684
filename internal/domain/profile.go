package domain

// ProfileSnapshot is the subset of a user's demographic and financial
// attributes supplied to judges as scoring context. It merges the two
// onboarding profile sections (demographics and financial situation)
// into one flat view, fetched fresh for every evaluation.
type ProfileSnapshot struct {
	// Demographic attributes collected during onboarding.
	CountryOfOrigin string `json:"country_of_origin"`
	TimeInUAE       string `json:"time_in_uae"`
	JobTitle        string `json:"job_title"`
	Housing         string `json:"housing"`
	EducationLevel  string `json:"education_level"`
	NumberOfKids    string `json:"number_of_kids"`

	// Financial-context attributes.
	BankAccount           string `json:"bank_account"`
	DebtInformation       string `json:"debt_information"`
	RemittanceInformation string `json:"remittance_information"`
	FinancialDependents   string `json:"financial_dependents"`
}

// IsZero reports whether no profile attributes were found for the user.
// A conversation without any profile context cannot be judged fairly and
// is skipped by the orchestrator.
func (p ProfileSnapshot) IsZero() bool { return p == ProfileSnapshot{} }
