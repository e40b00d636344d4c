package handler

// DepositRequest is a user's request to fund their wallet
type DepositRequest struct {
	Amount string `json:"amount" binding:"required"`
	Method string `json:"method" binding:"required,oneof=bank_transfer card crypto"`
}

// WithdrawRequest is a user's request to move funds out of their wallet
type WithdrawRequest struct {
	Amount    string `json:"amount" binding:"required"`
	Method    string `json:"method" binding:"required,oneof=bank_transfer crypto"`
	ToAddress string `json:"to_address,omitempty"`
}

// ReviewRequest carries an admin's approval decision note
type ReviewRequest struct {
	Note string `json:"note,omitempty"`
}

// CreateInvestmentRequest commits wallet principal into a project plan
type CreateInvestmentRequest struct {
	ProjectID  string `json:"project_id" binding:"required,uuid"`
	Amount     string `json:"amount" binding:"required"`
	APY        string `json:"apy" binding:"required"`
	TermMonths int    `json:"term_months" binding:"required,gt=0"`
}

// ManualFlagRequest opens a compliance flag outside the rule engine
type ManualFlagRequest struct {
	UserID      string `json:"user_id" binding:"required,uuid"`
	Severity    string `json:"severity" binding:"required,oneof=low medium high critical"`
	Description string `json:"description" binding:"required"`
}

// UpdateFlagRequest moves a flag through its investigation lifecycle
type UpdateFlagRequest struct {
	Status string `json:"status" binding:"required,oneof=open investigating resolved dismissed escalated"`
	Note   string `json:"note,omitempty"`
}

// UpdateSettingRequest upserts one operator-tunable platform setting
type UpdateSettingRequest struct {
	Key   string `json:"key" binding:"required"`
	Value string `json:"value" binding:"required"`
}

// ListParams are the shared limit/offset query parameters for list endpoints
type ListParams struct {
	Limit  int `form:"limit,default=50" binding:"min=1,max=200"`
	Offset int `form:"offset,default=0" binding:"min=0"`
}
