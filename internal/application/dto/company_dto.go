package dto

import "time"

// CreateCompanyRequest entrada para registrar un emisor.
type CreateCompanyRequest struct {
	RUC                string `json:"ruc" validate:"required,len=13,numeric"`
	BusinessName       string `json:"business_name" validate:"required,min=1,max=300"`
	TradeName          string `json:"trade_name" validate:"omitempty,max=300"`
	MainAddress        string `json:"main_address" validate:"required,max=300"`
	BranchAddress      string `json:"branch_address" validate:"omitempty,max=300"`
	Establishment      string `json:"establishment" validate:"required,len=3,numeric"`
	EmissionPoint      string `json:"emission_point" validate:"required,len=3,numeric"`
	AccountingRequired bool   `json:"accounting_required"`
	SpecialTaxpayer    string `json:"special_taxpayer" validate:"omitempty,max=13"`
	Phone              string `json:"phone" validate:"omitempty,max=20"`
	Email              string `json:"email" validate:"omitempty,email"`
}

// CompanyResponse salida de un emisor.
type CompanyResponse struct {
	ID                 string    `json:"id"`
	RUC                string    `json:"ruc"`
	BusinessName       string    `json:"business_name"`
	TradeName          string    `json:"trade_name,omitempty"`
	MainAddress        string    `json:"main_address"`
	BranchAddress      string    `json:"branch_address,omitempty"`
	Establishment      string    `json:"establishment"`
	EmissionPoint      string    `json:"emission_point"`
	AccountingRequired bool      `json:"accounting_required"`
	SpecialTaxpayer    string    `json:"special_taxpayer,omitempty"`
	Phone              string    `json:"phone,omitempty"`
	Email              string    `json:"email,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

// CustomerResponse salida de un cliente.
type CustomerResponse struct {
	ID                 string    `json:"id"`
	IdentificationType string    `json:"identification_type"`
	Identification     string    `json:"identification"`
	Name               string    `json:"name"`
	Email              string    `json:"email,omitempty"`
	Phone              string    `json:"phone,omitempty"`
	Address            string    `json:"address,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}
