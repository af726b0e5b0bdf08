package handler

import "time"

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// --- Request / Response types ---

type updateAccountRequest struct {
	Name  string   `json:"name"  validate:"required,max=60"`
	Email string   `json:"email" validate:"required,email,max=254"`
	Roles []string `json:"roles" validate:"required,min=1,dive,required"`
}

type roleResponse struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
}

type accountSummaryResponse struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Email string   `json:"email"`
	Roles []string `json:"roles"`
}

type accountResponse struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Email     string         `json:"email"`
	Roles     []roleResponse `json:"roles"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

type accountEnvelope struct {
	Data    accountResponse `json:"data"`
	Message string          `json:"message,omitempty"`
}

type paginationResponse struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

type filterResponse struct {
	Search  string   `json:"search"`
	Roles   []string `json:"roles"`
	Outcome string   `json:"outcome"`
}

type directoryLinks struct {
	Self  string `json:"self"`
	First string `json:"first"`
	Last  string `json:"last"`
	Prev  string `json:"prev,omitempty"`
	Next  string `json:"next,omitempty"`
}

type listAccountsResponse struct {
	Data       []accountSummaryResponse `json:"data"`
	Pagination paginationResponse       `json:"pagination"`
	Filter     filterResponse           `json:"filter"`
	Links      directoryLinks           `json:"links"`
	Message    string                   `json:"message"`
}

type listRolesResponse struct {
	Data []roleResponse `json:"data"`
}

type cautionResponse struct {
	Roles   []roleResponse `json:"roles"`
	Message string         `json:"message"`
}
