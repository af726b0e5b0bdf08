package handler

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/restaurant-directory/internal/api/metrics"
	"github.com/99minutos/restaurant-directory/internal/core/domain"
	"github.com/99minutos/restaurant-directory/internal/core/ports"
)

// AccountHandler serves the administrator's account directory.
type AccountHandler struct {
	service ports.DirectoryService
}

func NewAccountHandler(service ports.DirectoryService) *AccountHandler {
	return &AccountHandler{service: service}
}

// List handles GET /v1/users.
//
// Filters given here are remembered for the session: a later request without
// search or roles reuses them until clear is sent.
//
// @Summary      Search the account directory
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        search  query     string    false  "Case-insensitive match on name or email"
// @Param        roles   query     []string  false  "Role names; repeat the parameter to select several"  collectionFormat(multi)
// @Param        clear   query     bool      false  "Forget the remembered filter"
// @Param        page    query     int       false  "Page number, starting at 1"
// @Success      200     {object}  listAccountsResponse
// @Failure      302     {string}  string  "Redirect to /caution when the caller lacks the admin role"
// @Failure      500     {object}  errorResponse
// @Router       /v1/users [get]
func (h *AccountHandler) List(c echo.Context) error {
	result, err := h.service.SearchDirectory(c.Request().Context(), ports.SearchDirectoryInput{
		SessionID: ctxSessionID(c),
		Filter:    parseFilterInput(c),
		Page:      parsePage(c.QueryParam("page")),
	})
	if err != nil {
		metrics.SearchesTotal.WithLabelValues("error").Inc()
		return err
	}

	metrics.SearchesTotal.WithLabelValues(result.Transition.String()).Inc()
	metrics.SearchResults.Observe(float64(result.Total))

	data := make([]accountSummaryResponse, 0, len(result.Items))
	for _, it := range result.Items {
		data = append(data, accountSummaryResponse{
			ID:    it.ID,
			Name:  it.Name,
			Email: it.Email,
			Roles: it.Roles,
		})
	}

	return c.JSON(http.StatusOK, listAccountsResponse{
		Data: data,
		Pagination: paginationResponse{
			Page:       result.Page,
			PerPage:    result.PerPage,
			Total:      result.Total,
			TotalPages: result.TotalPages,
		},
		Filter: filterResponse{
			Search:  result.Filter.Search,
			Roles:   result.Filter.Roles,
			Outcome: result.Transition.String(),
		},
		Links:   pageLinks(c.Path(), result),
		Message: fmt.Sprintf("%d results", result.Total),
	})
}

// Show handles GET /v1/users/:id.
//
// @Summary      Get an account with its roles
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Account ID"
// @Success      200  {object}  accountEnvelope
// @Failure      404  {object}  errorResponse
// @Router       /v1/users/{id} [get]
func (h *AccountHandler) Show(c echo.Context) error {
	account, err := h.service.GetAccount(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, accountEnvelope{Data: toAccountResponse(account)})
}

// Update handles PUT /v1/users/:id.
//
// @Summary      Update an account and replace its roles
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string                true  "Account ID"
// @Param        body  body      updateAccountRequest  true  "Name, email and the complete role set"
// @Success      200   {object}  accountEnvelope
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/users/{id} [put]
func (h *AccountHandler) Update(c echo.Context) error {
	var req updateAccountRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	account, err := h.service.UpdateAccount(c.Request().Context(), ports.UpdateAccountInput{
		ID:    c.Param("id"),
		Name:  req.Name,
		Email: req.Email,
		Roles: req.Roles,
	})
	if err != nil {
		return err
	}

	metrics.AccountChangesTotal.WithLabelValues("update").Inc()
	return c.JSON(http.StatusOK, accountEnvelope{Data: toAccountResponse(account), Message: "account updated"})
}

// Delete handles DELETE /v1/users/:id.
//
// @Summary      Delete an account
// @Tags         users
// @Security     BearerAuth
// @Param        id   path  string  true  "Account ID"
// @Success      204
// @Failure      404  {object}  errorResponse
// @Router       /v1/users/{id} [delete]
func (h *AccountHandler) Delete(c echo.Context) error {
	if err := h.service.DeleteAccount(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	metrics.AccountChangesTotal.WithLabelValues("delete").Inc()
	return c.NoContent(http.StatusNoContent)
}

// Roles handles GET /v1/roles.
//
// @Summary      List the role catalogue
// @Tags         roles
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  listRolesResponse
// @Router       /v1/roles [get]
func (h *AccountHandler) Roles(c echo.Context) error {
	roles, err := h.service.ListRoles(c.Request().Context())
	if err != nil {
		return err
	}
	data := make([]roleResponse, 0, len(roles))
	for _, r := range roles {
		data = append(data, roleResponse{ID: r.ID, Name: r.Name, DisplayName: domain.DisplayName(r.Name)})
	}
	return c.JSON(http.StatusOK, listRolesResponse{Data: data})
}

// Caution handles GET /caution, the page denied callers are redirected to.
//
// @Summary      Explain which roles a protected page requires
// @Tags         roles
// @Produce      json
// @Param        roles  query     string  false  "Comma-separated role names"
// @Success      200    {object}  cautionResponse
// @Router       /caution [get]
func Caution(c echo.Context) error {
	raw := c.QueryParam("roles")
	if raw == "" {
		raw = c.QueryParam("role")
	}

	names := splitRoles([]string{raw})
	roles := make([]roleResponse, 0, len(names))
	labels := make([]string, 0, len(names))
	for _, n := range names {
		label := domain.DisplayName(n)
		roles = append(roles, roleResponse{Name: n, DisplayName: label})
		labels = append(labels, label)
	}

	msg := "You do not have permission to view this page."
	if len(labels) > 0 {
		msg = "This page requires one of the following roles: " + strings.Join(labels, ", ") + "."
	}
	return c.JSON(http.StatusOK, cautionResponse{Roles: roles, Message: msg})
}

// --- query parsing ---

func parseFilterInput(c echo.Context) domain.FilterInput {
	q := c.QueryParams()
	roles := append(append([]string(nil), q["roles"]...), q["roles[]"]...)
	return domain.FilterInput{
		Search: q.Get("search"),
		Roles:  splitRoles(roles),
		Clear:  parseFlag(q.Get("clear")),
	}
}

// splitRoles accepts both repeated parameters and comma-separated values.
func splitRoles(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return domain.NormalizeRoleNames(out)
}

func parseFlag(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func parsePage(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// pageLinks builds navigation links that carry the effective filter, so
// following them never drops it.
func pageLinks(path string, r *ports.SearchDirectoryResult) directoryLinks {
	if path == "" {
		path = "/v1/users"
	}
	link := func(page int) string {
		v := url.Values{}
		if r.Filter.Search != "" {
			v.Set("search", r.Filter.Search)
		}
		for _, role := range r.Filter.Roles {
			v.Add("roles", role)
		}
		v.Set("page", strconv.Itoa(page))
		return path + "?" + v.Encode()
	}

	last := r.TotalPages
	if last < 1 {
		last = 1
	}
	links := directoryLinks{
		Self:  link(r.Page),
		First: link(1),
		Last:  link(last),
	}
	if r.Page > 1 {
		links.Prev = link(min(r.Page-1, last))
	}
	if r.Page < last {
		links.Next = link(r.Page + 1)
	}
	return links
}

func toAccountResponse(a *domain.Account) accountResponse {
	roles := make([]roleResponse, 0, len(a.Roles))
	for _, r := range a.Roles {
		roles = append(roles, roleResponse{ID: r.ID, Name: r.Name, DisplayName: domain.DisplayName(r.Name)})
	}
	return accountResponse{
		ID:        a.ID,
		Name:      a.Name,
		Email:     a.Email,
		Roles:     roles,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}
