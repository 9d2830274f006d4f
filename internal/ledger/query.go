package ledger

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"brokerage_crm/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	DefaultPageSize = 15
	MaxPageSize     = 100

	dateLayout  = "2006-01-02" // filter_start_date and filter_end_date
	viewColumns = "transactions.*, COALESCE(users.name, '') AS client_name"
)

// Query is the transaction list request. Filters are strings so malformed
// values can be reported instead of silently ignored; an empty string means
// the filter is unset.
type Query struct {
	Search                string `json:"search"`
	FilterTransactionID   string `json:"filter_transaction_id"`
	FilterLogin           string `json:"filter_login"`
	FilterClient          string `json:"filter_client"`
	FilterTransactionType string `json:"filter_transaction_type"`
	FilterStatus          string `json:"filter_status"`
	FilterStartDate       string `json:"filter_start_date"`
	FilterEndDate         string `json:"filter_end_date"`
	FilterAmount          string `json:"filter_amount"`
	FilterFee             string `json:"filter_fee"`
	Page                  int    `json:"page"`
	PageSize              int    `json:"page_size"`
	SortColumn            string `json:"sort_column"`
	SortDirection         string `json:"sort_direction"`
}

// Page is one page of query results.
type Page struct {
	Rows          []TransactionView `json:"rows"`
	TotalCount    int64             `json:"total_count"`
	FilteredCount int64             `json:"filtered_count"`
	Page          int               `json:"page"`
	PageSize      int               `json:"page_size"`
}

// scope narrows a query.
type scope = func(*gorm.DB) *gorm.DB

// sortColumns maps accepted sort names to SQL columns.
var sortColumns = map[string]string{
	"id":              "transactions.id",
	"transactionid":   "transactions.id",
	"login":           "transactions.login_id",
	"name":            "users.name",
	"client":          "users.name",
	"username":        "users.name",
	"type":            "transactions.type",
	"transactiontype": "transactions.type",
	"amount":          "transactions.amount",
	"fee":             "transactions.fee",
	"status":          "transactions.status",
	"date":            "transactions.transaction_date",
	"transactiondate": "transactions.transaction_date",
}

// amountBuckets are the fixed ranges of filter_amount.
var amountBuckets = map[string]scope{
	"1": where("transactions.amount <= ?", 100),
	"2": where("transactions.amount > ? AND transactions.amount <= ?", 100, 500),
	"3": where("transactions.amount > ? AND transactions.amount <= ?", 500, 1000),
	"4": where("transactions.amount > ?", 1000),
}

func where(cond string, args ...any) scope {
	return func(db *gorm.DB) *gorm.DB { return db.Where(cond, args...) }
}

// plan is a validated query: its predicates, ordering and window.
type plan struct {
	filters []scope
	order   []string
	page    int
	size    int
}

// compile validates q and turns each set field into a predicate.
func (q Query) compile() (*plan, error) {
	p := &plan{page: q.Page, size: q.PageSize}
	switch {
	case p.page == 0:
		p.page = 1 // Unset
	case p.page < 0:
		return nil, domain.Invalid("page", "must be positive")
	}
	switch {
	case p.size == 0:
		p.size = DefaultPageSize
	case p.size < 0 || p.size > MaxPageSize:
		return nil, domain.Invalid("page_size", "must be between 1 and 100")
	}

	if term := strings.TrimSpace(q.Search); term != "" {
		p.filters = append(p.filters, search(term))
	}
	if v := strings.TrimSpace(q.FilterTransactionID); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return nil, domain.Invalid("filter_transaction_id", "must be a number")
		}
		p.filters = append(p.filters, where("transactions.id = ?", id))
	}
	if v := strings.TrimSpace(q.FilterLogin); v != "" {
		login, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, domain.Invalid("filter_login", "must be a number")
		}
		p.filters = append(p.filters, where("transactions.login_id = ?", login))
	}
	if v := strings.TrimSpace(q.FilterClient); v != "" {
		p.filters = append(p.filters, where("users.name LIKE ?", "%"+v+"%"))
	}
	if v := strings.TrimSpace(q.FilterTransactionType); v != "" {
		txType, ok := domain.ParseTransactionType(v)
		if !ok {
			return nil, domain.Invalid("filter_transaction_type", "must be Deposit or Withdrawal")
		}
		p.filters = append(p.filters, where("transactions.type = ?", txType))
	}
	if v := strings.TrimSpace(q.FilterStatus); v != "" {
		status, ok := domain.ParseTransactionStatus(v)
		if !ok {
			return nil, domain.Invalid("filter_status", "must be Pending, Approved or Rejected")
		}
		p.filters = append(p.filters, where("transactions.status = ?", status))
	}
	dates, err := dateRange(q.FilterStartDate, q.FilterEndDate)
	if err != nil {
		return nil, err
	}
	p.filters = append(p.filters, dates...)
	if v := strings.TrimSpace(q.FilterAmount); v != "" {
		bucket, ok := amountBuckets[v]
		if !ok {
			return nil, domain.Invalid("filter_amount", "must be one of 1, 2, 3, 4")
		}
		p.filters = append(p.filters, bucket)
	}
	if v := strings.TrimSpace(q.FilterFee); v != "" {
		fee, err := decimal.NewFromString(v)
		if err != nil {
			return nil, domain.Invalid("filter_fee", "must be a number")
		}
		p.filters = append(p.filters, where("transactions.fee = ?", fee))
	}

	order, err := sortOrder(q.SortColumn, q.SortDirection)
	if err != nil {
		return nil, err
	}
	p.order = order
	return p, nil
}

// search matches term against every displayed column. Status is matched by
// name since it is stored as a number.
func search(term string) scope {
	like := "%" + term + "%"
	cond := "(CAST(transactions.id AS CHAR) LIKE ? OR CAST(transactions.login_id AS CHAR) LIKE ? OR users.name LIKE ?" +
		" OR transactions.type LIKE ? OR CAST(transactions.amount AS CHAR) LIKE ? OR CAST(transactions.fee AS CHAR) LIKE ?" +
		" OR CAST(transactions.transaction_date AS CHAR) LIKE ?"
	args := []any{like, like, like, like, like, like, like}

	var statuses []domain.TransactionStatus
	for _, s := range []domain.TransactionStatus{domain.StatusPending, domain.StatusApproved, domain.StatusRejected} {
		if strings.Contains(strings.ToLower(s.String()), strings.ToLower(term)) {
			statuses = append(statuses, s)
		}
	}
	if len(statuses) > 0 {
		cond += " OR transactions.status IN ?"
		args = append(args, statuses)
	}
	return where(cond+")", args...)
}

// dateRange builds the inclusive day range filters.
func dateRange(start, end string) ([]scope, error) {
	var (
		filters  []scope
		from, to time.Time
		err      error
	)
	if start = strings.TrimSpace(start); start != "" {
		if from, err = time.Parse(dateLayout, start); err != nil {
			return nil, domain.Invalid("filter_start_date", "must be a YYYY-MM-DD date")
		}
		filters = append(filters, where("transactions.transaction_date >= ?", from))
	}
	if end = strings.TrimSpace(end); end != "" {
		if to, err = time.Parse(dateLayout, end); err != nil {
			return nil, domain.Invalid("filter_end_date", "must be a YYYY-MM-DD date")
		}
		filters = append(filters, where("transactions.transaction_date < ?", to.AddDate(0, 0, 1)))
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return nil, domain.Invalid("filter_end_date", "must not be before the start date")
	}
	return filters, nil
}

// sortOrder resolves a single-column sort, newest first by default. Ties
// are broken by id in the same direction so paging is stable.
func sortOrder(column, direction string) ([]string, error) {
	col := "date"
	if c := strings.ToLower(strings.TrimSpace(column)); c != "" {
		col = c
	}
	sqlCol, ok := sortColumns[col]
	if !ok {
		return nil, domain.Invalid("sort_column", "cannot sort by "+column)
	}
	dir := "DESC"
	switch strings.ToLower(strings.TrimSpace(direction)) {
	case "", "desc":
	case "asc":
		dir = "ASC"
	default:
		return nil, domain.Invalid("sort_direction", "must be asc or desc")
	}
	order := []string{sqlCol + " " + dir}
	if sqlCol != "transactions.id" {
		order = append(order, "transactions.id "+dir)
	}
	return order, nil
}

// joined starts a fresh statement over transactions and their owners.
func (s *Service) joined(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Table("transactions").
		Joins("LEFT JOIN client_accounts ON client_accounts.login_id = transactions.login_id").
		Joins("LEFT JOIN users ON users.id = client_accounts.user_id")
}

// List runs q and returns the requested page with total and filtered counts.
// Pages are served from the cache when one is configured.
func (s *Service) List(ctx context.Context, q Query) (*Page, error) {
	p, err := q.compile()
	if err != nil {
		return nil, err
	}

	key := s.cacheKey(ctx, q, p)
	if key != "" {
		var cached Page
		if hit, err := s.cache.Get(ctx, key, &cached); err != nil {
			logrus.WithField("error", err.Error()).Warn("Transaction cache read failed")
		} else if hit {
			return &cached, nil
		}
	}

	page := &Page{Rows: []TransactionView{}, Page: p.page, PageSize: p.size}
	if err := s.db.WithContext(ctx).Model(&domain.Transaction{}).Count(&page.TotalCount).Error; err != nil {
		return nil, s.fail(err, 0, "count transactions")
	}
	if err := s.joined(ctx).Scopes(p.filters...).Count(&page.FilteredCount).Error; err != nil {
		return nil, s.fail(err, 0, "count filtered transactions")
	}

	rows := s.joined(ctx).Scopes(p.filters...).Select(viewColumns)
	for _, o := range p.order {
		rows = rows.Order(o)
	}
	if err := rows.Offset((p.page - 1) * p.size).Limit(p.size).Scan(&page.Rows).Error; err != nil {
		return nil, s.fail(err, 0, "list transactions")
	}
	for i := range page.Rows {
		page.Rows[i].StatusName = page.Rows[i].Status.String()
	}

	if key != "" {
		if err := s.cache.Set(ctx, key, page); err != nil {
			logrus.WithField("error", err.Error()).Warn("Transaction cache write failed")
		}
	}
	return page, nil
}

// cacheKey derives the cache entry for q after defaults are applied, or ""
// when caching is off or unavailable.
func (s *Service) cacheKey(ctx context.Context, q Query, p *plan) string {
	if s.cache == nil {
		return ""
	}
	q.Page, q.PageSize = p.page, p.size
	raw, err := json.Marshal(q)
	if err != nil {
		return ""
	}
	key, err := s.cache.Key(ctx, string(raw))
	if err != nil {
		logrus.WithField("error", err.Error()).Warn("Transaction cache unavailable")
		return ""
	}
	return key
}
